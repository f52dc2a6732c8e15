package calendarapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testEvent() Event {
	return Event{
		Key:        "booking-42",
		CalendarID: "bookings",
		Summary:    "Ava: Art Camp",
		Start:      time.Date(2025, time.June, 23, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, time.June, 27, 0, 0, 0, 0, time.UTC),
		AllDay:     true,
	}
}

func TestUpsertPutsEventByKey(t *testing.T) {
	var gotPath string
	var gotBody Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	if err := c.Upsert(context.Background(), testEvent()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if want := "/calendars/bookings/events/booking-42"; gotPath != want {
		t.Errorf("path = %s, want %s", gotPath, want)
	}
	if gotBody.Key != "booking-42" {
		t.Errorf("body key = %s", gotBody.Key)
	}
	if !c.Healthy() {
		t.Errorf("client unhealthy after a successful push")
	}
}

func TestUpsertRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, RetryCount: 2})
	if err := c.Upsert(context.Background(), testEvent()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestUpsertPermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access revoked", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	err := c.Upsert(context.Background(), testEvent())
	if err == nil {
		t.Fatalf("expected an error for 403")
	}
	if !IsPermanent(err) {
		t.Errorf("403 should be permanent, got %v", err)
	}
	if c.Healthy() {
		t.Errorf("client still healthy after a rejection")
	}
}

func TestThrottlingIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	err := c.Upsert(context.Background(), testEvent())
	if err == nil {
		t.Fatalf("expected an error for 429")
	}
	if IsPermanent(err) {
		t.Errorf("429 must stay retryable, got permanent: %v", err)
	}
}

func TestRetractTreatsMissingEventAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	if err := c.Retract(context.Background(), "booking-42", "bookings"); err != nil {
		t.Fatalf("retract of a missing event should succeed, got %v", err)
	}
	if !c.Healthy() {
		t.Errorf("client unhealthy after an effectively successful retract")
	}
}

func TestUnreachableServiceIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately: nobody is listening

	c := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second})
	err := c.Upsert(context.Background(), testEvent())
	if err == nil {
		t.Fatalf("expected an error for a closed server")
	}
	if IsPermanent(err) {
		t.Errorf("network failure must stay retryable, got permanent: %v", err)
	}
}
