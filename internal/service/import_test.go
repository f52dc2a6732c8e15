package service

import (
	"context"
	"testing"
	"time"

	"github.com/mledder/camplan/internal/models"
)

func validProposal(name string) SessionProposal {
	return SessionProposal{
		Name:      name,
		StartDate: date(2025, time.July, 7),
		EndDate:   date(2025, time.July, 11),
	}
}

func TestBulkImportPartialSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	camp, _ := env.camps.Create(ctx, &models.Camp{Name: "Pine Hill"})

	inverted := validProposal("bad dates")
	inverted.StartDate, inverted.EndDate = inverted.EndDate, inverted.StartDate

	outsideHoliday := validProposal("bad holiday")
	outsideHoliday.Holidays = []time.Time{date(2025, time.August, 1)}

	proposals := []SessionProposal{
		validProposal("Art Camp"),
		inverted,
		{Name: "", StartDate: date(2025, time.July, 7), EndDate: date(2025, time.July, 11)},
		outsideHoliday,
		validProposal("Soccer Camp"),
	}

	result, err := env.svc.BulkImportSessions(ctx, camp.ID, proposals)
	if err == nil {
		t.Fatalf("expected an aggregated error for the bad rows")
	}
	if result.Created != 2 || result.Failed != 3 {
		t.Fatalf("created/failed = %d/%d, want 2/3", result.Created, result.Failed)
	}
	if len(result.Items) != len(proposals) {
		t.Fatalf("report has %d items, want %d", len(result.Items), len(proposals))
	}
	// Good rows landed despite earlier failures.
	if result.Items[4].SessionID == 0 || result.Items[4].Error != "" {
		t.Errorf("last row not committed: %+v", result.Items[4])
	}
	if result.Items[1].Error == "" {
		t.Errorf("inverted dates not reported")
	}
	sessions, _ := env.sessions.GetByCampID(ctx, camp.ID)
	if len(sessions) != 2 {
		t.Errorf("%d sessions stored, want 2", len(sessions))
	}
}

func TestBulkImportAllValid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	camp, _ := env.camps.Create(ctx, &models.Camp{Name: "Pine Hill"})

	result, err := env.svc.BulkImportSessions(ctx, camp.ID, []SessionProposal{
		validProposal("Week 1"),
		validProposal("Week 2"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 2 || result.Failed != 0 {
		t.Fatalf("created/failed = %d/%d, want 2/0", result.Created, result.Failed)
	}
}

func TestBulkImportUnknownCamp(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.BulkImportSessions(context.Background(), 99, nil); err == nil {
		t.Fatalf("expected an error for an unknown camp")
	}
}

func TestValidateProposal(t *testing.T) {
	agesFlipped := validProposal("ages")
	agesFlipped.AgeMin, agesFlipped.AgeMax = intp(10), intp(6)

	gradesFlipped := validProposal("grades")
	gradesFlipped.GradeMin, gradesFlipped.GradeMax = intp(5), intp(1)

	noDates := SessionProposal{Name: "no dates"}

	tests := []struct {
		name    string
		p       SessionProposal
		wantErr bool
	}{
		{"valid", validProposal("ok"), false},
		{"inverted ages", agesFlipped, true},
		{"inverted grades", gradesFlipped, true},
		{"missing dates", noDates, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateProposal(tt.p); (err != nil) != tt.wantErr {
				t.Errorf("validateProposal() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
