package service

import (
	"context"
	"testing"
	"time"

	"github.com/mledder/camplan/internal/models"
)

func sessionOpening(id int64, open *time.Time) *models.Session {
	return &models.Session{ID: id, Name: "s", RegistrationOpen: open}
}

func prefFor(id, sessionID int64, rank int) *models.Candidacy {
	return &models.Candidacy{
		ID: id, KidID: 1, WeekID: 1, SessionID: sessionID,
		State: models.StatePreferred, Rank: intp(rank),
	}
}

func TestDetectConflictsFavoriteOpensLater(t *testing.T) {
	june1 := date(2025, time.June, 1)
	may15 := date(2025, time.May, 15)
	cands := []*models.Candidacy{
		prefFor(1, 100, 1),
		prefFor(2, 200, 2),
	}
	sessions := map[int64]*models.Session{
		100: sessionOpening(100, &june1),
		200: sessionOpening(200, &may15),
	}

	conflicts := DetectConflicts(cands, sessions)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	c := conflicts[0]
	if c.HigherSessionID != 100 || c.LowerSessionID != 200 {
		t.Errorf("conflict names sessions %d/%d, want 100/200", c.HigherSessionID, c.LowerSessionID)
	}
	if c.HigherRank != 1 || c.LowerRank != 2 {
		t.Errorf("conflict ranks %d/%d, want 1/2", c.HigherRank, c.LowerRank)
	}
	if want := june1.Sub(may15); c.Gap != want {
		t.Errorf("gap = %v, want %v", c.Gap, want)
	}
}

func TestDetectConflictsOrderedOpeningsAreFine(t *testing.T) {
	may1 := date(2025, time.May, 1)
	may15 := date(2025, time.May, 15)
	cands := []*models.Candidacy{
		prefFor(1, 100, 1),
		prefFor(2, 200, 2),
	}
	sessions := map[int64]*models.Session{
		100: sessionOpening(100, &may1),
		200: sessionOpening(200, &may15),
	}

	if got := DetectConflicts(cands, sessions); len(got) != 0 {
		t.Fatalf("got %d conflicts, want none", len(got))
	}
}

func TestDetectConflictsAdjacentPairsOnly(t *testing.T) {
	// Openings [June 1, May 20, June 10]: rank 1 vs 2 conflicts, rank 2
	// vs 3 does not. Rank 1 vs 3 is not an adjacent pair.
	june1 := date(2025, time.June, 1)
	may20 := date(2025, time.May, 20)
	june10 := date(2025, time.June, 10)
	cands := []*models.Candidacy{
		prefFor(1, 100, 1),
		prefFor(2, 200, 2),
		prefFor(3, 300, 3),
	}
	sessions := map[int64]*models.Session{
		100: sessionOpening(100, &june1),
		200: sessionOpening(200, &may20),
		300: sessionOpening(300, &june10),
	}

	conflicts := DetectConflicts(cands, sessions)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	if conflicts[0].HigherSessionID != 100 {
		t.Errorf("conflict higher session = %d, want 100", conflicts[0].HigherSessionID)
	}
}

func TestDetectConflictsIgnoresMissingOpenDates(t *testing.T) {
	june1 := date(2025, time.June, 1)
	cands := []*models.Candidacy{
		prefFor(1, 100, 1),
		prefFor(2, 200, 2),
	}
	sessions := map[int64]*models.Session{
		100: sessionOpening(100, &june1),
		200: sessionOpening(200, nil),
	}

	if got := DetectConflicts(cands, sessions); len(got) != 0 {
		t.Fatalf("got %d conflicts, want none when an open date is unknown", len(got))
	}
}

func TestPreferTriggersConflictNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	kid, _ := env.kids.Create(ctx, &models.Kid{
		Name:             "Ava",
		Birthdate:        date(2017, time.March, 5),
		Active:           true,
		LastDayOfSchool:  datePtr(date(2025, time.June, 10)),
		FirstDayOfSchool: datePtr(date(2025, time.September, 2)),
	})
	if _, _, err := env.svc.RecalculateWeeks(ctx); err != nil {
		t.Fatalf("recalculate weeks: %v", err)
	}
	camp, _ := env.camps.Create(ctx, &models.Camp{Name: "Pine Hill"})
	span := []time.Time{date(2025, time.June, 23), date(2025, time.June, 27)}
	june1 := date(2025, time.June, 1)
	may15 := date(2025, time.May, 15)
	favorite, _ := env.sessions.Create(ctx, &models.Session{
		CampID: camp.ID, Name: "Art", StartDate: span[0], EndDate: span[1], RegistrationOpen: &june1,
	})
	fallback, _ := env.sessions.Create(ctx, &models.Session{
		CampID: camp.ID, Name: "Soccer", StartDate: span[0], EndDate: span[1], RegistrationOpen: &may15,
	})

	favCands, _ := env.svc.AddIdea(ctx, kid.ID, favorite.ID)
	fbCands, _ := env.svc.AddIdea(ctx, kid.ID, fallback.ID)
	if _, err := env.svc.Prefer(ctx, favCands[0].ID, 1, false); err != nil {
		t.Fatalf("prefer favorite: %v", err)
	}
	if len(env.notifier.conflicts) != 0 {
		t.Fatalf("conflict notified with a single preferred candidacy")
	}
	if _, err := env.svc.Prefer(ctx, fbCands[0].ID, 2, false); err != nil {
		t.Fatalf("prefer fallback: %v", err)
	}
	if len(env.notifier.conflicts) != 1 {
		t.Fatalf("notifier saw %d conflict batches, want 1", len(env.notifier.conflicts))
	}
}

func TestUpdateSessionRechecksConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	kid, _ := env.kids.Create(ctx, &models.Kid{
		Name:             "Ava",
		Birthdate:        date(2017, time.March, 5),
		Active:           true,
		LastDayOfSchool:  datePtr(date(2025, time.June, 10)),
		FirstDayOfSchool: datePtr(date(2025, time.September, 2)),
	})
	if _, _, err := env.svc.RecalculateWeeks(ctx); err != nil {
		t.Fatalf("recalculate weeks: %v", err)
	}
	camp, _ := env.camps.Create(ctx, &models.Camp{Name: "Pine Hill"})
	span := []time.Time{date(2025, time.June, 23), date(2025, time.June, 27)}
	may1 := date(2025, time.May, 1)
	may15 := date(2025, time.May, 15)
	favorite, _ := env.sessions.Create(ctx, &models.Session{
		CampID: camp.ID, Name: "Art", StartDate: span[0], EndDate: span[1], RegistrationOpen: &may1,
	})
	fallback, _ := env.sessions.Create(ctx, &models.Session{
		CampID: camp.ID, Name: "Soccer", StartDate: span[0], EndDate: span[1], RegistrationOpen: &may15,
	})
	favCands, _ := env.svc.AddIdea(ctx, kid.ID, favorite.ID)
	fbCands, _ := env.svc.AddIdea(ctx, kid.ID, fallback.ID)
	env.svc.Prefer(ctx, favCands[0].ID, 1, false)
	env.svc.Prefer(ctx, fbCands[0].ID, 2, false)
	if len(env.notifier.conflicts) != 0 {
		t.Fatalf("conflict notified while openings were in rank order")
	}

	// The favorite's registration slips past the fallback's.
	june1 := date(2025, time.June, 1)
	favorite.RegistrationOpen = &june1
	if _, err := env.svc.UpdateSession(ctx, favorite); err != nil {
		t.Fatalf("update session: %v", err)
	}
	if len(env.notifier.conflicts) != 1 {
		t.Fatalf("notifier saw %d conflict batches after the slip, want 1", len(env.notifier.conflicts))
	}
}

func TestDetectConflictsIgnoresUnrankedStates(t *testing.T) {
	june1 := date(2025, time.June, 1)
	may15 := date(2025, time.May, 15)
	ideaRow := &models.Candidacy{ID: 1, KidID: 1, WeekID: 1, SessionID: 100, State: models.StateIdea}
	cands := []*models.Candidacy{ideaRow, prefFor(2, 200, 1)}
	sessions := map[int64]*models.Session{
		100: sessionOpening(100, &june1),
		200: sessionOpening(200, &may15),
	}

	if got := DetectConflicts(cands, sessions); len(got) != 0 {
		t.Fatalf("got %d conflicts, want none with a single preferred row", len(got))
	}
}
