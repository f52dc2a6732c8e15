package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/metrics"
	"github.com/mledder/camplan/internal/models"
)

var (
	// ErrDuplicateRank means the caller supplied a rank already in use
	// for the (kid, week) without requesting a reflow.
	ErrDuplicateRank = errors.New("rank already in use for this kid and week")
	// ErrAlreadyBooked means a booked candidacy already exists for the
	// (kid, week); the existing booking is left untouched.
	ErrAlreadyBooked = errors.New("a session is already booked for this kid and week")
	// ErrIneligible means the kid falls outside the session's declared
	// age or grade window.
	ErrIneligible = errors.New("kid is not eligible for this session")
	// ErrInvalidTransition means the candidacy is not in a state the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("candidacy state does not allow this transition")
)

// siblingsOf filters the candidacies of a (kid, week) down to everything
// except the target. Orphaned rows never participate in transitions.
func siblingsOf(all []*models.Candidacy, targetID int64) []*models.Candidacy {
	var out []*models.Candidacy
	for _, c := range all {
		if c.ID != targetID && c.State != models.StateOrphaned {
			out = append(out, c)
		}
	}
	return out
}

// preferredInOrder returns the preferred candidacies sorted by rank.
func preferredInOrder(cands []*models.Candidacy) []*models.Candidacy {
	var out []*models.Candidacy
	for _, c := range cands {
		if c.State == models.StatePreferred && c.Rank != nil {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Rank < *out[j].Rank })
	return out
}

// applyPrefer moves target into the preferred shortlist at the given
// rank. Without reflow a taken rank is rejected; with reflow the target
// is inserted and everything at or below shifts down. Ranks are
// renumbered densely either way.
func applyPrefer(siblings []*models.Candidacy, target *models.Candidacy, rank int, reflow bool) error {
	if target.State != models.StateIdea && target.State != models.StatePreferred {
		return ErrInvalidTransition
	}
	if rank < 1 {
		return fmt.Errorf("rank must be positive, got %d", rank)
	}

	ordered := preferredInOrder(siblings)
	if !reflow {
		for _, c := range ordered {
			if *c.Rank == rank {
				return ErrDuplicateRank
			}
		}
	}

	if rank > len(ordered)+1 {
		rank = len(ordered) + 1
	}
	// Insert target at its slot and renumber 1..N.
	ordered = append(ordered, nil)
	copy(ordered[rank:], ordered[rank-1:])
	ordered[rank-1] = target
	for i, c := range ordered {
		r := i + 1
		c.State = models.StatePreferred
		c.Rank = intPtr(r)
	}
	return nil
}

// applyUnprefer drops target back to idea and compacts the remaining
// ranks so they stay a dense 1..N sequence.
func applyUnprefer(siblings []*models.Candidacy, target *models.Candidacy) error {
	if target.State != models.StatePreferred {
		return ErrInvalidTransition
	}
	target.State = models.StateIdea
	target.Rank = nil
	for i, c := range preferredInOrder(siblings) {
		c.Rank = intPtr(i + 1)
	}
	return nil
}

// applyBook books target and supersedes every sibling, remembering each
// one's state and rank so an unbook can restore them exactly.
func applyBook(siblings []*models.Candidacy, target *models.Candidacy) error {
	if target.IsBooked() {
		return ErrAlreadyBooked
	}
	// The one-booked invariant is reported first: a booked sibling means
	// ErrAlreadyBooked whatever state the target is in.
	for _, c := range siblings {
		if c.IsBooked() {
			return ErrAlreadyBooked
		}
	}
	if target.State != models.StateIdea && target.State != models.StatePreferred {
		return ErrInvalidTransition
	}

	stash := func(c *models.Candidacy) {
		prev := c.State
		c.PrevState = &prev
		c.PrevRank = c.Rank
	}
	stash(target)
	target.State = models.StateBooked
	target.Rank = nil
	for _, c := range siblings {
		stash(c)
		c.State = models.StateSuperseded
		c.Rank = nil
	}
	return nil
}

// applyUnbook cancels a booking: target and every superseded sibling
// return to the exact state and rank they held before the booking.
func applyUnbook(siblings []*models.Candidacy, target *models.Candidacy) error {
	if !target.IsBooked() {
		return ErrInvalidTransition
	}

	restore := func(c *models.Candidacy) {
		if c.PrevState != nil {
			c.State = *c.PrevState
		} else {
			c.State = models.StateIdea
		}
		c.Rank = c.PrevRank
		c.PrevState = nil
		c.PrevRank = nil
	}
	restore(target)
	for _, c := range siblings {
		if c.State == models.StateSuperseded {
			restore(c)
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }

// AddIdea proposes a session for a kid: one idea candidacy per week the
// session covers, all sharing a group ID. Eligibility is a hard gate;
// trip unavailability is advisory and never blocks. Weeks that already
// carry a candidacy for the same session are skipped.
func (s *Service) AddIdea(ctx context.Context, kidID, sessionID int64) ([]*models.Candidacy, error) {
	kid, err := s.Kids.GetByID(ctx, kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to load kid: %w", err)
	}
	if kid == nil {
		return nil, fmt.Errorf("kid %d not found", kidID)
	}
	session, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}

	switch CheckEligibility(kid, session) {
	case IneligibleAge, IneligibleGrade:
		return nil, ErrIneligible
	}

	weeks, err := s.Weeks.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load weeks: %w", err)
	}
	covered := session.CoveredWeeks(weeks)
	if len(covered) == 0 {
		return nil, fmt.Errorf("session %d covers no summer week", sessionID)
	}

	groupID := uuid.NewString()
	friends := session.MutualFriends(kid)

	var created []*models.Candidacy
	for _, weekID := range covered {
		existing, err := s.Candidacies.GetByKidWeek(ctx, kidID, weekID)
		if err != nil {
			return nil, fmt.Errorf("failed to load candidacies: %w", err)
		}
		dup := false
		for _, c := range existing {
			if c.SessionID == sessionID && c.State != models.StateOrphaned {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		c, err := s.Candidacies.Create(ctx, &models.Candidacy{
			KidID:            kidID,
			WeekID:           weekID,
			SessionID:        sessionID,
			State:            models.StateIdea,
			GroupID:          groupID,
			FriendsAttending: friends,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create candidacy: %w", err)
		}
		created = append(created, c)
	}

	s.logger.WithFields(logrus.Fields{
		"kid_id":     kidID,
		"session_id": sessionID,
		"weeks":      len(created),
	}).Info("idea added")
	return created, nil
}

// Prefer ranks a candidacy on its kid/week shortlist.
func (s *Service) Prefer(ctx context.Context, candidacyID int64, rank int, reflow bool) (*models.Candidacy, error) {
	return s.transition(ctx, candidacyID, func(siblings []*models.Candidacy, target *models.Candidacy) error {
		return applyPrefer(siblings, target, rank, reflow)
	}, nil, func(ctx context.Context, target *models.Candidacy) error {
		s.checkConflicts(ctx, target.KidID, target.WeekID)
		return nil
	})
}

// Unprefer drops a candidacy back to an unranked idea.
func (s *Service) Unprefer(ctx context.Context, candidacyID int64) (*models.Candidacy, error) {
	return s.transition(ctx, candidacyID, applyUnprefer, nil, func(ctx context.Context, target *models.Candidacy) error {
		s.checkConflicts(ctx, target.KidID, target.WeekID)
		return nil
	})
}

// Book confirms a registration. Siblings are hidden, a calendar event is
// queued, and the one-booked invariant is enforced before any write.
func (s *Service) Book(ctx context.Context, candidacyID int64) (*models.Candidacy, error) {
	return s.transition(ctx, candidacyID, applyBook, s.enqueueBookingEvent,
		func(context.Context, *models.Candidacy) error {
			metrics.BookingsTotal.Inc()
			return nil
		})
}

// Unbook cancels a registration and restores the pre-booking shortlist.
// The calendar event is retracted through the queue.
func (s *Service) Unbook(ctx context.Context, candidacyID int64) (*models.Candidacy, error) {
	return s.transition(ctx, candidacyID, applyUnbook, s.enqueueBookingRetraction,
		func(context.Context, *models.Candidacy) error {
			metrics.UnbookingsTotal.Inc()
			return nil
		})
}

// transition loads a candidacy and its siblings under the (kid, week)
// lock, applies the pure transition, queues any outbox work, persists
// every row that changed, then runs the follow-up while still holding
// the lock. The enqueue step precedes persistence: an error from it
// leaves every candidacy row unwritten, so a transition reported as
// failed never committed.
func (s *Service) transition(ctx context.Context, candidacyID int64,
	apply func([]*models.Candidacy, *models.Candidacy) error,
	enqueue func(context.Context, *models.Candidacy) error,
	after func(context.Context, *models.Candidacy) error,
) (*models.Candidacy, error) {
	target, err := s.Candidacies.GetByID(ctx, candidacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidacy: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("candidacy %d not found", candidacyID)
	}

	unlock := s.locks.lock(target.KidID, target.WeekID)
	defer unlock()

	all, err := s.Candidacies.GetByKidWeek(ctx, target.KidID, target.WeekID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidacies: %w", err)
	}
	// Re-read the target from the same snapshot as its siblings.
	target = nil
	for _, c := range all {
		if c.ID == candidacyID {
			target = c
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("candidacy %d not found", candidacyID)
	}

	before := snapshotStates(all)
	if err := apply(siblingsOf(all, target.ID), target); err != nil {
		return nil, err
	}

	if enqueue != nil {
		if err := enqueue(ctx, target); err != nil {
			return nil, err
		}
	}

	for _, c := range all {
		if before[c.ID] == stateKey(c) {
			continue
		}
		if _, err := s.Candidacies.Update(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to persist candidacy %d: %w", c.ID, err)
		}
	}

	if after != nil {
		if err := after(ctx, target); err != nil {
			return nil, err
		}
	}
	return target, nil
}

func snapshotStates(cands []*models.Candidacy) map[int64]string {
	m := make(map[int64]string, len(cands))
	for _, c := range cands {
		m[c.ID] = stateKey(c)
	}
	return m
}

func stateKey(c *models.Candidacy) string {
	key := string(c.State)
	if c.Rank != nil {
		key += fmt.Sprintf("/r%d", *c.Rank)
	}
	if c.PrevState != nil {
		key += "/p" + string(*c.PrevState)
	}
	if c.PrevRank != nil {
		key += fmt.Sprintf("/pr%d", *c.PrevRank)
	}
	return key
}

// ActiveView returns the candidacies a planner should see for a kid and
// week: only the booked one when a booking exists, ideas and preferred
// otherwise. With showHidden, superseded and orphaned rows are included.
func (s *Service) ActiveView(ctx context.Context, kidID, weekID int64, showHidden bool) ([]*models.Candidacy, error) {
	all, err := s.Candidacies.GetByKidWeek(ctx, kidID, weekID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidacies: %w", err)
	}
	return projectActive(all, showHidden), nil
}

// projectActive applies the visibility contract to one (kid, week) set.
func projectActive(all []*models.Candidacy, showHidden bool) []*models.Candidacy {
	if showHidden {
		return all
	}
	var booked *models.Candidacy
	for _, c := range all {
		if c.IsBooked() {
			booked = c
			break
		}
	}
	if booked != nil {
		return []*models.Candidacy{booked}
	}
	var out []*models.Candidacy
	for _, c := range all {
		if c.State == models.StateIdea || c.State == models.StatePreferred {
			out = append(out, c)
		}
	}
	return out
}
