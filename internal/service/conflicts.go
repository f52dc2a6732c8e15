package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/metrics"
	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

// DetectConflicts scans a kid/week shortlist for ordering problems: a
// higher-ranked (more wanted) session whose registration opens later
// than a lower-ranked one's. By the time the favorite can be booked, the
// fallback may be gone, so the family should know in advance.
//
// Only preferred candidacies participate. Sessions without a
// registration-open timestamp cannot conflict.
func DetectConflicts(cands []*models.Candidacy, sessions map[int64]*models.Session) []models.Conflict {
	ranked := preferredInOrder(cands)
	var conflicts []models.Conflict
	for i := 0; i+1 < len(ranked); i++ {
		higher, lower := ranked[i], ranked[i+1]
		hs, ls := sessions[higher.SessionID], sessions[lower.SessionID]
		if hs == nil || ls == nil || hs.RegistrationOpen == nil || ls.RegistrationOpen == nil {
			continue
		}
		if hs.RegistrationOpen.After(*ls.RegistrationOpen) {
			conflicts = append(conflicts, models.Conflict{
				KidID:           higher.KidID,
				WeekID:          higher.WeekID,
				HigherRank:      *higher.Rank,
				HigherSessionID: higher.SessionID,
				LowerRank:       *lower.Rank,
				LowerSessionID:  lower.SessionID,
				Gap:             hs.RegistrationOpen.Sub(*ls.RegistrationOpen),
			})
		}
	}
	return conflicts
}

// ConflictsForKidWeek loads one shortlist and runs detection on it.
func (s *Service) ConflictsForKidWeek(ctx context.Context, kidID, weekID int64) ([]models.Conflict, error) {
	cands, err := s.Candidacies.GetByKidWeek(ctx, kidID, weekID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidacies: %w", err)
	}
	sessions, err := s.sessionsFor(ctx, cands)
	if err != nil {
		return nil, err
	}
	return DetectConflicts(cands, sessions), nil
}

// AllConflicts runs detection across every kid/week shortlist that has
// preferred candidacies.
func (s *Service) AllConflicts(ctx context.Context) ([]models.Conflict, error) {
	state := models.StatePreferred
	preferred, err := s.Candidacies.GetAll(ctx, repository.CandidacyFilters{State: &state})
	if err != nil {
		return nil, fmt.Errorf("failed to load preferred candidacies: %w", err)
	}

	byPair := make(map[[2]int64][]*models.Candidacy)
	for _, c := range preferred {
		key := [2]int64{c.KidID, c.WeekID}
		byPair[key] = append(byPair[key], c)
	}
	keys := make([][2]int64, 0, len(byPair))
	for k := range byPair {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	sessions, err := s.sessionsFor(ctx, preferred)
	if err != nil {
		return nil, err
	}

	var out []models.Conflict
	for _, k := range keys {
		out = append(out, DetectConflicts(byPair[k], sessions)...)
	}
	return out, nil
}

// checkConflicts re-runs detection for one shortlist after a change and
// pushes the result to the notifier. Failures are logged, never returned;
// conflict detection is advisory.
func (s *Service) checkConflicts(ctx context.Context, kidID, weekID int64) {
	conflicts, err := s.ConflictsForKidWeek(ctx, kidID, weekID)
	if err != nil {
		s.logger.WithError(err).Warn("conflict detection failed")
		return
	}
	if len(conflicts) == 0 {
		return
	}
	metrics.ConflictsDetectedTotal.Add(float64(len(conflicts)))
	s.logger.WithFields(logrus.Fields{
		"kid_id":  kidID,
		"week_id": weekID,
		"count":   len(conflicts),
	}).Warn("preference order conflicts with registration-open order")
	s.notifier.ConflictsDetected(kidID, weekID, len(conflicts))
}

// UpdateSession saves session changes and, since the registration-open
// timestamp may have moved, re-runs conflict detection for every
// shortlist the session sits on.
func (s *Service) UpdateSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	updated, err := s.Sessions.Update(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	state := models.StatePreferred
	preferred, err := s.Candidacies.GetAll(ctx, repository.CandidacyFilters{
		State:     &state,
		SessionID: &updated.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidacies: %w", err)
	}
	seen := make(map[[2]int64]bool)
	for _, c := range preferred {
		key := [2]int64{c.KidID, c.WeekID}
		if seen[key] {
			continue
		}
		seen[key] = true
		s.checkConflicts(ctx, c.KidID, c.WeekID)
	}
	return updated, nil
}

func (s *Service) sessionsFor(ctx context.Context, cands []*models.Candidacy) (map[int64]*models.Session, error) {
	sessions := make(map[int64]*models.Session)
	for _, c := range cands {
		if _, ok := sessions[c.SessionID]; ok {
			continue
		}
		sess, err := s.Sessions.GetByID(ctx, c.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %d: %w", c.SessionID, err)
		}
		if sess != nil {
			sessions[c.SessionID] = sess
		}
	}
	return sessions, nil
}
