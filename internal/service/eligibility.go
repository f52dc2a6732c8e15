package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

// Eligibility is the outcome of checking a kid against a session's age
// and grade windows.
type Eligibility string

const (
	// Eligible means every declared window matches.
	Eligible Eligibility = "eligible"
	// IneligibleAge means the kid's age at session start falls outside
	// the session's age window.
	IneligibleAge Eligibility = "ineligible_age"
	// IneligibleGrade means the kid's grade falls outside the session's
	// grade window.
	IneligibleGrade Eligibility = "ineligible_grade"
	// EligibilityUnknown means the session declares a grade window but
	// the kid has no grade on file. Not a hard block.
	EligibilityUnknown Eligibility = "unknown"
)

// CheckEligibility evaluates kid against session. Age is computed as of
// the session start date. A session with no windows accepts everyone.
func CheckEligibility(kid *models.Kid, session *models.Session) Eligibility {
	if session.AgeMin != nil || session.AgeMax != nil {
		age := kid.AgeAt(session.StartDate)
		if session.AgeMin != nil && age < *session.AgeMin {
			return IneligibleAge
		}
		if session.AgeMax != nil && age > *session.AgeMax {
			return IneligibleAge
		}
	}
	if session.GradeMin != nil || session.GradeMax != nil {
		if kid.Grade == nil {
			return EligibilityUnknown
		}
		if session.GradeMin != nil && *kid.Grade < *session.GradeMin {
			return IneligibleGrade
		}
		if session.GradeMax != nil && *kid.Grade > *session.GradeMax {
			return IneligibleGrade
		}
	}
	return Eligible
}

// StaleCandidacyWarning reports a live candidacy whose kid no longer
// meets the session's windows after a roster edit. Nothing is changed
// automatically; the family decides what to do.
type StaleCandidacyWarning struct {
	CandidacyID int64       `json:"candidacy_id"`
	SessionID   int64       `json:"session_id"`
	WeekID      int64       `json:"week_id"`
	Eligibility Eligibility `json:"eligibility"`
}

// UpdateKid saves roster changes and re-checks the kid's live candidacies
// against their sessions, returning warnings for any that went stale.
func (s *Service) UpdateKid(ctx context.Context, kid *models.Kid) (*models.Kid, []StaleCandidacyWarning, error) {
	updated, err := s.Kids.Update(ctx, kid)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update kid: %w", err)
	}

	candidacies, err := s.Candidacies.GetByKid(ctx, updated.ID, repository.CandidacyFilters{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load candidacies: %w", err)
	}

	var warnings []StaleCandidacyWarning
	for _, c := range candidacies {
		if !c.IsActive() {
			continue
		}
		session, err := s.Sessions.GetByID(ctx, c.SessionID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load session %d: %w", c.SessionID, err)
		}
		if session == nil {
			continue
		}
		if res := CheckEligibility(updated, session); res != Eligible && res != EligibilityUnknown {
			warnings = append(warnings, StaleCandidacyWarning{
				CandidacyID: c.ID,
				SessionID:   c.SessionID,
				WeekID:      c.WeekID,
				Eligibility: res,
			})
		}
	}
	if len(warnings) > 0 {
		s.logger.WithFields(logrus.Fields{
			"kid_id": updated.ID,
			"count":  len(warnings),
		}).Warn("roster change left candidacies ineligible")
	}
	return updated, warnings, nil
}
