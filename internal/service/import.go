package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/models"
)

// SessionProposal is one row of a bulk import, typically scraped from a
// camp provider's site by an external collaborator.
type SessionProposal struct {
	Name             string      `json:"name"`
	AgeMin           *int        `json:"age_min"`
	AgeMax           *int        `json:"age_max"`
	GradeMin         *int        `json:"grade_min"`
	GradeMax         *int        `json:"grade_max"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          time.Time   `json:"end_date"`
	Holidays         []time.Time `json:"holidays"`
	StartTime        string      `json:"start_time"`
	EndTime          string      `json:"end_time"`
	DropoffStart     string      `json:"dropoff_start"`
	DropoffEnd       string      `json:"dropoff_end"`
	PickupStart      string      `json:"pickup_start"`
	PickupEnd        string      `json:"pickup_end"`
	Cost             *float64    `json:"cost"`
	EarlyCare        bool        `json:"early_care"`
	EarlyCareCost    *float64    `json:"early_care_cost"`
	LateCare         bool        `json:"late_care"`
	LateCareCost     *float64    `json:"late_care_cost"`
	RegistrationOpen *time.Time  `json:"registration_open"`
	URL              string      `json:"url"`
	ExpectedFriends  []string    `json:"expected_friends"`
}

// ImportItemResult reports the fate of one proposal. Index refers to the
// caller's input order.
type ImportItemResult struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	SessionID int64  `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ImportResult summarizes a bulk import. Partial success is normal: bad
// rows are reported and skipped, good rows are committed.
type ImportResult struct {
	Created int                `json:"created"`
	Failed  int                `json:"failed"`
	Items   []ImportItemResult `json:"items"`
}

// BulkImportSessions validates and creates sessions under one camp. Each
// proposal stands alone: a failure never blocks the rows after it. The
// returned error aggregates the per-row failures; the result carries the
// full per-row report either way.
func (s *Service) BulkImportSessions(ctx context.Context, campID int64, proposals []SessionProposal) (*ImportResult, error) {
	camp, err := s.Camps.GetByID(ctx, campID)
	if err != nil {
		return nil, fmt.Errorf("failed to load camp: %w", err)
	}
	if camp == nil {
		return nil, fmt.Errorf("camp %d not found", campID)
	}

	result := &ImportResult{}
	var errs *multierror.Error

	for i, p := range proposals {
		item := ImportItemResult{Index: i, Name: p.Name}

		if err := validateProposal(p); err != nil {
			item.Error = err.Error()
			result.Failed++
			result.Items = append(result.Items, item)
			errs = multierror.Append(errs, fmt.Errorf("item %d (%s): %w", i, p.Name, err))
			continue
		}

		session, err := s.Sessions.Create(ctx, &models.Session{
			CampID:           campID,
			Name:             p.Name,
			AgeMin:           p.AgeMin,
			AgeMax:           p.AgeMax,
			GradeMin:         p.GradeMin,
			GradeMax:         p.GradeMax,
			StartDate:        p.StartDate,
			EndDate:          p.EndDate,
			Holidays:         p.Holidays,
			StartTime:        p.StartTime,
			EndTime:          p.EndTime,
			DropoffStart:     p.DropoffStart,
			DropoffEnd:       p.DropoffEnd,
			PickupStart:      p.PickupStart,
			PickupEnd:        p.PickupEnd,
			Cost:             p.Cost,
			EarlyCare:        p.EarlyCare,
			EarlyCareCost:    p.EarlyCareCost,
			LateCare:         p.LateCare,
			LateCareCost:     p.LateCareCost,
			RegistrationOpen: p.RegistrationOpen,
			URL:              p.URL,
			ExpectedFriends:  p.ExpectedFriends,
		})
		if err != nil {
			item.Error = err.Error()
			result.Failed++
			result.Items = append(result.Items, item)
			errs = multierror.Append(errs, fmt.Errorf("item %d (%s): %w", i, p.Name, err))
			continue
		}

		item.SessionID = session.ID
		result.Created++
		result.Items = append(result.Items, item)
	}

	s.logger.WithFields(logrus.Fields{
		"camp_id": campID,
		"created": result.Created,
		"failed":  result.Failed,
	}).Info("bulk session import finished")

	return result, errs.ErrorOrNil()
}

func validateProposal(p SessionProposal) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("end date %s precedes start date %s",
			p.EndDate.Format("2006-01-02"), p.StartDate.Format("2006-01-02"))
	}
	for _, h := range p.Holidays {
		if h.Before(p.StartDate) || h.After(p.EndDate) {
			return fmt.Errorf("holiday %s falls outside the session span", h.Format("2006-01-02"))
		}
	}
	if p.AgeMin != nil && p.AgeMax != nil && *p.AgeMin > *p.AgeMax {
		return fmt.Errorf("age range %d-%d is inverted", *p.AgeMin, *p.AgeMax)
	}
	if p.GradeMin != nil && p.GradeMax != nil && *p.GradeMin > *p.GradeMax {
		return fmt.Errorf("grade range %d-%d is inverted", *p.GradeMin, *p.GradeMax)
	}
	return nil
}
