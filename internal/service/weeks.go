package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/repository"
)

// ErrInvalidDateRange means the kids' school dates do not leave room for
// a single full summer week.
var ErrInvalidDateRange = errors.New("school dates leave no room for a summer week")

// ErrNoSchoolDates means no active kid has both school dates set, so the
// summer span cannot be derived at all.
var ErrNoSchoolDates = errors.New("no kid has both school dates set")

// OrphanedCandidacyWarning reports a candidacy whose week disappeared
// during recalculation. The candidacy is kept, flagged orphaned, so the
// family can re-place or delete it deliberately.
type OrphanedCandidacyWarning struct {
	CandidacyID int64     `json:"candidacy_id"`
	KidID       int64     `json:"kid_id"`
	SessionID   int64     `json:"session_id"`
	WeekStart   time.Time `json:"week_start"`
}

// WeekAvailability is a week projected for one kid: the week itself plus
// the trips that block it.
type WeekAvailability struct {
	Week          *models.Week   `json:"week"`
	Available     bool           `json:"available"`
	BlockingTrips []*models.Trip `json:"blocking_trips,omitempty"`
}

// buildWeeks derives the summer weeks from the kids' school dates.
//
// The summer starts on the Monday strictly after the earliest last day
// of school among active kids (a last day that is itself a Monday rolls
// to the next Monday), and ends on the Sunday before the latest first
// day of school. Weeks run Monday through Sunday.
func buildWeeks(kids []*models.Kid) ([]*models.Week, error) {
	var earliestLast, latestFirst *time.Time
	for _, kid := range kids {
		if !kid.Active || !kid.HasSchoolDates() {
			continue
		}
		if earliestLast == nil || kid.LastDayOfSchool.Before(*earliestLast) {
			earliestLast = kid.LastDayOfSchool
		}
		if latestFirst == nil || kid.FirstDayOfSchool.After(*latestFirst) {
			latestFirst = kid.FirstDayOfSchool
		}
	}
	if earliestLast == nil {
		return nil, ErrNoSchoolDates
	}

	start := nextMonday(*earliestLast)
	end := sundayBefore(*latestFirst)
	if end.Before(start.AddDate(0, 0, 6)) {
		return nil, ErrInvalidDateRange
	}

	var weeks []*models.Week
	number := 1
	for cur := start; !cur.AddDate(0, 0, 6).After(end); cur = cur.AddDate(0, 0, 7) {
		weeks = append(weeks, &models.Week{
			Number:    number,
			StartDate: cur,
			EndDate:   cur.AddDate(0, 0, 6),
		})
		number++
	}
	return weeks, nil
}

// nextMonday returns the first Monday strictly after d.
func nextMonday(d time.Time) time.Time {
	d = truncateDay(d)
	offset := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return d.AddDate(0, 0, offset)
}

// sundayBefore returns the last Sunday strictly before d.
func sundayBefore(d time.Time) time.Time {
	d = truncateDay(d)
	offset := (int(d.Weekday()) - int(time.Sunday) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return d.AddDate(0, 0, -offset)
}

func truncateDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// RecalculateWeeks rebuilds the week list from current school dates.
// Candidacies pointing at a week that survives (same start date) are
// re-pointed to the new row; the rest are flagged orphaned and reported.
func (s *Service) RecalculateWeeks(ctx context.Context) ([]*models.Week, []OrphanedCandidacyWarning, error) {
	kids, err := s.Kids.GetAll(ctx, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load kids: %w", err)
	}

	fresh, err := buildWeeks(kids)
	if err != nil {
		return nil, nil, err
	}

	oldWeeks, err := s.Weeks.GetAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load existing weeks: %w", err)
	}

	fresh, err = s.Weeks.ReplaceAll(ctx, fresh)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to replace weeks: %w", err)
	}

	// Map surviving old week IDs to the new IDs by start date.
	newByStart := make(map[time.Time]*models.Week, len(fresh))
	for _, w := range fresh {
		newByStart[truncateDay(w.StartDate)] = w
	}
	remap := make(map[int64]int64)
	lost := make(map[int64]*models.Week)
	for _, old := range oldWeeks {
		if nw, ok := newByStart[truncateDay(old.StartDate)]; ok {
			remap[old.ID] = nw.ID
		} else {
			lost[old.ID] = old
		}
	}

	if len(remap) > 0 {
		if err := s.Candidacies.UpdateWeekRefs(ctx, remap); err != nil {
			return nil, nil, fmt.Errorf("failed to re-point candidacies: %w", err)
		}
	}

	var warnings []OrphanedCandidacyWarning
	if len(lost) > 0 {
		lostIDs := make([]int64, 0, len(lost))
		for id := range lost {
			lostIDs = append(lostIDs, id)
		}
		sort.Slice(lostIDs, func(i, j int) bool { return lostIDs[i] < lostIDs[j] })

		all, err := s.Candidacies.GetAll(ctx, repository.CandidacyFilters{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load candidacies: %w", err)
		}
		orphanIDs := make([]int64, 0)
		var lostBookings []*models.Candidacy
		for _, c := range all {
			old, gone := lost[c.WeekID]
			// Superseded rows lose their week too; only rows that are
			// already orphaned stay as they are.
			if !gone || c.State == models.StateOrphaned {
				continue
			}
			if c.IsBooked() {
				lostBookings = append(lostBookings, c)
			}
			orphanIDs = append(orphanIDs, c.ID)
			warnings = append(warnings, OrphanedCandidacyWarning{
				CandidacyID: c.ID,
				KidID:       c.KidID,
				SessionID:   c.SessionID,
				WeekStart:   old.StartDate,
			})
		}
		if len(orphanIDs) > 0 {
			if err := s.Candidacies.MarkOrphaned(ctx, orphanIDs); err != nil {
				return nil, nil, fmt.Errorf("failed to mark orphaned candidacies: %w", err)
			}
			s.logger.WithField("count", len(orphanIDs)).Warn("candidacies orphaned by week recalculation")
		}
		// A booked candidacy leaving the week set also leaves the
		// external calendar.
		for _, c := range lostBookings {
			if err := s.enqueueBookingRetraction(ctx, c); err != nil {
				return nil, nil, err
			}
		}
	}

	return fresh, warnings, nil
}

// WeeksForKid projects the week list for one kid, marking each week
// unavailable when a trip involving the kid overlaps it.
func (s *Service) WeeksForKid(ctx context.Context, kidID int64) ([]WeekAvailability, error) {
	weeks, err := s.Weeks.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load weeks: %w", err)
	}
	trips, err := s.Trips.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}

	out := make([]WeekAvailability, 0, len(weeks))
	for _, w := range weeks {
		var blocking []*models.Trip
		for _, t := range trips {
			if t.AppliesTo(kidID) && t.Overlaps(w.StartDate, w.EndDate) {
				blocking = append(blocking, t)
			}
		}
		out = append(out, WeekAvailability{
			Week:          w,
			Available:     len(blocking) == 0,
			BlockingTrips: blocking,
		})
	}
	return out, nil
}
