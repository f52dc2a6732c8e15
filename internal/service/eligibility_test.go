package service

import (
	"testing"
	"time"

	"github.com/mledder/camplan/internal/models"
)

func intp(v int) *int { return &v }

func TestCheckEligibility(t *testing.T) {
	// Born July 1, 2017: eight years old at a session starting
	// July 7, 2025, but still seven at one starting June 16, 2025.
	kid := &models.Kid{
		Birthdate: date(2017, time.July, 1),
		Grade:     intp(2),
	}

	tests := []struct {
		name    string
		kid     *models.Kid
		session *models.Session
		want    Eligibility
	}{
		{
			name:    "no windows accepts everyone",
			kid:     kid,
			session: &models.Session{StartDate: date(2025, time.July, 7)},
			want:    Eligible,
		},
		{
			name: "age inside window",
			kid:  kid,
			session: &models.Session{
				StartDate: date(2025, time.July, 7),
				AgeMin:    intp(7), AgeMax: intp(10),
			},
			want: Eligible,
		},
		{
			name: "too young as of session start",
			kid:  kid,
			session: &models.Session{
				StartDate: date(2025, time.June, 16),
				AgeMin:    intp(8),
			},
			want: IneligibleAge,
		},
		{
			name: "old enough by a later session start",
			kid:  kid,
			session: &models.Session{
				StartDate: date(2025, time.July, 7),
				AgeMin:    intp(8),
			},
			want: Eligible,
		},
		{
			name: "too old",
			kid:  kid,
			session: &models.Session{
				StartDate: date(2025, time.July, 7),
				AgeMax:    intp(6),
			},
			want: IneligibleAge,
		},
		{
			name: "grade below window",
			kid:  kid,
			session: &models.Session{
				StartDate: date(2025, time.July, 7),
				GradeMin:  intp(3), GradeMax: intp(5),
			},
			want: IneligibleGrade,
		},
		{
			name: "grade window without grade on file",
			kid: &models.Kid{
				Birthdate: date(2017, time.July, 1),
			},
			session: &models.Session{
				StartDate: date(2025, time.July, 7),
				GradeMin:  intp(1), GradeMax: intp(5),
			},
			want: EligibilityUnknown,
		},
		{
			name: "age check runs before the unknown grade",
			kid: &models.Kid{
				Birthdate: date(2017, time.July, 1),
			},
			session: &models.Session{
				StartDate: date(2025, time.July, 7),
				AgeMin:    intp(12),
				GradeMin:  intp(1),
			},
			want: IneligibleAge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckEligibility(tt.kid, tt.session); got != tt.want {
				t.Errorf("CheckEligibility() = %s, want %s", got, tt.want)
			}
		})
	}
}
