package models

import "time"

// Conflict flags a registration-timing problem on a kid's shortlist: a
// higher-ranked choice whose registration opens later than a lower-ranked
// one, meaning the fallback may sell out before the favorite can even be
// attempted. Advisory output only; nothing in the ledger is mutated.
type Conflict struct {
	KidID           int64         `json:"kid_id"`
	WeekID          int64         `json:"week_id"`
	HigherRank      int           `json:"higher_rank"`
	HigherSessionID int64         `json:"higher_session_id"`
	LowerRank       int           `json:"lower_rank"`
	LowerSessionID  int64         `json:"lower_session_id"`
	Gap             time.Duration `json:"gap"`
}
