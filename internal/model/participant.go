package model

import "time"

// ParticipantID uniquely identifies a participant (one seat in one race)
type ParticipantID string

// Stats holds a participant's live typing statistics. They are overwritten
// on each update, not historical.
type Stats struct {
	Progress int     // 0-100
	WPM      float64 // Words per minute
	Accuracy float64 // 0-100
	Errors   int
}

// Participant represents one seat in a race, bound to a single identity.
// Seats are deactivated on disconnect rather than deleted, so the row's
// identity and any assigned finish position survive a reconnect.
type Participant struct {
	ID     ParticipantID
	RaceID RaceID

	Identity    Identity
	Username    string
	AvatarColor string

	Stats Stats

	IsFinished     bool
	FinishPosition *int // Set exactly once; nil until assigned

	// IsActive false means the seat is abandoned but reusable by the
	// same identity.
	IsActive bool

	// RejoinCount is how many times this seat has been reactivated
	RejoinCount int

	JoinedAt   time.Time
	FinishedAt *time.Time
}

// Reactivate marks an abandoned seat active again without touching the
// recorded result. Used when a finisher returns; their position is final.
func (p *Participant) Reactivate(now time.Time) {
	p.IsActive = true
	p.RejoinCount++
	p.JoinedAt = now
}

// ResetForRejoin reactivates the seat and clears the live stats and finish
// state so an unfinished attempt starts fresh.
func (p *Participant) ResetForRejoin(now time.Time) {
	p.Stats = Stats{}
	p.IsFinished = false
	p.FinishPosition = nil
	p.FinishedAt = nil
	p.Reactivate(now)
}

// FinishResult is the outcome of a finish call
type FinishResult struct {
	Position    int
	IsNewFinish bool
}
