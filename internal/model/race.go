package model

import "time"

// RaceID uniquely identifies a race
type RaceID string

// RoomCode is a short human-shareable identifier for joining races
type RoomCode string

// RaceStatus represents the current phase of a race
type RaceStatus string

const (
	RaceStatusWaiting   RaceStatus = "waiting"   // Lobby open, accepting joins
	RaceStatusCountdown RaceStatus = "countdown" // Start signal received, countdown running
	RaceStatusRacing    RaceStatus = "racing"    // Typing in progress
	RaceStatusFinished  RaceStatus = "finished"  // Terminal
)

// CanTransitionTo reports whether moving from s to next is a legal step.
// The lifecycle is a strict forward chain; no transition reverts or skips.
func (s RaceStatus) CanTransitionTo(next RaceStatus) bool {
	switch s {
	case RaceStatusWaiting:
		return next == RaceStatusCountdown
	case RaceStatusCountdown:
		return next == RaceStatusRacing
	case RaceStatusRacing:
		return next == RaceStatusFinished
	default:
		return false
	}
}

// Race represents a single shared typing contest
type Race struct {
	ID       RaceID
	RoomCode RoomCode
	Status   RaceStatus

	// ParagraphContent is snapshotted at creation; later content edits
	// never affect an in-progress race.
	ParagraphContent string

	MaxPlayers int
	IsPrivate  bool

	// FinishCounter is the source of finish-position truth. It never
	// decreases and is incremented exactly once per newly finishing
	// participant.
	FinishCounter int

	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// IsJoinable reports whether the race accepts new seats at all.
// Capacity is checked separately against the active participant count.
func (r *Race) IsJoinable() bool {
	return r.Status == RaceStatusWaiting
}

// IsTerminal reports whether the race has ended
func (r *Race) IsTerminal() bool {
	return r.Status == RaceStatusFinished
}

// RaceSpec holds the parameters for creating a race
type RaceSpec struct {
	MaxPlayers       int
	IsPrivate        bool
	ParagraphContent string
}
