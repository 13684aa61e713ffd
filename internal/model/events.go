package model

import "time"

// EventType identifies the type of event broadcast to race subscribers
type EventType string

const (
	// Seat events
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"

	// Lifecycle events
	EventCountdownStarted EventType = "countdown_started"
	EventRaceStarted      EventType = "race_started"
	EventRaceFinished     EventType = "race_finished"

	// Racing events
	EventProgress            EventType = "progress"
	EventParticipantFinished EventType = "participant_finished"
)

// Event is the base structure for all broadcast events
type Event struct {
	Type          EventType     `json:"type"`
	Timestamp     time.Time     `json:"timestamp"`
	RaceID        RaceID        `json:"race_id"`
	ParticipantID ParticipantID `json:"participant_id,omitempty"`
	Payload       any           `json:"payload,omitempty"`
}

// ParticipantJoinedPayload contains data for participant joined events
type ParticipantJoinedPayload struct {
	Username    string `json:"username"`
	AvatarColor string `json:"avatar_color"`
	Rejoined    bool   `json:"rejoined"`
}

// ParticipantLeftPayload contains data for participant left events
type ParticipantLeftPayload struct {
	Username string `json:"username"`
}

// CountdownStartedPayload contains data for countdown started events
type CountdownStartedPayload struct {
	DurationSeconds int `json:"duration_seconds"`
}

// ProgressPayload contains a participant's live stats snapshot
type ProgressPayload struct {
	Username string  `json:"username"`
	Progress int     `json:"progress"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
	Errors   int     `json:"errors"`
}

// ParticipantFinishedPayload contains data for participant finished events
type ParticipantFinishedPayload struct {
	Username string  `json:"username"`
	Position int     `json:"position"`
	WPM      float64 `json:"wpm"`
}

// RaceFinishedPayload contains the final standings for a race
type RaceFinishedPayload struct {
	Standings []Standing `json:"standings"`
}

// Standing is one row of a race's final results
type Standing struct {
	Username string  `json:"username"`
	Position int     `json:"position"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}
