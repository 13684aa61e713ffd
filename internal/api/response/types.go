package response

import (
	"time"

	"github.com/typerush/typerush/internal/model"
)

// Session is the response for authentication endpoints
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	IsGuest   bool      `json:"is_guest"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionFromModel converts a model.Session
func SessionFromModel(s *model.Session) Session {
	return Session{
		Token:     string(s.Token),
		Username:  s.Username,
		IsGuest:   s.Identity.Kind == model.IdentityKindGuest,
		UserID:    string(s.Identity.UserID),
		ExpiresAt: s.ExpiresAt,
	}
}

// Participant represents one seat in API responses
type Participant struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	AvatarColor    string     `json:"avatar_color"`
	Progress       int        `json:"progress"`
	WPM            float64    `json:"wpm"`
	Accuracy       float64    `json:"accuracy"`
	Errors         int        `json:"errors"`
	IsFinished     bool       `json:"is_finished"`
	FinishPosition *int       `json:"finish_position,omitempty"`
	IsActive       bool       `json:"is_active"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// ParticipantFromModel converts a model.Participant
func ParticipantFromModel(p *model.Participant) Participant {
	return Participant{
		ID:             string(p.ID),
		Username:       p.Username,
		AvatarColor:    p.AvatarColor,
		Progress:       p.Stats.Progress,
		WPM:            p.Stats.WPM,
		Accuracy:       p.Stats.Accuracy,
		Errors:         p.Stats.Errors,
		IsFinished:     p.IsFinished,
		FinishPosition: p.FinishPosition,
		IsActive:       p.IsActive,
		FinishedAt:     p.FinishedAt,
	}
}

// Race represents a race in API responses
type Race struct {
	ID           string        `json:"id"`
	RoomCode     string        `json:"room_code"`
	Status       string        `json:"status"`
	Paragraph    string        `json:"paragraph"`
	MaxPlayers   int           `json:"max_players"`
	Private      bool          `json:"private"`
	Participants []Participant `json:"participants,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// RaceFromModel converts a model.Race with its participants
func RaceFromModel(r *model.Race, participants []*model.Participant) Race {
	resp := Race{
		ID:         string(r.ID),
		RoomCode:   string(r.RoomCode),
		Status:     string(r.Status),
		Paragraph:  r.ParagraphContent,
		MaxPlayers: r.MaxPlayers,
		Private:    r.IsPrivate,
		CreatedAt:  r.CreatedAt,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, ParticipantFromModel(p))
	}
	return resp
}

// JoinResponse pairs a race with the caller's seat
type JoinResponse struct {
	Race        Race        `json:"race"`
	Participant Participant `json:"participant"`
}

// FinishResponse is the response after a finish signal
type FinishResponse struct {
	Position    int  `json:"position"`
	IsNewFinish bool `json:"is_new_finish"`
}

// StandingsResponse holds a race's final results
type StandingsResponse struct {
	Standings []model.Standing `json:"standings"`
}
