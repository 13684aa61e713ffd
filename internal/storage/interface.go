package storage

import (
	"context"

	"github.com/typerush/typerush/internal/model"
)

// Storage defines the interface for data persistence.
//
// Callers that read-modify-write race-scoped state (seat acquisition, finish
// arbitration) serialize on the race via locker.RaceLocker; the storage
// itself only guarantees that individual operations are atomic.
type Storage interface {
	// Race operations
	SaveRace(ctx context.Context, race *model.Race) error
	GetRace(ctx context.Context, id model.RaceID) (*model.Race, error)
	GetRaceByCode(ctx context.Context, code model.RoomCode) (*model.Race, error)
	// ListJoinableRaces returns public races still in the waiting state
	ListJoinableRaces(ctx context.Context) ([]*model.Race, error)
	RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error)

	// Participant operations
	SaveParticipant(ctx context.Context, p *model.Participant) error
	GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error)
	// GetParticipants returns a race's participants, optionally only active seats
	GetParticipants(ctx context.Context, raceID model.RaceID, activeOnly bool) ([]*model.Participant, error)
	// FindParticipant looks up the seat bound to an identity in a race,
	// active or not. Returns model.ErrParticipantNotFound if no seat exists.
	FindParticipant(ctx context.Context, raceID model.RaceID, identity model.Identity) (*model.Participant, error)

	// IncrementFinishCounter atomically increments a race's finish counter
	// and returns the new value
	IncrementFinishCounter(ctx context.Context, raceID model.RaceID) (int, error)

	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}
