package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/dependencies/random"
	"github.com/typerush/typerush/internal/metrics"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/services/content"
	"github.com/typerush/typerush/internal/services/participant"
	"github.com/typerush/typerush/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6

	// roomCodeAlphabet omits 0/O/1/I to keep codes unambiguous when
	// read aloud or typed from a screenshot
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// maxCodeAttempts bounds room code generation retries on collision
	maxCodeAttempts = 10

	// DefaultMaxPlayers is the seat capacity when a spec doesn't set one
	DefaultMaxPlayers = 5
)

// Service places players into races: either the first public race with a
// free seat, or a freshly created one.
type Service struct {
	storage      storage.Storage
	content      content.Provider
	participants participant.ManagerInterface
	clock        clock.Clock
	random       random.Random
	metrics      *metrics.Metrics
	logger       *slog.Logger

	maxPlayers int
}

// NewService creates a new matchmaker Service. defaultMaxPlayers is the
// seat capacity for races whose spec doesn't set one; values <= 0 fall
// back to DefaultMaxPlayers.
func NewService(
	storage storage.Storage,
	content content.Provider,
	participants participant.ManagerInterface,
	clock clock.Clock,
	random random.Random,
	defaultMaxPlayers int,
	metrics *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if defaultMaxPlayers <= 0 {
		defaultMaxPlayers = DefaultMaxPlayers
	}
	return &Service{
		storage:      storage,
		content:      content,
		participants: participants,
		clock:        clock,
		random:       random,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "matchmaker")),
		maxPlayers:   defaultMaxPlayers,
	}
}

// QuickMatch seats the player in the first public waiting race with a free
// seat, creating a new public race when none accepts them. Losing a seat
// race in one lobby just moves on to the next candidate.
func (s *Service) QuickMatch(ctx context.Context, identity model.Identity, username string) (*model.Race, *model.Participant, error) {
	races, err := s.storage.ListJoinableRaces(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, race := range races {
		p, err := s.participants.AcquireSeat(ctx, race, identity, username)
		if err == nil {
			return race, p, nil
		}
		if errors.Is(err, model.ErrRaceFull) || errors.Is(err, model.ErrRaceAlreadyStarted) {
			continue
		}
		return nil, nil, err
	}

	return s.createAndJoin(ctx, model.RaceSpec{MaxPlayers: s.maxPlayers}, identity, username)
}

// CreateRace creates a race from spec and seats the creator in it. The
// paragraph is snapshotted before the race record exists, so a content
// outage never leaves a half-created race behind.
func (s *Service) CreateRace(ctx context.Context, spec model.RaceSpec, identity model.Identity, username string) (*model.Race, *model.Participant, error) {
	return s.createAndJoin(ctx, spec, identity, username)
}

// JoinByCode seats the player in the race with the given room code
func (s *Service) JoinByCode(ctx context.Context, code model.RoomCode, identity model.Identity, username string) (*model.Race, *model.Participant, error) {
	race, err := s.storage.GetRaceByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.participants.AcquireSeat(ctx, race, identity, username)
	if err != nil {
		return nil, nil, err
	}
	return race, p, nil
}

func (s *Service) createAndJoin(ctx context.Context, spec model.RaceSpec, identity model.Identity, username string) (*model.Race, *model.Participant, error) {
	race, err := s.createRace(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.participants.AcquireSeat(ctx, race, identity, username)
	if err != nil {
		return nil, nil, err
	}
	return race, p, nil
}

func (s *Service) createRace(ctx context.Context, spec model.RaceSpec) (*model.Race, error) {
	text := spec.ParagraphContent
	if text == "" {
		var err error
		text, err = s.content.RaceText(ctx)
		if err != nil {
			return nil, err
		}
	}

	code, err := s.generateRoomCode(ctx)
	if err != nil {
		return nil, err
	}

	maxPlayers := spec.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = s.maxPlayers
	}

	race := &model.Race{
		ID:               model.RaceID(uuid.NewString()),
		RoomCode:         code,
		Status:           model.RaceStatusWaiting,
		ParagraphContent: text,
		MaxPlayers:       maxPlayers,
		IsPrivate:        spec.IsPrivate,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.storage.SaveRace(ctx, race); err != nil {
		return nil, err
	}
	s.metrics.RaceCreated()

	s.logger.Info("race created",
		slog.String("race_id", string(race.ID)),
		slog.String("room_code", string(race.RoomCode)),
		slog.Bool("private", race.IsPrivate),
		slog.Int("max_players", race.MaxPlayers),
	)
	return race, nil
}

func (s *Service) generateRoomCode(ctx context.Context) (model.RoomCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := model.RoomCode(s.random.String(RoomCodeLength, roomCodeAlphabet))
		exists, err := s.storage.RoomCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique room code after %d attempts", maxCodeAttempts)
}

// Interface for dependency injection
type ServiceInterface interface {
	QuickMatch(ctx context.Context, identity model.Identity, username string) (*model.Race, *model.Participant, error)
	CreateRace(ctx context.Context, spec model.RaceSpec, identity model.Identity, username string) (*model.Race, *model.Participant, error)
	JoinByCode(ctx context.Context, code model.RoomCode, identity model.Identity, username string) (*model.Race, *model.Participant, error)
}

var _ ServiceInterface = (*Service)(nil)
