package lifecycle

import (
	"context"
	"log/slog"

	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/locker"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/storage"
)

// Controller owns the race status state machine: a strict forward chain
// waiting -> countdown -> racing -> finished. Transition signals come from
// the room-policy layer (countdown start), the countdown timer (racing),
// and the finish arbiter or an explicit timeout (finished).
type Controller struct {
	storage storage.Storage
	locker  locker.RaceLocker
	clock   clock.Clock
	logger  *slog.Logger
}

// NewController creates a new lifecycle Controller
func NewController(
	storage storage.Storage,
	locker locker.RaceLocker,
	clock clock.Clock,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage: storage,
		locker:  locker,
		clock:   clock,
		logger:  logger.With(slog.String("component", "lifecycle")),
	}
}

// StartCountdown moves a waiting race into countdown
func (c *Controller) StartCountdown(ctx context.Context, raceID model.RaceID) (*model.Race, error) {
	return c.transition(ctx, raceID, model.RaceStatusCountdown)
}

// BeginRacing moves a counting-down race into racing and stamps StartedAt
func (c *Controller) BeginRacing(ctx context.Context, raceID model.RaceID) (*model.Race, error) {
	return c.transition(ctx, raceID, model.RaceStatusRacing)
}

// CompleteRace moves a racing race into finished and stamps FinishedAt.
// The race's lock entry is released afterwards; a finished race takes no
// further transitions, so the entry would otherwise sit in the map forever.
func (c *Controller) CompleteRace(ctx context.Context, raceID model.RaceID) (*model.Race, error) {
	race, err := c.transition(ctx, raceID, model.RaceStatusFinished)
	if err != nil {
		return nil, err
	}
	c.locker.Forget(raceID)
	return race, nil
}

// transition advances the race to next under the race lock. A repeated
// signal for the state the race is already in is a no-op, not an error;
// anything that would move backwards or skip a state is rejected.
func (c *Controller) transition(ctx context.Context, raceID model.RaceID, next model.RaceStatus) (*model.Race, error) {
	unlock := c.locker.Lock(raceID)
	defer unlock()

	race, err := c.storage.GetRace(ctx, raceID)
	if err != nil {
		return nil, err
	}

	if race.Status == next {
		return race, nil
	}
	if !race.Status.CanTransitionTo(next) {
		return nil, model.ErrInvalidTransition
	}

	now := c.clock.Now()
	race.Status = next
	switch next {
	case model.RaceStatusRacing:
		race.StartedAt = &now
	case model.RaceStatusFinished:
		race.FinishedAt = &now
	}

	if err := c.storage.SaveRace(ctx, race); err != nil {
		return nil, err
	}

	c.logger.Info("race status changed",
		slog.String("race_id", string(raceID)),
		slog.String("status", string(next)),
	)
	return race, nil
}

// Interface for dependency injection
type ControllerInterface interface {
	StartCountdown(ctx context.Context, raceID model.RaceID) (*model.Race, error)
	BeginRacing(ctx context.Context, raceID model.RaceID) (*model.Race, error)
	CompleteRace(ctx context.Context, raceID model.RaceID) (*model.Race, error)
}

var _ ControllerInterface = (*Controller)(nil)
