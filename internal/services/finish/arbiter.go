package finish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/locker"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/services/lifecycle"
	"github.com/typerush/typerush/internal/storage"
)

// maxConflictRetries bounds internal retries on transient store contention
const maxConflictRetries = 3

// Arbiter assigns finish positions. Positions come from the store's
// serialized counter increment, not from network arrival order, so results
// stay correct under reordering, retransmission, and client clock skew.
type Arbiter struct {
	storage   storage.Storage
	locker    locker.RaceLocker
	lifecycle lifecycle.ControllerInterface
	clock     clock.Clock
	logger    *slog.Logger
}

// NewArbiter creates a new finish Arbiter
func NewArbiter(
	storage storage.Storage,
	locker locker.RaceLocker,
	lifecycle lifecycle.ControllerInterface,
	clock clock.Clock,
	logger *slog.Logger,
) *Arbiter {
	return &Arbiter{
		storage:   storage,
		locker:    locker,
		lifecycle: lifecycle,
		clock:     clock,
		logger:    logger.With(slog.String("component", "finish")),
	}
}

// Finish records a participant's completion and returns their position.
// Idempotent: a retried or duplicate completion signal returns the
// already-assigned position and never consumes a second one. For any race
// the assigned positions are exactly {1..k} for k finishers, however the
// concurrent calls interleave. A first finish is only accepted while the
// race is racing; anything earlier is ErrRaceNotRacing.
func (a *Arbiter) Finish(ctx context.Context, id model.ParticipantID) (*model.FinishResult, error) {
	p, err := a.storage.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	var result *model.FinishResult
	err = a.withConflictRetry(func() error {
		unlock := a.locker.Lock(p.RaceID)
		defer unlock()

		var err error
		result, err = a.finishLocked(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.IsNewFinish {
		a.logger.Info("participant finished",
			slog.String("race_id", string(p.RaceID)),
			slog.String("participant_id", string(id)),
			slog.Int("position", result.Position),
		)
		// The transition takes the race lock itself, so it runs after
		// the locked section above.
		if _, err := a.CompleteIfAllFinished(ctx, p.RaceID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// finishLocked runs steps load / idempotency check / increment / write as
// one unit with the race lock held.
func (a *Arbiter) finishLocked(ctx context.Context, id model.ParticipantID) (*model.FinishResult, error) {
	p, err := a.storage.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.IsFinished && p.FinishPosition != nil {
		return &model.FinishResult{Position: *p.FinishPosition, IsNewFinish: false}, nil
	}

	// Positions only exist while the race is underway. A finish signal
	// before the start would consume a counter slot and leave a gap.
	race, err := a.storage.GetRace(ctx, p.RaceID)
	if err != nil {
		return nil, err
	}
	if race.Status != model.RaceStatusRacing {
		return nil, model.ErrRaceNotRacing
	}

	position, err := a.storage.IncrementFinishCounter(ctx, p.RaceID)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	p.IsFinished = true
	p.FinishPosition = &position
	p.FinishedAt = &now
	p.Stats.Progress = 100
	if err := a.storage.SaveParticipant(ctx, p); err != nil {
		return nil, err
	}

	return &model.FinishResult{Position: position, IsNewFinish: true}, nil
}

// CompleteIfAllFinished moves the race to finished once every active
// participant has finished, and reports whether it did. Also called after
// a mid-race leave, which can make the remaining field all-finished.
func (a *Arbiter) CompleteIfAllFinished(ctx context.Context, raceID model.RaceID) (bool, error) {
	race, err := a.storage.GetRace(ctx, raceID)
	if err != nil {
		return false, err
	}
	if race.Status != model.RaceStatusRacing {
		return false, nil
	}

	active, err := a.storage.GetParticipants(ctx, raceID, true)
	if err != nil {
		return false, err
	}
	if len(active) == 0 {
		return false, nil
	}
	for _, p := range active {
		if !p.IsFinished {
			return false, nil
		}
	}

	if _, err := a.lifecycle.CompleteRace(ctx, raceID); err != nil {
		return false, err
	}
	return true, nil
}

// Standings returns the race's finishers ordered by position. Finishers
// who later left the race are included; a finish is permanent.
func (a *Arbiter) Standings(ctx context.Context, raceID model.RaceID) ([]model.Standing, error) {
	participants, err := a.storage.GetParticipants(ctx, raceID, false)
	if err != nil {
		return nil, err
	}

	var standings []model.Standing
	for _, p := range participants {
		if p.FinishPosition == nil {
			continue
		}
		standings = append(standings, model.Standing{
			Username: p.Username,
			Position: *p.FinishPosition,
			WPM:      p.Stats.WPM,
			Accuracy: p.Stats.Accuracy,
		})
	}
	// Positions are small and unique; insertion sort keeps this simple
	for i := 1; i < len(standings); i++ {
		for j := i; j > 0 && standings[j].Position < standings[j-1].Position; j-- {
			standings[j], standings[j-1] = standings[j-1], standings[j]
		}
	}
	return standings, nil
}

// withConflictRetry retries fn a bounded number of times on transient
// store contention before surfacing the conflict to the caller.
func (a *Arbiter) withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
		}
		err = fn()
		if !errors.Is(err, model.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

// Interface for dependency injection
type ArbiterInterface interface {
	Finish(ctx context.Context, id model.ParticipantID) (*model.FinishResult, error)
	CompleteIfAllFinished(ctx context.Context, raceID model.RaceID) (bool, error)
	Standings(ctx context.Context, raceID model.RaceID) ([]model.Standing, error)
}

var _ ArbiterInterface = (*Arbiter)(nil)
