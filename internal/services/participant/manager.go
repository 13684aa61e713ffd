package participant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/dependencies/random"
	"github.com/typerush/typerush/internal/locker"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/storage"
)

// avatarColors is the palette assigned round-robin-by-chance to new seats
var avatarColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}

// maxConflictRetries bounds internal retries on transient store contention
const maxConflictRetries = 3

// Manager resolves a caller identity to a participant row: fresh joins,
// rejoining an abandoned seat, and capacity enforcement.
type Manager struct {
	storage storage.Storage
	locker  locker.RaceLocker
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewManager creates a new participant Manager
func NewManager(
	storage storage.Storage,
	locker locker.RaceLocker,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		storage: storage,
		locker:  locker,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "participant")),
	}
}

// AcquireSeat obtains a seat for the identity in the race. The whole
// lookup-reactivate-or-insert sequence runs under the per-race lock so
// concurrent joins cannot overshoot capacity or double-seat an identity.
// New seats are only handed out while the race is waiting; an existing
// seat may be reactivated any time before the race ends, so a dropped
// connection can come back mid-race.
func (m *Manager) AcquireSeat(ctx context.Context, race *model.Race, identity model.Identity, username string) (*model.Participant, error) {
	var seat *model.Participant
	err := m.withConflictRetry(func() error {
		unlock := m.locker.Lock(race.ID)
		defer unlock()

		var err error
		seat, err = m.acquireSeatLocked(ctx, race, identity, username)
		return err
	})
	return seat, err
}

// acquireSeatLocked runs with the race lock held
func (m *Manager) acquireSeatLocked(ctx context.Context, race *model.Race, identity model.Identity, username string) (*model.Participant, error) {
	// The caller's copy of the race may predate a start signal. Reload
	// under the lock so joinability is judged against the current status.
	current, err := m.storage.GetRace(ctx, race.ID)
	if err != nil {
		return nil, err
	}

	existing, err := m.storage.FindParticipant(ctx, current.ID, identity)
	if err != nil && !errors.Is(err, model.ErrParticipantNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.IsActive {
			// Idempotent re-join, e.g. a duplicate client request
			return existing, nil
		}
		if current.IsTerminal() {
			return nil, model.ErrRaceAlreadyStarted
		}

		// Reactivate the abandoned seat in place. This preserves the row
		// so a reconnecting player does not count twice against capacity.
		// A finished seat keeps its position and frozen stats; only an
		// unfinished attempt starts over.
		if existing.IsFinished {
			existing.Reactivate(m.clock.Now())
		} else {
			existing.ResetForRejoin(m.clock.Now())
		}
		if err := m.storage.SaveParticipant(ctx, existing); err != nil {
			return nil, err
		}
		m.logger.Info("seat reactivated",
			slog.String("race_id", string(current.ID)),
			slog.String("participant_id", string(existing.ID)),
		)
		return existing, nil
	}

	if !current.IsJoinable() {
		return nil, model.ErrRaceAlreadyStarted
	}

	active, err := m.storage.GetParticipants(ctx, current.ID, true)
	if err != nil {
		return nil, err
	}
	if len(active) >= current.MaxPlayers {
		return nil, model.ErrRaceFull
	}

	seat := &model.Participant{
		ID:          model.ParticipantID(uuid.NewString()),
		RaceID:      current.ID,
		Identity:    identity,
		Username:    username,
		AvatarColor: avatarColors[m.random.Intn(len(avatarColors))],
		IsActive:    true,
		JoinedAt:    m.clock.Now(),
	}
	if err := m.storage.SaveParticipant(ctx, seat); err != nil {
		return nil, err
	}

	m.logger.Info("seat acquired",
		slog.String("race_id", string(current.ID)),
		slog.String("participant_id", string(seat.ID)),
		slog.String("username", username),
		slog.Int("active_count", len(active)+1),
	)
	return seat, nil
}

// ReleaseSeat deactivates a seat. The row is never deleted: finish
// positions must survive a disconnect, and the same identity may rejoin.
func (m *Manager) ReleaseSeat(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	p, err := m.storage.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return p, nil
	}

	p.IsActive = false
	if err := m.storage.SaveParticipant(ctx, p); err != nil {
		return nil, err
	}

	m.logger.Info("seat released",
		slog.String("race_id", string(p.RaceID)),
		slog.String("participant_id", string(id)),
	)
	return p, nil
}

// UpdateProgress overwrites a participant's live stats. Late or reordered
// updates are harmless: the latest snapshot wins and the next update
// corrects any staleness.
func (m *Manager) UpdateProgress(ctx context.Context, id model.ParticipantID, stats model.Stats) (*model.Participant, error) {
	p, err := m.storage.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsFinished {
		// Finished stats are frozen by the arbiter
		return p, nil
	}

	p.Stats = stats
	if err := m.storage.SaveParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ActiveCount returns the number of active seats in a race
func (m *Manager) ActiveCount(ctx context.Context, raceID model.RaceID) (int, error) {
	active, err := m.storage.GetParticipants(ctx, raceID, true)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// withConflictRetry retries fn a bounded number of times on transient
// store contention before surfacing the conflict to the caller.
func (m *Manager) withConflictRetry(fn func() error) error {
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
type ManagerInterface interface {
	AcquireSeat(ctx context.Context, race *model.Race, identity model.Identity, username string) (*model.Participant, error)
	ReleaseSeat(ctx context.Context, id model.ParticipantID) (*model.Participant, error)
	UpdateProgress(ctx context.Context, id model.ParticipantID, stats model.Stats) (*model.Participant, error)
	ActiveCount(ctx context.Context, raceID model.RaceID) (int, error)
}

var _ ManagerInterface = (*Manager)(nil)
