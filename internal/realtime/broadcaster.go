package realtime

import (
	"encoding/json"
	"log/slog"

	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/model"
)

// Broadcaster publishes race events to subscribers. Events are relayed as
// they happen; throttling progress updates is the sender's job, not the
// engine's. All methods are fire-and-forget: a race with no subscribers
// broadcasts into the void without error.
type Broadcaster struct {
	hubManager *HubManager
	clock      clock.Clock
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, clock clock.Clock, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		clock:      clock,
		logger:     logger.With(slog.String("component", "broadcaster")),
	}
}

// ParticipantJoined announces a seat acquisition to the race
func (b *Broadcaster) ParticipantJoined(p *model.Participant, rejoined bool) {
	b.publish(p.RaceID, model.Event{
		Type:          model.EventParticipantJoined,
		RaceID:        p.RaceID,
		ParticipantID: p.ID,
		Payload: model.ParticipantJoinedPayload{
			Username:    p.Username,
			AvatarColor: p.AvatarColor,
			Rejoined:    rejoined,
		},
	})
}

// ParticipantLeft announces a seat release to the race
func (b *Broadcaster) ParticipantLeft(p *model.Participant) {
	b.publish(p.RaceID, model.Event{
		Type:          model.EventParticipantLeft,
		RaceID:        p.RaceID,
		ParticipantID: p.ID,
		Payload: model.ParticipantLeftPayload{
			Username: p.Username,
		},
	})
}

// CountdownStarted announces that the race is counting down
func (b *Broadcaster) CountdownStarted(raceID model.RaceID, durationSeconds int) {
	b.publish(raceID, model.Event{
		Type:   model.EventCountdownStarted,
		RaceID: raceID,
		Payload: model.CountdownStartedPayload{
			DurationSeconds: durationSeconds,
		},
	})
}

// RaceStarted announces that typing is live
func (b *Broadcaster) RaceStarted(raceID model.RaceID) {
	b.publish(raceID, model.Event{
		Type:   model.EventRaceStarted,
		RaceID: raceID,
	})
}

// Progress relays a participant's stats snapshot to the race
func (b *Broadcaster) Progress(p *model.Participant) {
	b.publish(p.RaceID, model.Event{
		Type:          model.EventProgress,
		RaceID:        p.RaceID,
		ParticipantID: p.ID,
		Payload: model.ProgressPayload{
			Username: p.Username,
			Progress: p.Stats.Progress,
			WPM:      p.Stats.WPM,
			Accuracy: p.Stats.Accuracy,
			Errors:   p.Stats.Errors,
		},
	})
}

// ParticipantFinished announces a finish and its assigned position
func (b *Broadcaster) ParticipantFinished(p *model.Participant, position int) {
	b.publish(p.RaceID, model.Event{
		Type:          model.EventParticipantFinished,
		RaceID:        p.RaceID,
		ParticipantID: p.ID,
		Payload: model.ParticipantFinishedPayload{
			Username: p.Username,
			Position: position,
			WPM:      p.Stats.WPM,
		},
	})
}

// RaceFinished announces the end of the race with final standings
func (b *Broadcaster) RaceFinished(raceID model.RaceID, standings []model.Standing) {
	b.publish(raceID, model.Event{
		Type:   model.EventRaceFinished,
		RaceID: raceID,
		Payload: model.RaceFinishedPayload{
			Standings: standings,
		},
	})
}

func (b *Broadcaster) publish(raceID model.RaceID, event model.Event) {
	hub := b.hubManager.GetHub(raceID)
	if hub == nil {
		return
	}

	event.Timestamp = b.clock.Now()
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to marshal event",
			slog.String("race_id", string(raceID)),
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		return
	}
	hub.Broadcast(data)
}

// Interface for dependency injection
type BroadcasterInterface interface {
	ParticipantJoined(p *model.Participant, rejoined bool)
	ParticipantLeft(p *model.Participant)
	CountdownStarted(raceID model.RaceID, durationSeconds int)
	RaceStarted(raceID model.RaceID)
	Progress(p *model.Participant)
	ParticipantFinished(p *model.Participant, position int)
	RaceFinished(raceID model.RaceID, standings []model.Standing)
}

var _ BroadcasterInterface = (*Broadcaster)(nil)
