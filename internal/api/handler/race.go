package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/typerush/typerush/internal/api/apierr"
	"github.com/typerush/typerush/internal/api/middleware"
	"github.com/typerush/typerush/internal/api/request"
	"github.com/typerush/typerush/internal/api/response"
	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/metrics"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/realtime"
	"github.com/typerush/typerush/internal/services/finish"
	"github.com/typerush/typerush/internal/services/lifecycle"
	"github.com/typerush/typerush/internal/services/matchmaker"
	"github.com/typerush/typerush/internal/services/participant"
	"github.com/typerush/typerush/internal/storage"
)

// RaceHandler handles race endpoints and the realtime streams hanging off
// them
type RaceHandler struct {
	storage      storage.Storage
	matchmaker   matchmaker.ServiceInterface
	participants participant.ManagerInterface
	lifecycle    lifecycle.ControllerInterface
	arbiter      finish.ArbiterInterface
	hubManager   *realtime.HubManager
	broadcaster  realtime.BroadcasterInterface
	metrics      *metrics.Metrics
	clock        clock.Clock
	logger       *slog.Logger

	countdownSeconds int
}

// RaceHandlerConfig holds the dependencies for a RaceHandler
type RaceHandlerConfig struct {
	Storage          storage.Storage
	Matchmaker       matchmaker.ServiceInterface
	Participants     participant.ManagerInterface
	Lifecycle        lifecycle.ControllerInterface
	Arbiter          finish.ArbiterInterface
	HubManager       *realtime.HubManager
	Broadcaster      realtime.BroadcasterInterface
	Metrics          *metrics.Metrics
	Clock            clock.Clock
	Logger           *slog.Logger
	CountdownSeconds int
}

// NewRaceHandler creates a new race handler
func NewRaceHandler(cfg RaceHandlerConfig) *RaceHandler {
	return &RaceHandler{
		storage:          cfg.Storage,
		matchmaker:       cfg.Matchmaker,
		participants:     cfg.Participants,
		lifecycle:        cfg.Lifecycle,
		arbiter:          cfg.Arbiter,
		hubManager:       cfg.HubManager,
		broadcaster:      cfg.Broadcaster,
		metrics:          cfg.Metrics,
		clock:            cfg.Clock,
		logger:           cfg.Logger.With(slog.String("component", "race-handler")),
		countdownSeconds: cfg.CountdownSeconds,
	}
}

// Ensure the handler can back a websocket connection
var _ realtime.MessageSink = (*RaceHandler)(nil)

// QuickMatch handles POST /api/v1/races/quickmatch
func (h *RaceHandler) QuickMatch(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	race, p, err := h.matchmaker.QuickMatch(r.Context(), session.Identity, session.Username)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	h.afterSeatAcquired(race, p)
	response.JSON(w, http.StatusOK, h.joinResponse(r.Context(), race, p))
}

// Create handles POST /api/v1/races
func (h *RaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	var req request.CreateRaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Allow empty body for defaults
		req = request.CreateRaceRequest{}
	}

	spec := model.RaceSpec{MaxPlayers: req.MaxPlayers, IsPrivate: req.Private}
	race, p, err := h.matchmaker.CreateRace(r.Context(), spec, session.Identity, session.Username)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	h.afterSeatAcquired(race, p)
	response.JSON(w, http.StatusCreated, h.joinResponse(r.Context(), race, p))
}

// Get handles GET /api/v1/races/{code}
func (h *RaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	race, err := h.raceFromPath(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	participants, err := h.storage.GetParticipants(r.Context(), race.ID, false)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RaceFromModel(race, participants))
}

// Join handles POST /api/v1/races/{code}/join
func (h *RaceHandler) Join(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	code := model.RoomCode(mux.Vars(r)["code"])

	race, p, err := h.matchmaker.JoinByCode(r.Context(), code, session.Identity, session.Username)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	h.afterSeatAcquired(race, p)
	response.JSON(w, http.StatusOK, h.joinResponse(r.Context(), race, p))
}

// Leave handles POST /api/v1/races/{code}/leave
func (h *RaceHandler) Leave(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	race, p, err := h.ownSeat(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	released, err := h.participants.ReleaseSeat(r.Context(), p.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	h.metrics.SeatReleased()
	h.broadcaster.ParticipantLeft(released)
	h.logger.Info("seat released",
		slog.String("race_id", string(race.ID)),
		slog.String("identity", session.Identity.Key()),
	)

	// A mid-race leave can leave only finishers behind
	if completed, err := h.arbiter.CompleteIfAllFinished(r.Context(), race.ID); err == nil && completed {
		h.announceRaceFinished(r.Context(), race.ID)
	}

	response.NoContent(w)
}

// Start handles POST /api/v1/races/{code}/start
func (h *RaceHandler) Start(w http.ResponseWriter, r *http.Request) {
	race, _, err := h.ownSeat(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	updated, err := h.lifecycle.StartCountdown(r.Context(), race.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	h.broadcaster.CountdownStarted(race.ID, h.countdownSeconds)
	h.scheduleRaceStart(race.ID)

	response.JSON(w, http.StatusOK, response.RaceFromModel(updated, nil))
}

// Progress handles POST /api/v1/races/{code}/progress
func (h *RaceHandler) Progress(w http.ResponseWriter, r *http.Request) {
	_, p, err := h.ownSeat(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	var req request.ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.HandleProgress(r.Context(), p.ID, model.Stats{
		Progress: req.Progress,
		WPM:      req.WPM,
		Accuracy: req.Accuracy,
		Errors:   req.Errors,
	}); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Finish handles POST /api/v1/races/{code}/finish
func (h *RaceHandler) Finish(w http.ResponseWriter, r *http.Request) {
	_, p, err := h.ownSeat(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	result, err := h.finish(r.Context(), p.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.FinishResponse{
		Position:    result.Position,
		IsNewFinish: result.IsNewFinish,
	})
}

// Standings handles GET /api/v1/races/{code}/standings
func (h *RaceHandler) Standings(w http.ResponseWriter, r *http.Request) {
	race, err := h.raceFromPath(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	standings, err := h.arbiter.Standings(r.Context(), race.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StandingsResponse{Standings: standings})
}

// Events handles GET /api/v1/races/{code}/events (SSE stream)
func (h *RaceHandler) Events(w http.ResponseWriter, r *http.Request) {
	race, err := h.raceFromPath(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	var participantID model.ParticipantID
	if session := middleware.GetSession(r.Context()); session != nil {
		if p, err := h.storage.FindParticipant(r.Context(), race.ID, session.Identity); err == nil {
			participantID = p.ID
		}
	}

	hub := h.hubManager.GetOrCreateHub(race.ID)
	h.metrics.SubscriberConnected()
	defer h.metrics.SubscriberDisconnected()
	realtime.ServeSSE(w, r, hub, participantID)
}

// Websocket handles GET /api/v1/races/{code}/ws
func (h *RaceHandler) Websocket(w http.ResponseWriter, r *http.Request) {
	_, p, err := h.ownSeat(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	hub := h.hubManager.GetOrCreateHub(p.RaceID)
	h.metrics.SubscriberConnected()
	defer h.metrics.SubscriberDisconnected()
	realtime.ServeWS(w, r, hub, p.ID, h, h.logger)
}

// HandleProgress applies and relays a progress update. Updates after a
// finish are accepted and discarded; the frozen stats win.
func (h *RaceHandler) HandleProgress(ctx context.Context, participantID model.ParticipantID, stats model.Stats) error {
	p, err := h.participants.UpdateProgress(ctx, participantID, stats)
	if err != nil {
		return err
	}
	if !p.IsFinished {
		h.broadcaster.Progress(p)
	}
	return nil
}

// HandleFinish records a finish signal arriving over the websocket
func (h *RaceHandler) HandleFinish(ctx context.Context, participantID model.ParticipantID) error {
	_, err := h.finish(ctx, participantID)
	return err
}

func (h *RaceHandler) finish(ctx context.Context, participantID model.ParticipantID) (*model.FinishResult, error) {
	result, err := h.arbiter.Finish(ctx, participantID)
	if err != nil {
		return nil, err
	}

	if result.IsNewFinish {
		h.metrics.FinishRecorded()
		if p, err := h.storage.GetParticipant(ctx, participantID); err == nil {
			h.broadcaster.ParticipantFinished(p, result.Position)

			race, err := h.storage.GetRace(ctx, p.RaceID)
			if err == nil && race.IsTerminal() {
				h.announceRaceFinished(ctx, race.ID)
			}
		}
	}
	return result, nil
}

// scheduleRaceStart moves countdown to racing after the configured delay
func (h *RaceHandler) scheduleRaceStart(raceID model.RaceID) {
	h.clock.AfterFunc(time.Duration(h.countdownSeconds)*time.Second, func() {
		ctx := context.Background()
		if _, err := h.lifecycle.BeginRacing(ctx, raceID); err != nil {
			h.logger.Error("failed to begin racing after countdown",
				slog.String("race_id", string(raceID)),
				slog.Any("error", err))
			return
		}
		h.broadcaster.RaceStarted(raceID)
	})
}

func (h *RaceHandler) announceRaceFinished(ctx context.Context, raceID model.RaceID) {
	h.metrics.RaceFinished()
	standings, err := h.arbiter.Standings(ctx, raceID)
	if err != nil {
		h.logger.Error("failed to load standings",
			slog.String("race_id", string(raceID)),
			slog.Any("error", err))
		return
	}
	h.broadcaster.RaceFinished(raceID, standings)
}

func (h *RaceHandler) afterSeatAcquired(_ *model.Race, p *model.Participant) {
	h.metrics.SeatAcquired()
	h.broadcaster.ParticipantJoined(p, p.RejoinCount > 0)
}

func (h *RaceHandler) joinResponse(ctx context.Context, race *model.Race, p *model.Participant) response.JoinResponse {
	participants, err := h.storage.GetParticipants(ctx, race.ID, false)
	if err != nil {
		participants = nil
	}
	return response.JoinResponse{
		Race:        response.RaceFromModel(race, participants),
		Participant: response.ParticipantFromModel(p),
	}
}

// raceFromPath loads the race named by the {code} path variable
func (h *RaceHandler) raceFromPath(r *http.Request) (*model.Race, error) {
	code := model.RoomCode(mux.Vars(r)["code"])
	return h.storage.GetRaceByCode(r.Context(), code)
}

// ownSeat resolves the caller's participant row in the race from the path
func (h *RaceHandler) ownSeat(r *http.Request) (*model.Race, *model.Participant, error) {
	session := middleware.MustGetSession(r.Context())

	race, err := h.raceFromPath(r)
	if err != nil {
		return nil, nil, err
	}

	p, err := h.storage.FindParticipant(r.Context(), race.ID, session.Identity)
	if err != nil {
		if errors.Is(err, model.ErrParticipantNotFound) {
			return nil, nil, model.ErrNotInRace
		}
		return nil, nil, err
	}
	return race, p, nil
}
