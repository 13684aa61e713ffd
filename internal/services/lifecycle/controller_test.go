package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/typerush/typerush/internal/dependencies/mocks"
	"github.com/typerush/typerush/internal/locker"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/storage/memory"
	"github.com/typerush/typerush/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.controller = NewController(s.storage, locker.New(), s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ControllerSuite) makeRace(status model.RaceStatus) *model.Race {
	race := &model.Race{
		ID:               "race-1",
		RoomCode:         "ABC123",
		Status:           status,
		ParagraphContent: "text",
		MaxPlayers:       4,
		CreatedAt:        s.clock.Now(),
	}
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))
	return race
}

func (s *ControllerSuite) TestFullForwardChain() {
	s.makeRace(model.RaceStatusWaiting)

	race, err := s.controller.StartCountdown(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(model.RaceStatusCountdown, race.Status)

	s.clock.Advance(5 * time.Second)
	race, err = s.controller.BeginRacing(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(model.RaceStatusRacing, race.Status)
	s.Require().NotNil(race.StartedAt)
	s.Equal(s.clock.Now(), *race.StartedAt)

	s.clock.Advance(90 * time.Second)
	race, err = s.controller.CompleteRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(model.RaceStatusFinished, race.Status)
	s.Require().NotNil(race.FinishedAt)
	s.Equal(s.clock.Now(), *race.FinishedAt)
}

func (s *ControllerSuite) TestTransitionPersisted() {
	s.makeRace(model.RaceStatusWaiting)

	_, err := s.controller.StartCountdown(s.ctx, "race-1")
	s.Require().NoError(err)

	race, err := s.storage.GetRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(model.RaceStatusCountdown, race.Status)
}

func (s *ControllerSuite) TestCannotSkipCountdown() {
	s.makeRace(model.RaceStatusWaiting)

	_, err := s.controller.BeginRacing(s.ctx, "race-1")
	s.ErrorIs(err, model.ErrInvalidTransition)

	_, err = s.controller.CompleteRace(s.ctx, "race-1")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *ControllerSuite) TestCannotRevert() {
	s.makeRace(model.RaceStatusRacing)

	_, err := s.controller.StartCountdown(s.ctx, "race-1")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *ControllerSuite) TestFinishedIsTerminal() {
	s.makeRace(model.RaceStatusFinished)

	_, err := s.controller.StartCountdown(s.ctx, "race-1")
	s.ErrorIs(err, model.ErrInvalidTransition)
	_, err = s.controller.BeginRacing(s.ctx, "race-1")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *ControllerSuite) TestRepeatedSignalIsNoOp() {
	s.makeRace(model.RaceStatusWaiting)

	first, err := s.controller.StartCountdown(s.ctx, "race-1")
	s.Require().NoError(err)

	second, err := s.controller.StartCountdown(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(first.Status, second.Status)
}

func (s *ControllerSuite) TestRepeatedCompleteKeepsFirstTimestamp() {
	s.makeRace(model.RaceStatusRacing)

	first, err := s.controller.CompleteRace(s.ctx, "race-1")
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	second, err := s.controller.CompleteRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(*first.FinishedAt, *second.FinishedAt)
}

func (s *ControllerSuite) TestRaceNotFound() {
	_, err := s.controller.StartCountdown(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRaceNotFound)
}

// forgetRecorder wraps a KeyedMutex and records which race locks get dropped
type forgetRecorder struct {
	*locker.KeyedMutex
	forgotten []model.RaceID
}

func (f *forgetRecorder) Forget(id model.RaceID) {
	f.forgotten = append(f.forgotten, id)
	f.KeyedMutex.Forget(id)
}

func (s *ControllerSuite) TestCompleteRaceDropsLockEntry() {
	recorder := &forgetRecorder{KeyedMutex: locker.New()}
	controller := NewController(s.storage, recorder, s.clock, testutil.NopLogger())
	s.makeRace(model.RaceStatusWaiting)

	_, err := controller.StartCountdown(s.ctx, "race-1")
	s.Require().NoError(err)
	_, err = controller.BeginRacing(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Empty(recorder.forgotten)

	_, err = controller.CompleteRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal([]model.RaceID{"race-1"}, recorder.forgotten)
}

func (s *ControllerSuite) TestFailedCompleteKeepsLockEntry() {
	recorder := &forgetRecorder{KeyedMutex: locker.New()}
	controller := NewController(s.storage, recorder, s.clock, testutil.NopLogger())
	s.makeRace(model.RaceStatusWaiting)

	_, err := controller.CompleteRace(s.ctx, "race-1")
	s.ErrorIs(err, model.ErrInvalidTransition)
	s.Empty(recorder.forgotten)
}
