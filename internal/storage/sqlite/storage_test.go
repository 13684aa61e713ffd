package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/typerush/typerush/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	storage, err := New(":memory:")
	s.Require().NoError(err)
	s.storage = storage
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) makeRace(id, code string) *model.Race {
	return &model.Race{
		ID:               model.RaceID(id),
		RoomCode:         model.RoomCode(code),
		Status:           model.RaceStatusWaiting,
		ParagraphContent: "sphinx of black quartz judge my vow",
		MaxPlayers:       4,
		CreatedAt:        time.Now().UTC(),
	}
}

func (s *StorageSuite) TestSaveAndGetRace() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	retrieved, err := s.storage.GetRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(race.RoomCode, retrieved.RoomCode)
	s.Equal(race.ParagraphContent, retrieved.ParagraphContent)
	s.Nil(retrieved.StartedAt)
}

func (s *StorageSuite) TestGetRaceNotFound() {
	_, err := s.storage.GetRace(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRaceNotFound)
}

func (s *StorageSuite) TestSaveRaceUpdatesStatusAndTimestamps() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	started := time.Now().UTC().Truncate(time.Second)
	race.Status = model.RaceStatusRacing
	race.StartedAt = &started
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	retrieved, err := s.storage.GetRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(model.RaceStatusRacing, retrieved.Status)
	s.Require().NotNil(retrieved.StartedAt)
	s.True(retrieved.StartedAt.Equal(started))
}

func (s *StorageSuite) TestGetRaceByCode() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	retrieved, err := s.storage.GetRaceByCode(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.RaceID("race-1"), retrieved.ID)
}

func (s *StorageSuite) TestListJoinableRaces() {
	public := s.makeRace("race-1", "AAA111")
	private := s.makeRace("race-2", "BBB222")
	private.IsPrivate = true
	racing := s.makeRace("race-3", "CCC333")
	racing.Status = model.RaceStatusRacing

	s.Require().NoError(s.storage.SaveRace(s.ctx, public))
	s.Require().NoError(s.storage.SaveRace(s.ctx, private))
	s.Require().NoError(s.storage.SaveRace(s.ctx, racing))

	races, err := s.storage.ListJoinableRaces(s.ctx)
	s.Require().NoError(err)
	s.Len(races, 1)
	s.Equal(model.RaceID("race-1"), races[0].ID)
}

func (s *StorageSuite) TestSaveAndFindParticipant() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	identity := model.GuestIdentity("speedy")
	p := &model.Participant{
		ID:       "part-1",
		RaceID:   "race-1",
		Identity: identity,
		Username: "speedy",
		IsActive: true,
		JoinedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, p))

	found, err := s.storage.FindParticipant(s.ctx, "race-1", identity)
	s.Require().NoError(err)
	s.Equal(model.ParticipantID("part-1"), found.ID)
	s.Equal(model.IdentityKindGuest, found.Identity.Kind)
	s.Equal("speedy", found.Identity.GuestName)
}

func (s *StorageSuite) TestParticipantRoundTripPreservesFinishState() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	pos := 2
	finished := time.Now().UTC().Truncate(time.Second)
	p := &model.Participant{
		ID:             "part-1",
		RaceID:         "race-1",
		Identity:       model.UserIdentity("user-1"),
		Username:       "alice",
		Stats:          model.Stats{Progress: 100, WPM: 92.5, Accuracy: 98.1, Errors: 3},
		IsFinished:     true,
		FinishPosition: &pos,
		IsActive:       true,
		JoinedAt:       time.Now().UTC(),
		FinishedAt:     &finished,
	}
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, p))

	retrieved, err := s.storage.GetParticipant(s.ctx, "part-1")
	s.Require().NoError(err)
	s.True(retrieved.IsFinished)
	s.Require().NotNil(retrieved.FinishPosition)
	s.Equal(2, *retrieved.FinishPosition)
	s.Equal(92.5, retrieved.Stats.WPM)
	s.Equal(model.IdentityKindUser, retrieved.Identity.Kind)
	s.Equal(model.UserID("user-1"), retrieved.Identity.UserID)
}

func (s *StorageSuite) TestGetParticipantsActiveOnly() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	now := time.Now().UTC()
	active := &model.Participant{
		ID: "part-1", RaceID: "race-1",
		Identity: model.GuestIdentity("a"), Username: "a", IsActive: true, JoinedAt: now,
	}
	inactive := &model.Participant{
		ID: "part-2", RaceID: "race-1",
		Identity: model.GuestIdentity("b"), Username: "b", IsActive: false, JoinedAt: now,
	}
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, active))
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, inactive))

	activeOnly, err := s.storage.GetParticipants(s.ctx, "race-1", true)
	s.Require().NoError(err)
	s.Len(activeOnly, 1)

	all, err := s.storage.GetParticipants(s.ctx, "race-1", false)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *StorageSuite) TestIncrementFinishCounter() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	for want := 1; want <= 3; want++ {
		pos, err := s.storage.IncrementFinishCounter(s.ctx, "race-1")
		s.Require().NoError(err)
		s.Equal(want, pos)
	}

	retrieved, _ := s.storage.GetRace(s.ctx, "race-1")
	s.Equal(3, retrieved.FinishCounter)
}

func (s *StorageSuite) TestIncrementFinishCounterRaceNotFound() {
	_, err := s.storage.IncrementFinishCounter(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRaceNotFound)
}

func (s *StorageSuite) TestSaveAndGetUser() {
	now := time.Now().UTC()
	user := &model.User{
		ID:           "user-1",
		Username:     "alice",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.storage.SaveUser(s.ctx, user))

	retrieved, err := s.storage.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), retrieved.ID)

	_, err = s.storage.GetUser(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}
