package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/typerush/typerush/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.RaceTTL = time.Hour
	cfg.ParticipantTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) makeRace(id, code string) *model.Race {
	return &model.Race{
		ID:               model.RaceID(id),
		RoomCode:         model.RoomCode(code),
		Status:           model.RaceStatusWaiting,
		ParagraphContent: "pack my box with five dozen liquor jugs",
		MaxPlayers:       4,
		CreatedAt:        time.Now().UTC(),
	}
}

// Race tests

func (s *StorageSuite) TestSaveAndGetRace() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	retrieved, err := s.storage.GetRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(race.RoomCode, retrieved.RoomCode)
	s.Equal(race.ParagraphContent, retrieved.ParagraphContent)
	s.Equal(model.RaceStatusWaiting, retrieved.Status)
}

func (s *StorageSuite) TestGetRaceNotFound() {
	_, err := s.storage.GetRace(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRaceNotFound)
}

func (s *StorageSuite) TestGetRaceByCode() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	retrieved, err := s.storage.GetRaceByCode(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.RaceID("race-1"), retrieved.ID)
}

func (s *StorageSuite) TestGetRaceByCodeNotFound() {
	_, err := s.storage.GetRaceByCode(s.ctx, "ZZZ999")
	s.ErrorIs(err, model.ErrRaceNotFound)
}

func (s *StorageSuite) TestListJoinableRacesExcludesPrivateAndStarted() {
	public := s.makeRace("race-1", "AAA111")
	private := s.makeRace("race-2", "BBB222")
	private.IsPrivate = true
	started := s.makeRace("race-3", "CCC333")

	s.Require().NoError(s.storage.SaveRace(s.ctx, public))
	s.Require().NoError(s.storage.SaveRace(s.ctx, private))
	s.Require().NoError(s.storage.SaveRace(s.ctx, started))

	// Start race-3 after the initial save so it leaves the joinable set
	started.Status = model.RaceStatusRacing
	s.Require().NoError(s.storage.SaveRace(s.ctx, started))

	races, err := s.storage.ListJoinableRaces(s.ctx)
	s.Require().NoError(err)
	s.Len(races, 1)
	s.Equal(model.RaceID("race-1"), races[0].ID)
}

func (s *StorageSuite) TestRoomCodeExists() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	exists, err := s.storage.RoomCodeExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.storage.RoomCodeExists(s.ctx, "ZZZ999")
	s.Require().NoError(err)
	s.False(exists)
}

// Participant tests

func (s *StorageSuite) TestSaveAndGetParticipant() {
	p := &model.Participant{
		ID:       "part-1",
		RaceID:   "race-1",
		Identity: model.GuestIdentity("speedy"),
		Username: "speedy",
		IsActive: true,
		JoinedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, p))

	retrieved, err := s.storage.GetParticipant(s.ctx, "part-1")
	s.Require().NoError(err)
	s.Equal(p.Username, retrieved.Username)
	s.True(retrieved.IsActive)
}

func (s *StorageSuite) TestFindParticipantByIdentity() {
	identity := model.UserIdentity("user-1")
	p := &model.Participant{
		ID:       "part-1",
		RaceID:   "race-1",
		Identity: identity,
		Username: "alice",
		IsActive: false,
	}
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, p))

	found, err := s.storage.FindParticipant(s.ctx, "race-1", identity)
	s.Require().NoError(err)
	s.Equal(model.ParticipantID("part-1"), found.ID)
	s.False(found.IsActive)

	_, err = s.storage.FindParticipant(s.ctx, "race-1", model.GuestIdentity("nobody"))
	s.ErrorIs(err, model.ErrParticipantNotFound)
}

func (s *StorageSuite) TestGetParticipantsActiveOnly() {
	active := &model.Participant{
		ID: "part-1", RaceID: "race-1",
		Identity: model.GuestIdentity("a"), IsActive: true,
	}
	inactive := &model.Participant{
		ID: "part-2", RaceID: "race-1",
		Identity: model.GuestIdentity("b"), IsActive: false,
	}
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, active))
	s.Require().NoError(s.storage.SaveParticipant(s.ctx, inactive))

	all, err := s.storage.GetParticipants(s.ctx, "race-1", false)
	s.Require().NoError(err)
	s.Len(all, 2)

	activeOnly, err := s.storage.GetParticipants(s.ctx, "race-1", true)
	s.Require().NoError(err)
	s.Len(activeOnly, 1)
	s.Equal(model.ParticipantID("part-1"), activeOnly[0].ID)
}

// Finish counter tests

func (s *StorageSuite) TestIncrementFinishCounter() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	pos, err := s.storage.IncrementFinishCounter(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(1, pos)

	pos, err = s.storage.IncrementFinishCounter(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(2, pos)
}

func (s *StorageSuite) TestIncrementFinishCounterReflectedInRace() {
	race := s.makeRace("race-1", "ABC123")
	s.Require().NoError(s.storage.SaveRace(s.ctx, race))

	_, err := s.storage.IncrementFinishCounter(s.ctx, "race-1")
	s.Require().NoError(err)

	retrieved, err := s.storage.GetRace(s.ctx, "race-1")
	s.Require().NoError(err)
	s.Equal(1, retrieved.FinishCounter)
}

func (s *StorageSuite) TestIncrementFinishCounterRaceNotFound() {
	_, err := s.storage.IncrementFinishCounter(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRaceNotFound)
}

// User tests

func (s *StorageSuite) TestSaveAndGetUser() {
	user := &model.User{
		ID:           "user-1",
		Username:     "alice",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	s.Require().NoError(s.storage.SaveUser(s.ctx, user))

	retrieved, err := s.storage.GetUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal("alice", retrieved.Username)

	byName, err := s.storage.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), byName.ID)
}

func (s *StorageSuite) TestGetUserNotFound() {
	_, err := s.storage.GetUser(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}
