package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Race operations

func (s *Storage) SaveRace(ctx context.Context, race *model.Race) error {
	data, err := json.Marshal(race)
	if err != nil {
		return err
	}

	// Pipeline keeps the race, its code index, and the joinable set in step
	pipe := s.client.Pipeline()
	pipe.Set(ctx, raceKey(race.ID), data, s.cfg.RaceTTL)
	pipe.Set(ctx, roomCodeIndexKey(race.RoomCode), string(race.ID), s.cfg.RaceTTL)
	if race.Status == model.RaceStatusWaiting && !race.IsPrivate {
		pipe.SAdd(ctx, joinableIndexKey(), string(race.ID))
	} else {
		pipe.SRem(ctx, joinableIndexKey(), string(race.ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRace(ctx context.Context, id model.RaceID) (*model.Race, error) {
	data, err := s.client.Get(ctx, raceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRaceNotFound
		}
		return nil, err
	}

	var race model.Race
	if err := json.Unmarshal(data, &race); err != nil {
		return nil, err
	}

	// The counter lives under its own key; fold it back into the struct
	counter, err := s.client.Get(ctx, finishCounterKey(id)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if counter > race.FinishCounter {
		race.FinishCounter = counter
	}
	return &race, nil
}

func (s *Storage) GetRaceByCode(ctx context.Context, code model.RoomCode) (*model.Race, error) {
	idStr, err := s.client.Get(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRaceNotFound
		}
		return nil, err
	}
	return s.GetRace(ctx, model.RaceID(idStr))
}

func (s *Storage) ListJoinableRaces(ctx context.Context) ([]*model.Race, error) {
	ids, err := s.client.SMembers(ctx, joinableIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Race{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = raceKey(model.RaceID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	races := make([]*model.Race, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Race may have expired
		}
		var race model.Race
		if err := json.Unmarshal([]byte(val.(string)), &race); err != nil {
			continue // Skip invalid data
		}
		if race.Status != model.RaceStatusWaiting || race.IsPrivate {
			continue // Index may lag a status change
		}
		races = append(races, &race)
	}

	return races, nil
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Participant operations

func (s *Storage) SaveParticipant(ctx context.Context, p *model.Participant) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	pKey := participantKey(p.ID)
	indexKey := participantsForRaceIndexKey(p.RaceID)

	// Use pipeline for atomic save + index updates
	pipe := s.client.Pipeline()
	pipe.Set(ctx, pKey, data, s.cfg.ParticipantTTL)
	pipe.SAdd(ctx, indexKey, pKey)
	pipe.Expire(ctx, indexKey, s.cfg.ParticipantTTL) // Keep index TTL in sync
	pipe.Set(ctx, seatIndexKey(p.RaceID, p.Identity.Key()), string(p.ID), s.cfg.ParticipantTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	data, err := s.client.Get(ctx, participantKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrParticipantNotFound
		}
		return nil, err
	}

	var p model.Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) GetParticipants(ctx context.Context, raceID model.RaceID, activeOnly bool) ([]*model.Participant, error) {
	indexKey := participantsForRaceIndexKey(raceID)

	pKeys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(pKeys) == 0 {
		return []*model.Participant{}, nil
	}

	values, err := s.client.MGet(ctx, pKeys...).Result()
	if err != nil {
		return nil, err
	}

	participants := make([]*model.Participant, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Participant may have expired
		}
		var p model.Participant
		if err := json.Unmarshal([]byte(val.(string)), &p); err != nil {
			continue // Skip invalid data
		}
		if activeOnly && !p.IsActive {
			continue
		}
		participants = append(participants, &p)
	}

	return participants, nil
}

func (s *Storage) FindParticipant(ctx context.Context, raceID model.RaceID, identity model.Identity) (*model.Participant, error) {
	idStr, err := s.client.Get(ctx, seatIndexKey(raceID, identity.Key())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrParticipantNotFound
		}
		return nil, err
	}
	return s.GetParticipant(ctx, model.ParticipantID(idStr))
}

// IncrementFinishCounter uses a native INCR, so positions stay unique and
// gap-free even with multiple server processes sharing the Redis instance.
func (s *Storage) IncrementFinishCounter(ctx context.Context, raceID model.RaceID) (int, error) {
	exists, err := s.client.Exists(ctx, raceKey(raceID)).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, model.ErrRaceNotFound
	}

	key := finishCounterKey(raceID)
	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.cfg.RaceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update; accounts never expire
	pipe := s.client.Pipeline()
	pipe.Set(ctx, userKey(user.ID), data, 0)
	pipe.Set(ctx, usernameIndexKey(user.Username), string(user.ID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	idStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(idStr))
}
