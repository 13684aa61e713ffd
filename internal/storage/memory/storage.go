package memory

import (
	"context"
	"sync"

	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	races         map[model.RaceID]*model.Race
	codeIndex     map[model.RoomCode]model.RaceID
	participants  map[model.ParticipantID]*model.Participant
	seatIndex     map[seatKey]model.ParticipantID
	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
}

type seatKey struct {
	raceID      model.RaceID
	identityKey string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		races:         make(map[model.RaceID]*model.Race),
		codeIndex:     make(map[model.RoomCode]model.RaceID),
		participants:  make(map[model.ParticipantID]*model.Participant),
		seatIndex:     make(map[seatKey]model.ParticipantID),
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Race operations

func (s *Storage) SaveRace(ctx context.Context, race *model.Race) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *race
	s.races[race.ID] = &cp
	s.codeIndex[race.RoomCode] = race.ID
	return nil
}

func (s *Storage) GetRace(ctx context.Context, id model.RaceID) (*model.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	race, ok := s.races[id]
	if !ok {
		return nil, model.ErrRaceNotFound
	}
	cp := *race
	return &cp, nil
}

func (s *Storage) GetRaceByCode(ctx context.Context, code model.RoomCode) (*model.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codeIndex[code]
	if !ok {
		return nil, model.ErrRaceNotFound
	}
	race, ok := s.races[id]
	if !ok {
		return nil, model.ErrRaceNotFound
	}
	cp := *race
	return &cp, nil
}

func (s *Storage) ListJoinableRaces(ctx context.Context) ([]*model.Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var races []*model.Race
	for _, race := range s.races {
		if race.Status == model.RaceStatusWaiting && !race.IsPrivate {
			cp := *race
			races = append(races, &cp)
		}
	}
	return races, nil
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codeIndex[code]
	return ok, nil
}

// Participant operations

func (s *Storage) SaveParticipant(ctx context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.participants[p.ID] = &cp
	s.seatIndex[seatKey{raceID: p.RaceID, identityKey: p.Identity.Key()}] = p.ID
	return nil
}

func (s *Storage) GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Storage) GetParticipants(ctx context.Context, raceID model.RaceID, activeOnly bool) ([]*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var participants []*model.Participant
	for _, p := range s.participants {
		if p.RaceID != raceID {
			continue
		}
		if activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		participants = append(participants, &cp)
	}
	return participants, nil
}

func (s *Storage) FindParticipant(ctx context.Context, raceID model.RaceID, identity model.Identity) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seatIndex[seatKey{raceID: raceID, identityKey: identity.Key()}]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	p, ok := s.participants[id]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Storage) IncrementFinishCounter(ctx context.Context, raceID model.RaceID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	race, ok := s.races[raceID]
	if !ok {
		return 0, model.ErrRaceNotFound
	}
	race.FinishCounter++
	return race.FinishCounter, nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
	s.usernameIndex[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}
