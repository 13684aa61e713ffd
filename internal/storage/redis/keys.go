package redis

import (
	"fmt"

	"github.com/typerush/typerush/internal/model"
)

// Key prefix for all race-related data
const keyPrefix = "typerush"

// raceKey returns the Redis key for a Race
func raceKey(id model.RaceID) string {
	return fmt.Sprintf("%s:race:%s", keyPrefix, id)
}

// roomCodeIndexKey returns the Redis key for the room code -> race_id index
func roomCodeIndexKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:code:%s", keyPrefix, code)
}

// joinableIndexKey returns the Redis key for the SET of joinable race IDs
func joinableIndexKey() string {
	return fmt.Sprintf("%s:idx:joinable", keyPrefix)
}

// finishCounterKey returns the Redis key for a race's finish counter.
// Kept separate from the race JSON so INCR gives an atomic increment.
func finishCounterKey(id model.RaceID) string {
	return fmt.Sprintf("%s:race:%s:finish_counter", keyPrefix, id)
}

// participantKey returns the Redis key for a Participant
func participantKey(id model.ParticipantID) string {
	return fmt.Sprintf("%s:participant:%s", keyPrefix, id)
}

// participantsForRaceIndexKey returns the Redis key for the SET of a race's participants
func participantsForRaceIndexKey(raceID model.RaceID) string {
	return fmt.Sprintf("%s:idx:participants_for_race:%s", keyPrefix, raceID)
}

// seatIndexKey returns the Redis key for the (race, identity) -> participant_id index
func seatIndexKey(raceID model.RaceID, identityKey string) string {
	return fmt.Sprintf("%s:idx:seat:%s:%s", keyPrefix, raceID, identityKey)
}

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}
