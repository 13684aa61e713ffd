package sqlite

// schema is applied on open. Participants are soft-deleted via is_active,
// so the unique (race_id, identity_key) index covers rejoins as well.
const schema = `
CREATE TABLE IF NOT EXISTS races (
	id               TEXT PRIMARY KEY,
	room_code        TEXT NOT NULL,
	status           TEXT NOT NULL,
	paragraph        TEXT NOT NULL,
	max_players      INTEGER NOT NULL,
	is_private       INTEGER NOT NULL DEFAULT 0,
	finish_counter   INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL,
	started_at       TIMESTAMP,
	finished_at      TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_races_room_code ON races(room_code);
CREATE INDEX IF NOT EXISTS idx_races_joinable ON races(status, is_private);

CREATE TABLE IF NOT EXISTS participants (
	id               TEXT PRIMARY KEY,
	race_id          TEXT NOT NULL REFERENCES races(id),
	identity_key     TEXT NOT NULL,
	identity_kind    TEXT NOT NULL,
	user_id          TEXT,
	guest_name       TEXT,
	username         TEXT NOT NULL,
	avatar_color     TEXT NOT NULL DEFAULT '',
	progress         INTEGER NOT NULL DEFAULT 0,
	wpm              REAL NOT NULL DEFAULT 0,
	accuracy         REAL NOT NULL DEFAULT 0,
	errors           INTEGER NOT NULL DEFAULT 0,
	is_finished      INTEGER NOT NULL DEFAULT 0,
	finish_position  INTEGER,
	is_active        INTEGER NOT NULL DEFAULT 1,
	rejoin_count     INTEGER NOT NULL DEFAULT 0,
	joined_at        TIMESTAMP NOT NULL,
	finished_at      TIMESTAMP,
	UNIQUE(race_id, identity_key)
);

CREATE INDEX IF NOT EXISTS idx_participants_race ON participants(race_id);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
`
