package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/storage"
)

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func New(path string) (*Storage, error) {
	// busy_timeout lets concurrent writers queue instead of failing
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Race operations

func (s *Storage) SaveRace(ctx context.Context, race *model.Race) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO races (id, room_code, status, paragraph, max_players, is_private, finish_counter, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		string(race.ID), string(race.RoomCode), string(race.Status),
		race.ParagraphContent, race.MaxPlayers, race.IsPrivate,
		race.FinishCounter, race.CreatedAt, nullTime(race.StartedAt), nullTime(race.FinishedAt),
	)
	return err
}

func (s *Storage) GetRace(ctx context.Context, id model.RaceID) (*model.Race, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_code, status, paragraph, max_players, is_private, finish_counter, created_at, started_at, finished_at
		FROM races WHERE id = ?`, string(id))
	return scanRace(row)
}

func (s *Storage) GetRaceByCode(ctx context.Context, code model.RoomCode) (*model.Race, error) {
	// Room codes are unique among non-terminal races; prefer the live one
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_code, status, paragraph, max_players, is_private, finish_counter, created_at, started_at, finished_at
		FROM races WHERE room_code = ?
		ORDER BY CASE WHEN status = 'finished' THEN 1 ELSE 0 END, created_at DESC
		LIMIT 1`, string(code))
	return scanRace(row)
}

func (s *Storage) ListJoinableRaces(ctx context.Context) ([]*model.Race, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_code, status, paragraph, max_players, is_private, finish_counter, created_at, started_at, finished_at
		FROM races WHERE status = ? AND is_private = 0
		ORDER BY created_at`, string(model.RaceStatusWaiting))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var races []*model.Race
	for rows.Next() {
		race, err := scanRace(rows)
		if err != nil {
			return nil, err
		}
		races = append(races, race)
	}
	return races, rows.Err()
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM races WHERE room_code = ?`, string(code)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Participant operations

func (s *Storage) SaveParticipant(ctx context.Context, p *model.Participant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (id, race_id, identity_key, identity_kind, user_id, guest_name, username, avatar_color,
			progress, wpm, accuracy, errors, is_finished, finish_position, is_active, rejoin_count, joined_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			progress = excluded.progress,
			wpm = excluded.wpm,
			accuracy = excluded.accuracy,
			errors = excluded.errors,
			is_finished = excluded.is_finished,
			finish_position = excluded.finish_position,
			is_active = excluded.is_active,
			rejoin_count = excluded.rejoin_count,
			joined_at = excluded.joined_at,
			finished_at = excluded.finished_at`,
		string(p.ID), string(p.RaceID), p.Identity.Key(), string(p.Identity.Kind),
		nullString(string(p.Identity.UserID)), nullString(p.Identity.GuestName),
		p.Username, p.AvatarColor,
		p.Stats.Progress, p.Stats.WPM, p.Stats.Accuracy, p.Stats.Errors,
		p.IsFinished, nullInt(p.FinishPosition), p.IsActive, p.RejoinCount, p.JoinedAt, nullTime(p.FinishedAt),
	)
	return err
}

func (s *Storage) GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	row := s.db.QueryRowContext(ctx, participantSelect+` WHERE id = ?`, string(id))
	return scanParticipant(row)
}

func (s *Storage) GetParticipants(ctx context.Context, raceID model.RaceID, activeOnly bool) ([]*model.Participant, error) {
	query := participantSelect + ` WHERE race_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY joined_at`

	rows, err := s.db.QueryContext(ctx, query, string(raceID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var participants []*model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *Storage) FindParticipant(ctx context.Context, raceID model.RaceID, identity model.Identity) (*model.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		participantSelect+` WHERE race_id = ? AND identity_key = ?`,
		string(raceID), identity.Key())
	return scanParticipant(row)
}

// IncrementFinishCounter runs the read-back inside an immediate transaction
// so concurrent finishers each observe a distinct counter value.
func (s *Storage) IncrementFinishCounter(ctx context.Context, raceID model.RaceID) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE races SET finish_counter = finish_counter + 1 WHERE id = ?`, string(raceID))
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, model.ErrRaceNotFound
	}

	var counter int
	if err := tx.QueryRowContext(ctx,
		`SELECT finish_counter FROM races WHERE id = ?`, string(raceID)).Scan(&counter); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return counter, nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at`,
		string(user.ID), user.Username, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE id = ?`, string(id))
	return scanUser(row)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// Scan helpers

const participantSelect = `
	SELECT id, race_id, identity_kind, user_id, guest_name, username, avatar_color,
		progress, wpm, accuracy, errors, is_finished, finish_position, is_active, rejoin_count, joined_at, finished_at
	FROM participants`

type scanner interface {
	Scan(dest ...any) error
}

func scanRace(row scanner) (*model.Race, error) {
	var race model.Race
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(
		&race.ID, &race.RoomCode, &race.Status, &race.ParagraphContent,
		&race.MaxPlayers, &race.IsPrivate, &race.FinishCounter,
		&race.CreatedAt, &startedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRaceNotFound
	}
	if err != nil {
		return nil, err
	}
	race.StartedAt = timePtr(startedAt)
	race.FinishedAt = timePtr(finishedAt)
	return &race, nil
}

func scanParticipant(row scanner) (*model.Participant, error) {
	var p model.Participant
	var kind string
	var userID, guestName sql.NullString
	var finishPos sql.NullInt64
	var finishedAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.RaceID, &kind, &userID, &guestName, &p.Username, &p.AvatarColor,
		&p.Stats.Progress, &p.Stats.WPM, &p.Stats.Accuracy, &p.Stats.Errors,
		&p.IsFinished, &finishPos, &p.IsActive, &p.RejoinCount, &p.JoinedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	if model.IdentityKind(kind) == model.IdentityKindUser {
		p.Identity = model.UserIdentity(model.UserID(userID.String))
	} else {
		p.Identity = model.GuestIdentity(guestName.String)
	}
	if finishPos.Valid {
		pos := int(finishPos.Int64)
		p.FinishPosition = &pos
	}
	p.FinishedAt = timePtr(finishedAt)
	return &p, nil
}

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
