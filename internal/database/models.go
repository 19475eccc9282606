package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRoster is returned by LoadRoster when no snapshot was ever saved
var ErrNoRoster = errors.New("no roster snapshot stored")

// Session is one controller connection on a watched callsign
type Session struct {
	ID        uuid.UUID
	Callsign  string
	CID       string
	Name      string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Open reports whether the session has not been closed yet
func (s Session) Open() bool {
	return s.EndedAt == nil
}

// RosterMember is one CID from the vACC roster
type RosterMember struct {
	CID  string
	Kind string
}

// RogueConnection records a watched position opened by a non-roster CID
type RogueConnection struct {
	ID         int64
	Callsign   string
	CID        string
	Name       string
	DetectedAt time.Time
}

// Store persists sessions, the roster snapshot and rogue detections
type Store interface {
	// OpenSession starts a session. An open session for the same callsign and
	// CID is returned unchanged; one for another CID is closed first.
	OpenSession(ctx context.Context, callsign, cid, name string, at time.Time) (*Session, error)
	// CloseSession ends the open session for the callsign, if any
	CloseSession(ctx context.Context, callsign string, at time.Time) error
	// Sessions returns the latest sessions for the callsign, newest first
	Sessions(ctx context.Context, callsign string, limit int) ([]Session, error)
	SaveRoster(ctx context.Context, members []RosterMember, at time.Time) error
	LoadRoster(ctx context.Context) ([]RosterMember, time.Time, error)
	RecordRogue(ctx context.Context, rc RogueConnection) error
	RecentRogues(ctx context.Context, limit int) ([]RogueConnection, error)
	Ping(ctx context.Context) error
}

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new database repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OpenSession starts a session for the callsign
func (r *Repository) OpenSession(ctx context.Context, callsign, cid, name string, at time.Time) (*Session, error) {
	var s *Session
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var open Session
		err := tx.QueryRow(ctx, `
			SELECT id, callsign, cid, name, started_at, ended_at
			FROM controller_sessions
			WHERE callsign = $1 AND ended_at IS NULL
			FOR UPDATE
		`, callsign).Scan(&open.ID, &open.Callsign, &open.CID, &open.Name, &open.StartedAt, &open.EndedAt)
		switch {
		case err == nil && open.CID == cid:
			s = &open
			return nil
		case err == nil:
			if _, err := tx.Exec(ctx, `UPDATE controller_sessions SET ended_at = $2 WHERE id = $1`, open.ID, at); err != nil {
				return err
			}
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		s = &Session{ID: uuid.New(), Callsign: callsign, CID: cid, Name: name, StartedAt: at}
		_, err = tx.Exec(ctx, `
			INSERT INTO controller_sessions (id, callsign, cid, name, started_at)
			VALUES ($1, $2, $3, $4, $5)
		`, s.ID, s.Callsign, s.CID, s.Name, s.StartedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("opening session for %s: %w", callsign, err)
	}
	return s, nil
}

// CloseSession ends the open session for the callsign
func (r *Repository) CloseSession(ctx context.Context, callsign string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE controller_sessions SET ended_at = $2
		WHERE callsign = $1 AND ended_at IS NULL
	`, callsign, at)
	if err != nil {
		return fmt.Errorf("closing session for %s: %w", callsign, err)
	}
	return nil
}

// Sessions returns recent sessions for a callsign
func (r *Repository) Sessions(ctx context.Context, callsign string, limit int) ([]Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, callsign, cid, name, started_at, ended_at
		FROM controller_sessions
		WHERE callsign = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, callsign, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions for %s: %w", callsign, err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Callsign, &s.CID, &s.Name, &s.StartedAt, &s.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sessions for %s: %w", callsign, err)
	}
	return sessions, nil
}

// SaveRoster replaces the stored roster snapshot
func (r *Repository) SaveRoster(ctx context.Context, members []RosterMember, at time.Time) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM roster_members`); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"roster_members"},
			[]string{"cid", "kind", "updated_at"},
			pgx.CopyFromSlice(len(members), func(i int) ([]any, error) {
				return []any{members[i].CID, members[i].Kind, at}, nil
			}),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving roster snapshot: %w", err)
	}
	return nil
}

// LoadRoster returns the stored roster snapshot and when it was taken
func (r *Repository) LoadRoster(ctx context.Context) ([]RosterMember, time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT cid, kind, updated_at FROM roster_members ORDER BY cid`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying roster snapshot: %w", err)
	}
	defer rows.Close()

	var (
		members []RosterMember
		updated time.Time
	)
	for rows.Next() {
		var (
			m  RosterMember
			at time.Time
		)
		if err := rows.Scan(&m.CID, &m.Kind, &at); err != nil {
			return nil, time.Time{}, fmt.Errorf("scanning roster member: %w", err)
		}
		if at.After(updated) {
			updated = at
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("reading roster snapshot: %w", err)
	}
	if len(members) == 0 {
		return nil, time.Time{}, ErrNoRoster
	}
	return members, updated, nil
}

// RecordRogue stores a rogue connection
func (r *Repository) RecordRogue(ctx context.Context, rc RogueConnection) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rogue_connections (callsign, cid, name, detected_at)
		VALUES ($1, $2, $3, $4)
	`, rc.Callsign, rc.CID, rc.Name, rc.DetectedAt)
	if err != nil {
		return fmt.Errorf("recording rogue connection %s: %w", rc.Callsign, err)
	}
	return nil
}

// RecentRogues returns the latest rogue detections, newest first
func (r *Repository) RecentRogues(ctx context.Context, limit int) ([]RogueConnection, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, callsign, cid, name, detected_at
		FROM rogue_connections
		ORDER BY detected_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying rogue connections: %w", err)
	}
	defer rows.Close()

	var rogues []RogueConnection
	for rows.Next() {
		var rc RogueConnection
		if err := rows.Scan(&rc.ID, &rc.Callsign, &rc.CID, &rc.Name, &rc.DetectedAt); err != nil {
			return nil, fmt.Errorf("scanning rogue connection: %w", err)
		}
		rogues = append(rogues, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rogue connections: %w", err)
	}
	return rogues, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}
