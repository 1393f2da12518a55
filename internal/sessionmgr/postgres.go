package sessionmgr

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// PostgresConfig configures a PostgresStore connection, mirroring the
// teacher's CockroachConfig (the same wire protocol, same driver).
type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns sane local-development defaults.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "agentcore",
		Database:        "agentcore",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// PostgresStore persists sessions as a JSON document per row, the same
// shape the "Persisted transcript format" (spec.md §6) defines — the row
// is the serialization boundary, not a normalized schema, since the
// session's transcript is read/written as a whole on every turn.
type PostgresStore struct {
	db *sql.DB

	stmtCreate *sql.Stmt
	stmtGet    *sql.Stmt
	stmtUpdate *sql.Stmt
	stmtDelete *sql.Stmt
	stmtList   *sql.Stmt
}

// NewPostgresStore opens a connection using cfg and prepares its
// statements. The caller must have already created the `sessions` table
// (id text primary key, document jsonb, created_at timestamptz,
// updated_at timestamptz).
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, int(cfg.ConnectTimeout.Seconds()),
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sessionmgr: ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) prepare() error {
	var err error
	if s.stmtCreate, err = s.db.Prepare(`INSERT INTO sessions (id, document, created_at, updated_at) VALUES ($1, $2, $3, $4)`); err != nil {
		return fmt.Errorf("sessionmgr: prepare create: %w", err)
	}
	if s.stmtGet, err = s.db.Prepare(`SELECT document FROM sessions WHERE id = $1`); err != nil {
		return fmt.Errorf("sessionmgr: prepare get: %w", err)
	}
	if s.stmtUpdate, err = s.db.Prepare(`UPDATE sessions SET document = $1, updated_at = $2 WHERE id = $3`); err != nil {
		return fmt.Errorf("sessionmgr: prepare update: %w", err)
	}
	if s.stmtDelete, err = s.db.Prepare(`DELETE FROM sessions WHERE id = $1`); err != nil {
		return fmt.Errorf("sessionmgr: prepare delete: %w", err)
	}
	if s.stmtList, err = s.db.Prepare(`SELECT document FROM sessions ORDER BY updated_at DESC LIMIT $1 OFFSET $2`); err != nil {
		return fmt.Errorf("sessionmgr: prepare list: %w", err)
	}
	return nil
}

// Close releases the database connection and its prepared statements.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, session *convo.Session) error {
	if session.ID == "" {
		return fmt.Errorf("sessionmgr: session id is required")
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt

	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("sessionmgr: marshal session: %w", err)
	}
	if _, err := s.stmtCreate.ExecContext(ctx, session.ID, doc, session.CreatedAt, session.UpdatedAt); err != nil {
		return fmt.Errorf("sessionmgr: create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*convo.Session, error) {
	var doc []byte
	if err := s.stmtGet.QueryRowContext(ctx, id).Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionmgr: get session: %w", err)
	}
	return decodeSession(doc)
}

func (s *PostgresStore) Update(ctx context.Context, session *convo.Session) error {
	session.UpdatedAt = time.Now()
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("sessionmgr: marshal session: %w", err)
	}
	result, err := s.stmtUpdate.ExecContext(ctx, doc, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("sessionmgr: update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sessionmgr: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.stmtDelete.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("sessionmgr: delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sessionmgr: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]*convo.Session, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.stmtList.QueryContext(ctx, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sessionmgr: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*convo.Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sessionmgr: scan session: %w", err)
		}
		session, err := decodeSession(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func decodeSession(doc []byte) (*convo.Session, error) {
	var session convo.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("sessionmgr: unmarshal session: %w", err)
	}
	return &session, nil
}
