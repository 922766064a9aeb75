// Package postgres stores users, conversations and messages in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	domuser "github.com/kailas-cloud/cospa/internal/domain/user"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

//go:embed schema.sql
var schema string

// Config holds pool settings.
type Config struct {
	DSN      string
	MaxConns int32
}

// Store is the pgx-backed conversation and user store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool and pings it.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return wrap("migrate", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// RunInTx runs fn in a read-committed transaction. Row locks taken through
// the Tx serialize concurrent quota checks on the same user or conversation.
func (s *Store) RunInTx(ctx context.Context, fn func(context.Context, domconv.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrap("begin", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit", err)
	}
	return nil
}

const conversationColumns = `c.id, c.user_id, c.title, c.is_active, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM chat_messages m WHERE m.conversation_id = c.id)`

// Get returns a conversation in any state with its message count.
func (s *Store) Get(ctx context.Context, id string) (domconv.Conversation, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM chat_conversations c WHERE c.id = $1`, id)
	c, err := scanConversation(row)
	if err != nil {
		return domconv.Conversation{}, wrap("get conversation", err)
	}
	return c, nil
}

// ListActive returns the user's active conversations, most recently updated first.
func (s *Store) ListActive(ctx context.Context, userID string) ([]domconv.Conversation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+conversationColumns+`
		FROM chat_conversations c
		WHERE c.user_id = $1 AND c.is_active
		ORDER BY c.updated_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, wrap("list conversations", err)
	}
	defer rows.Close()

	out := make([]domconv.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, wrap("scan conversation", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list conversations", err)
	}
	return out, nil
}

// Messages returns messages in insertion order with the venues each was grounded on.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]domconv.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY seq`, conversationID)
	if err != nil {
		return nil, wrap("list messages", err)
	}
	defer rows.Close()

	out := make([]domconv.Message, 0)
	index := make(map[string]int)
	for rows.Next() {
		var m domconv.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, wrap("scan message", err)
		}
		m.Role = domconv.Role(role)
		index[m.ID] = len(out)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list messages", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	related, err := s.pool.Query(ctx, `
		SELECT sr.message_id, sr.snapshot
		FROM chat_search_results sr
		JOIN chat_messages m ON m.id = sr.message_id
		WHERE m.conversation_id = $1
		ORDER BY sr.message_id, sr.rank`, conversationID)
	if err != nil {
		return nil, wrap("list related venues", err)
	}
	defer related.Close()

	for related.Next() {
		var messageID string
		var snapshot []byte
		if err := related.Scan(&messageID, &snapshot); err != nil {
			return nil, wrap("scan related venue", err)
		}
		var r venue.RankedResult
		if err := json.Unmarshal(snapshot, &r); err != nil {
			return nil, fmt.Errorf("decode related venue for %s: %w: %w", messageID, domain.ErrPersistence, err)
		}
		if i, ok := index[messageID]; ok {
			out[i].Related = append(out[i].Related, r)
		}
	}
	if err := related.Err(); err != nil {
		return nil, wrap("list related venues", err)
	}
	return out, nil
}

// CountMessages returns the stored message count of a conversation.
func (s *Store) CountMessages(ctx context.Context, conversationID string) (int, error) {
	c, err := s.Get(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	return c.MessageCount, nil
}

const userColumns = `id, external_id, email, full_name, avatar_url, created_at, updated_at`

// UpsertUser inserts or updates the user keyed by external id.
func (s *Store) UpsertUser(ctx context.Context, req domuser.SyncRequest) (domuser.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, external_id, email, full_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now()
		RETURNING `+userColumns,
		newID(), req.ExternalID, req.Email, req.FullName, req.AvatarURL)
	u, err := scanUser(row)
	if err != nil {
		return domuser.User{}, wrap("upsert user", err)
	}
	return u, nil
}

// GetUser returns a user by internal id.
func (s *Store) GetUser(ctx context.Context, id string) (domuser.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domuser.User{}, wrap("get user", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (domuser.User, error) {
	var u domuser.User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func scanConversation(row pgx.Row) (domconv.Conversation, error) {
	var c domconv.Conversation
	var active bool
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &active, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
		return domconv.Conversation{}, err
	}
	c.State = domconv.StateInactive
	if active {
		c.State = domconv.StateActive
	}
	return c, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// wrap maps pgx.ErrNoRows to domain.ErrNotFound and everything else to domain.ErrPersistence.
func wrap(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
