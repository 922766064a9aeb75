package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockUser(ctx context.Context, userID string) error {
	var id string
	if err := t.tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id); err != nil {
		return wrap("lock user", err)
	}
	return nil
}

func (t *pgTx) LockConversation(ctx context.Context, id string) (domconv.Conversation, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+conversationColumns+`
		FROM chat_conversations c WHERE c.id = $1 FOR UPDATE OF c`, id)
	c, err := scanConversation(row)
	if err != nil {
		return domconv.Conversation{}, wrap("lock conversation", err)
	}
	return c, nil
}

func (t *pgTx) CountActive(ctx context.Context, userID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_conversations WHERE user_id = $1 AND is_active`, userID).Scan(&n)
	if err != nil {
		return 0, wrap("count active conversations", err)
	}
	return n, nil
}

func (t *pgTx) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE conversation_id = $1`, conversationID).Scan(&n)
	if err != nil {
		return 0, wrap("count messages", err)
	}
	return n, nil
}

func (t *pgTx) InsertConversation(ctx context.Context, userID, title string) (domconv.Conversation, error) {
	c := domconv.Conversation{ID: newID(), UserID: userID, Title: title, State: domconv.StateActive}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO chat_conversations (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`, c.ID, userID, title).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domconv.Conversation{}, wrap("insert conversation", err)
	}
	return c, nil
}

func (t *pgTx) InsertMessage(
	ctx context.Context, conversationID string, role domconv.Role, content string,
) (domconv.Message, error) {
	m := domconv.Message{ID: newID(), ConversationID: conversationID, Role: role, Content: content}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO chat_messages (id, conversation_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, m.ID, conversationID, string(role), content).Scan(&m.CreatedAt)
	if err != nil {
		return domconv.Message{}, wrap("insert message", err)
	}
	return m, nil
}

func (t *pgTx) InsertAttribution(ctx context.Context, messageID string, results []venue.RankedResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range results {
		snapshot, err := json.Marshal(&results[i])
		if err != nil {
			return fmt.Errorf("encode venue %s: %w: %w", results[i].ID, domain.ErrPersistence, err)
		}
		batch.Queue(`
			INSERT INTO chat_search_results (message_id, rank, venue_id, relevance_score, snapshot)
			VALUES ($1, $2, $3, $4, $5)`,
			messageID, results[i].Rank, results[i].ID, results[i].Score, string(snapshot))
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return wrap("insert attribution", err)
	}
	return nil
}

func (t *pgTx) UpdateTitle(ctx context.Context, id, title string) error {
	return t.exec(ctx, "update title",
		`UPDATE chat_conversations SET title = $2, updated_at = now() WHERE id = $1`, id, title)
}

func (t *pgTx) Deactivate(ctx context.Context, id string) error {
	return t.exec(ctx, "deactivate conversation",
		`UPDATE chat_conversations SET is_active = FALSE WHERE id = $1`, id)
}

func (t *pgTx) Touch(ctx context.Context, id string) error {
	return t.exec(ctx, "touch conversation",
		`UPDATE chat_conversations SET updated_at = now() WHERE id = $1`, id)
}

// exec runs a single-row update and reports a missing row as ErrNotFound.
func (t *pgTx) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
