package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opendoor-ai/chatcore/internal/types"
)

// MessageRepository handles database operations for the append-only
// message log. Messages are never updated or deleted individually.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Append stores a message, assigning the next sequence number from the
// owning conversation's counter. Counter bump and insert share one
// transaction, so sequences are gapless and strictly monotonic per
// conversation.
func (r *MessageRepository) Append(ctx context.Context, convID uuid.UUID, role types.MessageRole, content string) (types.Message, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return types.Message{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var seq int64
	err = tx.QueryRow(ctx,
		`UPDATE conversations SET message_seq = message_seq + 1, updated_at = now()
		 WHERE id = $1 RETURNING message_seq`,
		convID,
	).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Message{}, ErrNotFound
		}
		return types.Message{}, fmt.Errorf("advance sequence: %w", err)
	}

	msg := types.Message{
		ConversationID: convID.String(),
		Role:           role,
		Content:        content,
		Status:         types.StatusSent,
		Sequence:       &seq,
	}
	var id uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, role, content, sequence)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		convID, string(role), content, seq,
	).Scan(&id, &msg.CreatedAt)
	if err != nil {
		return types.Message{}, fmt.Errorf("insert message: %w", err)
	}
	msg.ID = id.String()

	if err := tx.Commit(ctx); err != nil {
		return types.Message{}, fmt.Errorf("commit: %w", err)
	}
	return msg, nil
}

// ListAfter returns messages with sequence > afterSequence, ordered by
// sequence. afterSequence 0 returns the full history.
func (r *MessageRepository) ListAfter(ctx context.Context, convID uuid.UUID, afterSequence int64) ([]types.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, sequence, created_at
		 FROM messages
		 WHERE conversation_id = $1 AND sequence > $2
		 ORDER BY sequence ASC`,
		convID, afterSequence,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []types.Message
	for rows.Next() {
		var (
			id   uuid.UUID
			cid  uuid.UUID
			role string
			seq  int64
			msg  types.Message
		)
		if err := rows.Scan(&id, &cid, &role, &msg.Content, &seq, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID = id.String()
		msg.ConversationID = cid.String()
		msg.Role = types.MessageRole(role)
		msg.Status = types.StatusSent
		msg.Sequence = &seq
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
