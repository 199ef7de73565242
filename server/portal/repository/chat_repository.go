package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// ListConversationSummaries returns the caller's conversations ordered by
// recency, each with its last message and the caller's unread count (messages
// after their last_read_at not authored by them).
func (r *ChatRepository) ListConversationSummaries(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			c.id, c.type, c.name, c.created_at, c.updated_at,
			lm.content,
			COALESCE(lm.created_at, c.created_at) AS last_message_at,
			COALESCE((
				SELECT COUNT(*)::BIGINT
				FROM messages m
				WHERE m.conversation_id = c.id
				  AND m.deleted_at IS NULL
				  AND m.sender_id <> $1
				  AND m.created_at > cp.last_read_at
			), 0) AS unread_count
		FROM conversation_participants cp
		JOIN conversations c ON c.id = cp.conversation_id
		LEFT JOIN LATERAL (
			SELECT m.content, m.created_at
			FROM messages m
			WHERE m.conversation_id = c.id AND m.deleted_at IS NULL
			ORDER BY m.created_at DESC
			LIMIT 1
		) lm ON true
		WHERE cp.user_id = $1
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ConversationSummary, 0)
	for rows.Next() {
		var s domain.ConversationSummary
		if err := rows.Scan(&s.ID, &s.Type, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.LastMessage, &s.LastMessageAt, &s.UnreadCount); err != nil {
			return nil, err
		}
		s.IsGroup = s.Type == domain.ConversationGroup
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		participants, err := r.ListParticipants(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Participants = participants
		items[i].ParticipantCount = len(participants)
	}
	return items, nil
}

// FindIndividualConversation matches an existing 1:1 conversation by exact
// participant set, so starting the same chat twice reuses the first one.
func (r *ChatRepository) FindIndividualConversation(ctx context.Context, userA, userB string) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT c.id, c.type, c.name, c.created_by, c.created_at, c.updated_at
		FROM conversations c
		WHERE c.type='individual'
		  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id=c.id AND user_id=$1)
		  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id=c.id AND user_id=$2)
		  AND (SELECT COUNT(*) FROM conversation_participants WHERE conversation_id=c.id) = 2
		LIMIT 1
	`, userA, userB).Scan(&c.ID, &c.Type, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, domain.ErrNotFound
	}
	return c, err
}

func (r *ChatRepository) CreateConversation(ctx context.Context, convType string, name *string, createdBy string, participantIDs []string) (domain.Conversation, error) {
	var c domain.Conversation

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return c, err
	}
	defer tx.Rollback(ctx)

	// Re-check the pair inside the transaction so two simultaneous "start
	// chat" calls cannot both insert.
	if convType == domain.ConversationIndividual && len(participantIDs) == 2 {
		err := tx.QueryRow(ctx, `
			SELECT c.id, c.type, c.name, c.created_by, c.created_at, c.updated_at
			FROM conversations c
			WHERE c.type='individual'
			  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id=c.id AND user_id=$1)
			  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id=c.id AND user_id=$2)
			  AND (SELECT COUNT(*) FROM conversation_participants WHERE conversation_id=c.id) = 2
			LIMIT 1
			FOR UPDATE OF c
		`, participantIDs[0], participantIDs[1]).Scan(&c.ID, &c.Type, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
		if err == nil {
			return c, tx.Commit(ctx)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return c, err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (type, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, type, name, created_by, created_at, updated_at
	`, convType, name, createdBy).Scan(&c.ID, &c.Type, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}

	for _, userID := range participantIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, c.ID, userID); err != nil {
			return c, err
		}
	}

	return c, tx.Commit(ctx)
}

func (r *ChatRepository) ListParticipants(ctx context.Context, conversationID string) ([]domain.UserSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.role, u.profile_photo_url
		FROM conversation_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.conversation_id=$1
		ORDER BY cp.joined_at ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.UserSummary, 0)
	for rows.Next() {
		var u domain.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.ProfilePhotoURL); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *ChatRepository) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM conversation_participants WHERE conversation_id=$1
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ChatRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id=$1 AND user_id=$2
		)
	`, conversationID, userID).Scan(&exists)
	return exists, err
}

func (r *ChatRepository) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.created_at,
		       u.id, u.name, u.profile_photo_url
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id=$1 AND m.deleted_at IS NULL
		ORDER BY m.created_at ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt,
			&m.Sender.ID, &m.Sender.Name, &m.Sender.ProfilePhotoURL); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// TouchLastRead moves the caller's read marker to now. Last write wins on
// concurrent pollers; the marker only ever moves forward from the reader's
// point of view because it is set to the wall clock.
func (r *ChatRepository) TouchLastRead(ctx context.Context, conversationID, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversation_participants
		SET last_read_at=NOW()
		WHERE conversation_id=$1 AND user_id=$2
	`, conversationID, userID)
	return err
}

func (r *ChatRepository) CreateMessage(ctx context.Context, conversationID, senderID, content string) (domain.Message, error) {
	var m domain.Message
	err := r.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO messages (conversation_id, sender_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, conversation_id, sender_id, content, created_at
		)
		SELECT i.id, i.conversation_id, i.sender_id, i.content, i.created_at,
		       u.id, u.name, u.profile_photo_url
		FROM inserted i
		JOIN users u ON u.id = i.sender_id
	`, conversationID, senderID, content).Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt,
		&m.Sender.ID, &m.Sender.Name, &m.Sender.ProfilePhotoURL,
	)
	if err != nil {
		return m, err
	}
	_, err = r.pool.Exec(ctx, `UPDATE conversations SET updated_at=NOW() WHERE id=$1`, conversationID)
	return m, err
}
