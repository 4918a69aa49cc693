package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, restaurantID, title string) (*Conversation, error) {
	c := &Conversation{
		ID:           newID(),
		RestaurantID: restaurantID,
		Title:        title,
		CreatedAt:    now(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, restaurant_id, title, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		c.ID,
		c.RestaurantID,
		c.Title,
		c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, title, created_at
		FROM conversations
		WHERE restaurant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, restaurantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) FindOwned(ctx context.Context, restaurantID, conversationID string) (*Conversation, error) {
	var c Conversation
	err := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, title, created_at
		FROM conversations
		WHERE id = $1 AND restaurant_id = $2
	`, conversationID, restaurantID).Scan(&c.ID, &c.RestaurantID, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) History(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, score_total, eval_json, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role string
		var score sql.NullInt64
		var eval sql.NullString
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&role,
			&m.Content,
			&score,
			&eval,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		if score.Valid {
			v := int(score.Int64)
			m.ScoreTotal = &v
		}
		if eval.Valid {
			var e Evaluation
			if err := json.Unmarshal([]byte(eval.String), &e); err == nil {
				m.Eval = &e
			}
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

func (r *repo) AppendTurn(ctx context.Context, conversationID string, user, assistant Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// both rows share a timestamp; UUIDv7 ids keep user before assistant
	at := now()
	for _, m := range []*Message{&user, &assistant} {
		m.ID = newID()
		m.ConversationID = conversationID
		m.CreatedAt = at
		if err := insertMessage(ctx, tx, m); err != nil {
			return fmt.Errorf("insert %s message: %w", m.Role, err)
		}
	}

	return tx.Commit()
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *Message) error {
	var score, eval any
	if m.ScoreTotal != nil {
		score = int64(*m.ScoreTotal)
	}
	if m.Eval != nil {
		b, err := json.Marshal(m.Eval)
		if err != nil {
			return err
		}
		eval = string(b)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, score_total, eval_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		m.ID,
		m.ConversationID,
		string(m.Role),
		m.Content,
		score,
		eval,
		m.CreatedAt,
	)
	return err
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
