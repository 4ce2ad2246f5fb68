package board

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// Messages is the append-only message store. Both list views cover the
// same persisted set; they differ only in sort order. Parent ids are not
// checked against the store at append time.
type Messages interface {
	ListNewestFirst(ctx context.Context) ([]*Message, error)
	ListOldestFirst(ctx context.Context) ([]*Message, error)
	Append(ctx context.Context, author, body string, parent *int64) (*Message, error)
}

// MessagesRepository implements Messages using Bun.
type MessagesRepository struct {
	db *bun.DB
}

var _ Messages = (*MessagesRepository)(nil)

// NewMessagesRepository creates a new repository.
func NewMessagesRepository(db *bun.DB) *MessagesRepository {
	return &MessagesRepository{db: db}
}

// ListNewestFirst returns every message, most recent first. This is the
// ordering the top-level feed renders.
func (r *MessagesRepository) ListNewestFirst(ctx context.Context) ([]*Message, error) {
	return r.list(ctx, "?TableAlias.date DESC, ?TableAlias.id DESC")
}

// ListOldestFirst returns every message, oldest first, the ordering used
// to resolve reply threading context.
func (r *MessagesRepository) ListOldestFirst(ctx context.Context) ([]*Message, error) {
	return r.list(ctx, "?TableAlias.date ASC, ?TableAlias.id ASC")
}

func (r *MessagesRepository) list(ctx context.Context, order string) ([]*Message, error) {
	var records []*Message
	err := r.db.NewSelect().
		Model(&records).
		OrderExpr(order).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return []*Message{}, nil
		}
		return nil, err
	}

	if records == nil {
		records = []*Message{}
	}

	return records, nil
}

// Append persists a new message and returns it with its assigned id. A
// message is either fully visible or absent; there is no partial write.
func (r *MessagesRepository) Append(ctx context.Context, author, body string, parent *int64) (*Message, error) {
	record := &Message{
		Username: author,
		Body:     body,
		Date:     time.Now(),
		Parent:   parent,
	}

	_, err := r.db.NewInsert().
		Model(record).
		Returning("id").
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	return record, nil
}
