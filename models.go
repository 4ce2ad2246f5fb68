package board

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Verified      bool       `bun:"verified,notnull,default:false" json:"verified"`
	Admin         bool       `bun:"admin,notnull,default:false" json:"admin"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Message is a board post. Replies reference their parent post through
// Parent; replies themselves never accept replies, so the thread depth is
// exactly one. Username is a denormalized copy of the author's name taken
// at append time, not a live reference.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:msg"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Username      string    `bun:"username,notnull" json:"username"`
	Body          string    `bun:"message,notnull" json:"message"`
	Date          time.Time `bun:"date,notnull,default:current_timestamp" json:"date"`
	Parent        *int64    `bun:"parent" json:"parent,omitempty"`
}

// IsReply reports whether the message is a child of another post.
func (m *Message) IsReply() bool {
	return m != nil && m.Parent != nil
}

// SessionRecord is the server-side half of a session. The token column is
// the opaque value clients echo back inside the signed cookie.
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	Token         string     `bun:"token,pk" json:"token,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
}

// Expired reports whether the session is past its server-side lifetime.
func (s *SessionRecord) Expired(now time.Time) bool {
	return s == nil || now.After(s.ExpiresAt)
}
