package models

import "time"

// Tier represents a user's product tier
type Tier string

const (
	TierFree Tier = "free" // Free tier with a monthly query limit
	TierPaid Tier = "paid" // Paid subscription, unmetered
)

// User is the locally mirrored slice of the identity provider's profile,
// enriched with product tier and usage counters. The provider owns the
// profile fields; this record is never the source of truth for them.
type User struct {
	ID         string    `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	FirstName  string    `json:"firstName,omitempty" db:"first_name"`
	LastName   string    `json:"lastName,omitempty" db:"last_name"`
	Tier       Tier      `json:"tier" db:"tier"`
	QueryCount int       `json:"queryCount" db:"query_count"`
	QueryLimit int       `json:"queryLimit" db:"query_limit"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// CanQuery returns true if the user may issue another bookkeeping query
func (u *User) CanQuery() bool {
	return u.Tier == TierPaid || u.QueryCount < u.QueryLimit
}

// Conversation is one bookkeeping chat thread owned by a user
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is a single exchange inside a conversation
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Role           string    `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Document is the metadata record for a receipt or statement uploaded by a
// user. The bytes themselves live in object storage under StorageKey.
type Document struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	StorageKey string    `json:"storage_key" db:"storage_key"`
	Filename   string    `json:"filename" db:"filename"`
	Size       int64     `json:"size" db:"size"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}
