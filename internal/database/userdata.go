package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

// UpsertUser inserts or refreshes the local mirror of an identity-provider user
func UpsertUser(user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	var query string
	if dbType == "postgres" {
		query = `INSERT INTO users (id, email, first_name, last_name, tier, query_count, query_limit, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				tier = EXCLUDED.tier,
				query_count = EXCLUDED.query_count,
				query_limit = EXCLUDED.query_limit,
				updated_at = EXCLUDED.updated_at`
	} else {
		query = `INSERT INTO users (id, email, first_name, last_name, tier, query_count, query_limit, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				email = excluded.email,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				tier = excluded.tier,
				query_count = excluded.query_count,
				query_limit = excluded.query_limit,
				updated_at = excluded.updated_at`
	}

	_, err := dbConn.Exec(query, user.ID, user.Email, user.FirstName, user.LastName,
		user.Tier, user.QueryCount, user.QueryLimit, user.CreatedAt, user.UpdatedAt)
	return err
}

// GetUserByID retrieves the local user record
func GetUserByID(id string) (*models.User, error) {
	query := "SELECT id, email, first_name, last_name, tier, query_count, query_limit, created_at, updated_at FROM users WHERE id = ?"
	if dbType == "postgres" {
		query = "SELECT id, email, first_name, last_name, tier, query_count, query_limit, created_at, updated_at FROM users WHERE id = $1"
	}

	user := &models.User{}
	err := dbConn.QueryRow(query, id).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.Tier, &user.QueryCount, &user.QueryLimit, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ResetUsageCounters zeroes query counts for all free-tier users.
// Returns the number of affected rows.
func ResetUsageCounters() (int64, error) {
	query := "UPDATE users SET query_count = 0, updated_at = ? WHERE tier = 'free'"
	args := []interface{}{time.Now()}
	if dbType == "postgres" {
		query = "UPDATE users SET query_count = 0, updated_at = NOW() WHERE tier = 'free'"
		args = nil
	}

	result, err := dbConn.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateConversation stores a new conversation thread
func CreateConversation(conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	query := "INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	if dbType == "postgres" {
		query = "INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)"
	}
	_, err := dbConn.Exec(query, conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	return err
}

// CreateMessage stores a message inside a conversation
func CreateMessage(msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := "INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)"
	if dbType == "postgres" {
		query = "INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)"
	}
	_, err := dbConn.Exec(query, msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	return err
}

// CreateDocument stores an uploaded-document metadata record
func CreateDocument(doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	query := "INSERT INTO documents (id, user_id, storage_key, filename, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)"
	if dbType == "postgres" {
		query = "INSERT INTO documents (id, user_id, storage_key, filename, size, uploaded_at) VALUES ($1, $2, $3, $4, $5, $6)"
	}
	_, err := dbConn.Exec(query, doc.ID, doc.UserID, doc.StorageKey, doc.Filename, doc.Size, doc.UploadedAt)
	return err
}

// GetUserConversations returns all conversation threads owned by a user
func GetUserConversations(userID string) ([]models.Conversation, error) {
	query := "SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY created_at"
	if dbType == "postgres" {
		query = "SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE user_id = $1 ORDER BY created_at"
	}

	rows, err := dbConn.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// GetUserMessages returns every message across all of a user's conversations
func GetUserMessages(userID string) ([]models.Message, error) {
	query := `SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		FROM messages m JOIN conversations c ON m.conversation_id = c.id
		WHERE c.user_id = ? ORDER BY m.created_at`
	if dbType == "postgres" {
		query = `SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
			FROM messages m JOIN conversations c ON m.conversation_id = c.id
			WHERE c.user_id = $1 ORDER BY m.created_at`
	}

	rows, err := dbConn.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetUserDocuments returns metadata for a user's uploaded documents
func GetUserDocuments(userID string) ([]models.Document, error) {
	query := "SELECT id, user_id, storage_key, filename, size, uploaded_at FROM documents WHERE user_id = ? ORDER BY uploaded_at"
	if dbType == "postgres" {
		query = "SELECT id, user_id, storage_key, filename, size, uploaded_at FROM documents WHERE user_id = $1 ORDER BY uploaded_at"
	}

	rows, err := dbConn.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.StorageKey, &d.Filename, &d.Size, &d.UploadedAt); err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

// UpsertSubscription refreshes the local mirror of a billing-provider
// subscription. The row is replaced wholesale; provider state wins.
func UpsertSubscription(userID string, sub *models.Subscription) error {
	var query string
	if dbType == "postgres" {
		query = `INSERT INTO subscriptions (id, user_id, status, cancel_at_period_end, current_period_end, canceled_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (id) DO UPDATE SET
				user_id = EXCLUDED.user_id,
				status = EXCLUDED.status,
				cancel_at_period_end = EXCLUDED.cancel_at_period_end,
				current_period_end = EXCLUDED.current_period_end,
				canceled_at = EXCLUDED.canceled_at,
				updated_at = NOW()`
		_, err := dbConn.Exec(query, sub.ID, userID, sub.Status, sub.CancelAtPeriodEnd, sub.CurrentPeriodEnd, sub.CanceledAt)
		return err
	}

	query = `INSERT INTO subscriptions (id, user_id, status, cancel_at_period_end, current_period_end, canceled_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			status = excluded.status,
			cancel_at_period_end = excluded.cancel_at_period_end,
			current_period_end = excluded.current_period_end,
			canceled_at = excluded.canceled_at,
			updated_at = excluded.updated_at`
	_, err := dbConn.Exec(query, sub.ID, userID, sub.Status, sub.CancelAtPeriodEnd, sub.CurrentPeriodEnd, sub.CanceledAt, time.Now())
	return err
}

// GetUserSubscriptions returns the locally mirrored subscriptions for a user
func GetUserSubscriptions(userID string) ([]models.Subscription, error) {
	query := "SELECT id, status, cancel_at_period_end, current_period_end, canceled_at FROM subscriptions WHERE user_id = ? ORDER BY id"
	if dbType == "postgres" {
		query = "SELECT id, status, cancel_at_period_end, current_period_end, canceled_at FROM subscriptions WHERE user_id = $1 ORDER BY id"
	}

	rows, err := dbConn.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.Status, &s.CancelAtPeriodEnd, &s.CurrentPeriodEnd, &s.CanceledAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// BuildUserExport assembles the locally held portion of a data export
func BuildUserExport(userID string) (*models.DataExport, error) {
	user, err := GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	export := &models.DataExport{
		UserID:     userID,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if user != nil {
		export.Email = user.Email
		export.FirstName = user.FirstName
		export.LastName = user.LastName
		export.CreatedAt = user.CreatedAt.UnixMilli()
		export.Tier = user.Tier
		export.QueryCount = user.QueryCount
	}

	if export.Conversations, err = GetUserConversations(userID); err != nil {
		return nil, fmt.Errorf("failed to export conversations: %w", err)
	}
	if export.Messages, err = GetUserMessages(userID); err != nil {
		return nil, fmt.Errorf("failed to export messages: %w", err)
	}
	if export.Documents, err = GetUserDocuments(userID); err != nil {
		return nil, fmt.Errorf("failed to export documents: %w", err)
	}

	return export, nil
}

// PurgeUserData removes every locally held record for a user in one
// transaction: messages, conversations, documents, subscription mirror and
// the user row itself.
func PurgeUserData(userID string) error {
	tx, err := dbConn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin purge transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE user_id = ?)`,
		`DELETE FROM conversations WHERE user_id = ?`,
		`DELETE FROM documents WHERE user_id = ?`,
		`DELETE FROM subscriptions WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	if dbType == "postgres" {
		statements = []string{
			`DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE user_id = $1)`,
			`DELETE FROM conversations WHERE user_id = $1`,
			`DELETE FROM documents WHERE user_id = $1`,
			`DELETE FROM subscriptions WHERE user_id = $1`,
			`DELETE FROM users WHERE id = $1`,
		}
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt, userID); err != nil {
			return fmt.Errorf("failed to purge user data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purge: %w", err)
	}

	log.Printf("[DELETE] Purged local data for user %s", userID)
	return nil
}

// RecordDeletion writes the compliance audit row for a completed deletion
func RecordDeletion(audit *models.DeletionAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.DeletedAt.IsZero() {
		audit.DeletedAt = time.Now()
	}

	query := "INSERT INTO deletion_audit (id, user_id, email, exported, deleted_at) VALUES (?, ?, ?, ?, ?)"
	if dbType == "postgres" {
		query = "INSERT INTO deletion_audit (id, user_id, email, exported, deleted_at) VALUES ($1, $2, $3, $4, $5)"
	}
	_, err := dbConn.Exec(query, audit.ID, audit.UserID, audit.Email, audit.Exported, audit.DeletedAt)
	return err
}

// PurgeDeletionAuditBefore removes audit rows past the retention window
func PurgeDeletionAuditBefore(cutoff time.Time) (int64, error) {
	query := "DELETE FROM deletion_audit WHERE deleted_at < ?"
	if dbType == "postgres" {
		query = "DELETE FROM deletion_audit WHERE deleted_at < $1"
	}

	result, err := dbConn.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
