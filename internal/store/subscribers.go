package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSubscriber builds an unsaved subscriber for a chat, active by default:
// first contact both registers and subscribes.
func NewSubscriber(chatID int64) *Subscriber {
	now := time.Now().UTC()
	return &Subscriber{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Store) InsertSubscriber(ctx context.Context, sub *Subscriber) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers(id, chat_id, email, credential, active, blocked, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		sub.ID, sub.ChatID, nullStr(sub.Email), nullBytes(sub.Credential),
		boolInt(sub.Active), boolInt(sub.Blocked),
		sub.CreatedAt.Format(time.RFC3339Nano), sub.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (s *Store) UpdateSubscriber(ctx context.Context, sub *Subscriber) error {
	sub.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET email=?, credential=?, active=?, blocked=?, updated_at=? WHERE id=?`,
		nullStr(sub.Email), nullBytes(sub.Credential),
		boolInt(sub.Active), boolInt(sub.Blocked),
		sub.UpdatedAt.Format(time.RFC3339Nano), sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscriber: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSubscriberByChat returns the subscriber for a chat, or ErrNotFound.
func (s *Store) GetSubscriberByChat(ctx context.Context, chatID int64) (*Subscriber, error) {
	row := s.db.QueryRowContext(ctx, selectSubscribers+` WHERE chat_id = ?`, chatID)
	return scanSubscriber(row)
}

// GetSubscriberByEmail matches the stored email exactly.
func (s *Store) GetSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error) {
	row := s.db.QueryRowContext(ctx, selectSubscribers+` WHERE email = ?`, email)
	return scanSubscriber(row)
}

// EnsureSubscriber returns the subscriber for chatID, creating one on first
// contact.
func (s *Store) EnsureSubscriber(ctx context.Context, chatID int64) (*Subscriber, error) {
	sub, err := s.GetSubscriberByChat(ctx, chatID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	sub = NewSubscriber(chatID)
	if err := s.InsertSubscriber(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubscribers returns every subscriber matching the filter, ordered by
// creation time. Pagination is the caller's concern (offsets are clamped at
// the command layer).
func (s *Store) ListSubscribers(ctx context.Context, filter ListFilter) ([]*Subscriber, error) {
	q := selectSubscribers
	switch filter {
	case FilterAll, "":
	case FilterActive:
		q += ` WHERE active = 1`
	case FilterInactive:
		q += ` WHERE active = 0`
	case FilterBlocked:
		q += ` WHERE blocked = 1`
	case FilterUnblocked:
		q += ` WHERE blocked = 0`
	default:
		return nil, fmt.Errorf("unknown filter %q", filter)
	}
	q += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []*Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Eligible returns subscribers that should be processed in a cycle:
// active and not blocked.
func (s *Store) Eligible(ctx context.Context) ([]*Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		selectSubscribers+` WHERE active = 1 AND blocked = 0 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("eligible subscribers: %w", err)
	}
	defer rows.Close()

	var out []*Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SetBlocked flips the blocked flag by subscriber ID.
func (s *Store) SetBlocked(ctx context.Context, id string, blocked bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET blocked=?, updated_at=? WHERE id=?`,
		boolInt(blocked), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectSubscribers = `SELECT id, chat_id, email, credential, active, blocked, created_at, updated_at FROM subscribers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*Subscriber, error) {
	var (
		sub                  Subscriber
		email                sql.NullString
		cred                 []byte
		active, blocked      int
		createdAt, updatedAt string
	)
	err := row.Scan(&sub.ID, &sub.ChatID, &email, &cred, &active, &blocked, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	sub.Email = email.String
	sub.Credential = cred
	sub.Active = active != 0
	sub.Blocked = blocked != 0
	sub.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	sub.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &sub, nil
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullBytes(v []byte) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
