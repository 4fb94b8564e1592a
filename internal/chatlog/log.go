package chatlog

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/leaseflow/leaseflow/internal/domain"
	"github.com/oklog/ulid/v2"
)

// entropy feeds message ULIDs. The monotonic reader is not safe for
// concurrent use, so it is guarded by entropyMu.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Log is an ordered append log of chat messages over a set of physical
// tables chosen by a Partitioner.
type Log struct {
	db   *sql.DB
	part Partitioner
}

// New creates a log over the given connection and partitioning strategy.
// It creates the backing tables if they do not exist yet.
func New(db *sql.DB, part Partitioner) (*Log, error) {
	l := &Log{db: db, part: part}
	for _, table := range part.Tables() {
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id TEXT PRIMARY KEY,
				chat_id INTEGER NOT NULL,
				sender_id TEXT NOT NULL,
				receiver_id TEXT NOT NULL,
				content TEXT NOT NULL,
				file_url TEXT,
				type TEXT NOT NULL,
				is_read INTEGER NOT NULL DEFAULT 0,
				send_time TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_%[1]s_chat_time ON %[1]s(chat_id, send_time);
			CREATE INDEX IF NOT EXISTS idx_%[1]s_unread ON %[1]s(chat_id, receiver_id, is_read);`,
			table)
		if _, err := db.Exec(query); err != nil {
			return nil, fmt.Errorf("create chat table %s: %w", table, err)
		}
	}
	return l, nil
}

// Append stores a message on the shard for its chat id, assigning a ULID
// and send time when the caller left them empty. Returns the stored message.
func (l *Log) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.SenderID == "" {
		return nil, fmt.Errorf("%w: sender id is required", domain.ErrValidation)
	}
	if msg.Content == "" && msg.FileURL == "" {
		return nil, fmt.Errorf("%w: message needs content or a file", domain.ErrValidation)
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = newMessageID()
	}
	if stored.SendTime == "" {
		stored.SendTime = domain.FormatSendTime(time.Now())
	}
	switch stored.Type {
	case "":
		stored.Type = domain.MessageTypeText
	case domain.MessageTypeText, domain.MessageTypeImage, domain.MessageTypeFile:
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", domain.ErrValidation, stored.Type)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, chat_id, sender_id, receiver_id, content, file_url, type, is_read, send_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.part.Table(stored.ChatID))
	_, err := l.db.ExecContext(ctx, query,
		stored.ID, stored.ChatID, stored.SenderID, stored.ReceiverID,
		stored.Content, nullable(stored.FileURL), stored.Type, stored.IsRead, stored.SendTime,
	)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	return &stored, nil
}

// List returns the full history for a chat, ascending by send time.
func (l *Log) List(ctx context.Context, chatID int64) ([]domain.ChatMessage, error) {
	query := fmt.Sprintf(`
		%s WHERE chat_id = ? ORDER BY send_time ASC, id ASC`,
		selectClause(l.part.Table(chatID)))
	return l.queryMessages(ctx, query, chatID)
}

// ListPage returns one page of history. Rows are fetched descending by send
// time so the first page is the most recent messages, then the page is
// re-sorted ascending before returning. Callers that stitch pages together
// must account for the pages themselves arriving newest-first.
func (l *Log) ListPage(ctx context.Context, chatID int64, page, size int) ([]domain.ChatMessage, error) {
	if page < 0 || size < 1 {
		return nil, fmt.Errorf("%w: invalid page %d size %d", domain.ErrValidation, page, size)
	}

	query := fmt.Sprintf(`
		%s WHERE chat_id = ? ORDER BY send_time DESC, id DESC LIMIT ? OFFSET ?`,
		selectClause(l.part.Table(chatID)))
	msgs, err := l.queryMessages(ctx, query, chatID, size, page*size)
	if err != nil {
		return nil, err
	}

	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].SendTime != msgs[j].SendTime {
			return msgs[i].SendTime < msgs[j].SendTime
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}

// ListBetween returns messages in [start, end], inclusive on both bounds,
// ascending by send time. Used for negotiation export and audit.
func (l *Log) ListBetween(ctx context.Context, chatID int64, start, end string) ([]domain.ChatMessage, error) {
	query := fmt.Sprintf(`
		%s WHERE chat_id = ? AND send_time >= ? AND send_time <= ?
		ORDER BY send_time ASC, id ASC`,
		selectClause(l.part.Table(chatID)))
	return l.queryMessages(ctx, query, chatID, start, end)
}

// FindByID fetches one message from the chat's shard.
func (l *Log) FindByID(ctx context.Context, chatID int64, messageID string) (*domain.ChatMessage, error) {
	query := fmt.Sprintf(`%s WHERE chat_id = ? AND id = ?`,
		selectClause(l.part.Table(chatID)))
	msgs, err := l.queryMessages(ctx, query, chatID, messageID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, domain.ErrMessageNotFound
	}
	return &msgs[0], nil
}

// CountUnread counts messages addressed to the receiver that are not yet
// read.
func (l *Log) CountUnread(ctx context.Context, chatID int64, receiverID string) (int, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE chat_id = ? AND receiver_id = ? AND is_read = 0`,
		l.part.Table(chatID))

	var count int
	if err := l.db.QueryRowContext(ctx, query, chatID, receiverID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkAllRead flips is_read on every message addressed to the receiver in
// the chat. Only the receiver's read path goes through here.
func (l *Log) MarkAllRead(ctx context.Context, chatID int64, receiverID string) (int64, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET is_read = 1 WHERE chat_id = ? AND receiver_id = ? AND is_read = 0`,
		l.part.Table(chatID))

	result, err := l.db.ExecContext(ctx, query, chatID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return result.RowsAffected()
}

func selectClause(table string) string {
	return fmt.Sprintf(
		`SELECT id, chat_id, sender_id, receiver_id, content, file_url, type, is_read, send_time FROM %s`,
		table)
}

func (l *Log) queryMessages(ctx context.Context, query string, args ...interface{}) ([]domain.ChatMessage, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var fileURL sql.NullString
		if err := rows.Scan(
			&msg.ID, &msg.ChatID, &msg.SenderID, &msg.ReceiverID,
			&msg.Content, &fileURL, &msg.Type, &msg.IsRead, &msg.SendTime,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.FileURL = fileURL.String
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	return msgs, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
