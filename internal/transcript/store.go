package transcript

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-ai/tradewind/internal/conversation"
)

// Record is one archived conversation. Messages is populated only when
// the record was read with full content.
type Record struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Session      string
	MessageCount int
	ByteSize     int64
	Messages     []map[string]any
}

// Store archives completed conversations in SQLite, gzip-compressed.
type Store struct {
	db *sql.DB
}

// NewStore creates a transcript store using the given database.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			session TEXT NOT NULL,
			messages_gz BLOB NOT NULL,
			byte_size INTEGER NOT NULL,
			message_count INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transcripts_created
			ON transcripts(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_transcripts_session
			ON transcripts(session);
	`)
	return err
}

// Archive saves a conversation under the given session label and
// returns the stored record.
func (s *Store) Archive(session string, messages []conversation.Message) (*Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	plain := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		plain = append(plain, conversation.ToPlain(m))
	}

	body, err := json.Marshal(plain)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}

	compressed := buf.Bytes()
	now := time.Now().UTC()

	_, err = s.db.Exec(`
		INSERT INTO transcripts (id, created_at, session, messages_gz, byte_size, message_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.String(), now.Format(time.RFC3339), session, compressed, len(compressed), len(messages))
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	return &Record{
		ID:           id,
		CreatedAt:    now,
		Session:      session,
		MessageCount: len(messages),
		ByteSize:     int64(len(compressed)),
		Messages:     plain,
	}, nil
}

// Get retrieves an archived conversation by ID, including messages.
func (s *Store) Get(id uuid.UUID) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, session, messages_gz, byte_size, message_count
		FROM transcripts WHERE id = ?
	`, id.String())

	return s.scanFull(row)
}

// Latest returns the most recent archive, or nil if none exist.
func (s *Store) Latest() (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, session, messages_gz, byte_size, message_count
		FROM transcripts
		ORDER BY created_at DESC
		LIMIT 1
	`)

	rec, err := s.scanFull(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// List returns archive metadata ordered newest first, without message
// content.
func (s *Store) List(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, session, byte_size, message_count
		FROM transcripts
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var idStr, createdStr string
		if err := rows.Scan(&idStr, &createdStr, &rec.Session, &rec.ByteSize, &rec.MessageCount); err != nil {
			return nil, err
		}
		rec.ID, _ = uuid.Parse(idStr)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Prune removes archives older than the given duration, keeping at
// least minKeep. Returns the number deleted.
func (s *Store) Prune(olderThan time.Duration, minKeep int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transcripts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	if total <= minKeep {
		return 0, nil
	}

	result, err := s.db.Exec(`
		DELETE FROM transcripts
		WHERE id IN (
			SELECT id FROM transcripts
			WHERE created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, cutoff.Format(time.RFC3339), total-minKeep)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

func (s *Store) scanFull(row *sql.Row) (*Record, error) {
	var rec Record
	var idStr, createdStr string
	var messagesGz []byte

	err := row.Scan(&idStr, &createdStr, &rec.Session, &messagesGz, &rec.ByteSize, &rec.MessageCount)
	if err != nil {
		return nil, err
	}

	rec.ID, _ = uuid.Parse(idStr)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)

	gr, err := gzip.NewReader(bytes.NewReader(messagesGz))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gr.Close()

	body, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if err := json.Unmarshal(body, &rec.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}

	return &rec, nil
}
