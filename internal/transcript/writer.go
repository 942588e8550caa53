// Package transcript persists conversation history: plain JSON
// snapshot files for the current session and a compressed SQLite
// archive of completed conversations.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tradewind-ai/tradewind/internal/conversation"
)

// FileWriter snapshots the full conversation to one JSON file per
// session. The file is named after the session start time and
// rewritten on every persist, so it always holds the complete history
// including failed queries.
type FileWriter struct {
	dir    string
	path   string
	logger *slog.Logger
}

// NewFileWriter creates the snapshot directory if needed and fixes the
// session's file name from the current time.
func NewFileWriter(dir string, logger *slog.Logger) (*FileWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	name := fmt.Sprintf("conversation_%s.json", time.Now().UTC().Format("20060102T150405Z"))
	return &FileWriter{
		dir:    dir,
		path:   filepath.Join(dir, name),
		logger: logger.With("component", "transcript"),
	}, nil
}

// Path returns the session snapshot file path.
func (w *FileWriter) Path() string { return w.path }

// Persist overwrites the session file with the full message list in
// log projection. The write goes through a temp file and rename so a
// crash mid-write never leaves a truncated snapshot.
func (w *FileWriter) Persist(messages []conversation.Message) error {
	plain := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		plain = append(plain, conversation.ToPlain(m))
	}

	data, err := json.MarshalIndent(map[string]any{"messages": plain}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".transcript-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close transcript: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename transcript: %w", err)
	}

	w.logger.Debug("transcript persisted", "path", w.path, "messages", len(messages), "bytes", len(data))
	return nil
}
