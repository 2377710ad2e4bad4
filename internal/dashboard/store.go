package dashboard

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

// Store persists chat transcripts so conversations survive dashboard
// restarts.
type Store struct {
	conn *sql.DB
}

// Message is one stored chat exchange entry.
type Message struct {
	ID        int64           `json:"id"`
	AgentID   string          `json:"agent_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DefaultStorePath returns the chat database location, honoring the
// JVCLI_DASHBOARD_DB environment variable.
func DefaultStorePath() (string, error) {
	if p := os.Getenv("JVCLI_DASHBOARD_DB"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".jvcli", "dashboard.db"), nil
}

// OpenStore opens or creates the chat database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// AppendMessage records one chat message for an agent.
func (s *Store) AppendMessage(agentID, role, content string, payload []byte) (int64, error) {
	var id int64
	err := withRetry(func() error {
		result, err := s.conn.Exec(
			`INSERT INTO messages (agent_id, role, content, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
			agentID, role, content, payload, time.Now().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// Messages returns up to limit messages for an agent, oldest first.
// A limit of zero or less means no limit.
func (s *Store) Messages(agentID string, limit int) ([]Message, error) {
	query := `SELECT id, agent_id, role, content, payload, created_at FROM messages WHERE agent_id = ? ORDER BY id`
	args := []any{agentID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Role, &m.Content, &m.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ClearMessages drops the transcript for an agent.
func (s *Store) ClearMessages(agentID string) error {
	return withRetry(func() error {
		_, err := s.conn.Exec(`DELETE FROM messages WHERE agent_id = ?`, agentID)
		return err
	})
}

// Retry helpers for SQLite busy handling
const maxRetries = 5
const baseDelay = 50 * time.Millisecond

func withRetry(fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return err
		}
		delay := baseDelay * time.Duration(1<<i)
		time.Sleep(delay)
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") ||
		strings.Contains(err.Error(), "database is locked")
}
