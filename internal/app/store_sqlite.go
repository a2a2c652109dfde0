package app

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteChatStore is the durable ChatStore, one database file under the
// configured data dir.
type SQLiteChatStore struct {
	Root   string
	dbPath string

	db   *sql.DB
	once sync.Once
	err  error
}

func NewSQLiteChatStore(root string) (*SQLiteChatStore, error) {
	if strings.TrimSpace(root) == "" {
		root = DefaultDataDir()
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	st := &SQLiteChatStore{
		Root:   root,
		dbPath: filepath.Join(root, "eva-chat.db"),
	}
	// Initialize eagerly so callers fail fast.
	if err := st.init(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLiteChatStore) init() error {
	s.once.Do(func() {
		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			s.err = err
			return
		}
		// Keep sqlite responsive under contention.
		_, _ = db.Exec("PRAGMA busy_timeout = 5000;")
		_, _ = db.Exec("PRAGMA journal_mode = WAL;")
		_, _ = db.Exec("PRAGMA synchronous = NORMAL;")

		schema := []string{
			`CREATE TABLE IF NOT EXISTS chats (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				context_id TEXT NOT NULL,
				created_at_ns INTEGER NOT NULL,
				updated_at_ns INTEGER NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_chats_updated ON chats(updated_at_ns);`,
			`CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				chat_id TEXT NOT NULL,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				task_id TEXT,
				task_status TEXT,
				created_at_ns INTEGER NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at_ns);`,
		}
		for _, stmt := range schema {
			if _, err := db.Exec(stmt); err != nil {
				s.err = err
				_ = db.Close()
				return
			}
		}
		s.db = db
	})
	return s.err
}

func (s *SQLiteChatStore) dbConn() (*sql.DB, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	return s.db, nil
}

func (s *SQLiteChatStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteChatStore) AddChat(chat Chat) error {
	db, err := s.dbConn()
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO chats(id, title, context_id, created_at_ns, updated_at_ns)
		 VALUES(?, ?, ?, ?, ?)`,
		chat.ID, chat.Title, chat.ContextID, chat.CreatedAt.UnixNano(), chat.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteChatStore) GetChat(id string) (Chat, error) {
	db, err := s.dbConn()
	if err != nil {
		return Chat{}, err
	}
	row := db.QueryRow(
		`SELECT id, title, context_id, created_at_ns, updated_at_ns FROM chats WHERE id = ?`, id,
	)
	return scanChat(row)
}

func (s *SQLiteChatStore) UpdateChat(chat Chat) error {
	db, err := s.dbConn()
	if err != nil {
		return err
	}
	res, err := db.Exec(
		`UPDATE chats SET title = ?, updated_at_ns = ? WHERE id = ?`,
		chat.Title, chat.UpdatedAt.UnixNano(), chat.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrChatNotFound)
}

func (s *SQLiteChatStore) DeleteChat(id string) error {
	db, err := s.dbConn()
	if err != nil {
		return err
	}
	res, err := db.Exec(`DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrChatNotFound)
}

func (s *SQLiteChatStore) ListChats() ([]Chat, error) {
	db, err := s.dbConn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		`SELECT id, title, context_id, created_at_ns, updated_at_ns
		 FROM chats ORDER BY updated_at_ns DESC, created_at_ns DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *SQLiteChatStore) AddMessage(msg Message) error {
	db, err := s.dbConn()
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO messages(id, chat_id, role, content, task_id, task_status, created_at_ns)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, string(msg.Role), msg.Content,
		nullIfBlank(msg.TaskID), nullIfBlank(string(msg.TaskStatus)), msg.CreatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteChatStore) GetMessage(id string) (Message, error) {
	db, err := s.dbConn()
	if err != nil {
		return Message{}, err
	}
	row := db.QueryRow(
		`SELECT id, chat_id, role, content, task_id, task_status, created_at_ns
		 FROM messages WHERE id = ?`, id,
	)
	return scanMessage(row)
}

func (s *SQLiteChatStore) UpdateMessage(msg Message) error {
	db, err := s.dbConn()
	if err != nil {
		return err
	}
	res, err := db.Exec(
		`UPDATE messages SET content = ?, task_id = ?, task_status = ? WHERE id = ?`,
		msg.Content, nullIfBlank(msg.TaskID), nullIfBlank(string(msg.TaskStatus)), msg.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrMessageNotFound)
}

func (s *SQLiteChatStore) ListMessages(chatID string) ([]Message, error) {
	db, err := s.dbConn()
	if err != nil {
		return nil, err
	}
	// rowid breaks created-at ties in insertion order.
	rows, err := db.Query(
		`SELECT id, chat_id, role, content, task_id, task_status, created_at_ns
		 FROM messages WHERE chat_id = ? ORDER BY created_at_ns ASC, rowid ASC`, chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *SQLiteChatStore) DeleteMessages(chatID string) error {
	db, err := s.dbConn()
	if err != nil {
		return err
	}
	_, err = db.Exec(`DELETE FROM messages WHERE chat_id = ?`, chatID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (Chat, error) {
	var chat Chat
	var createdNs, updatedNs int64
	err := row.Scan(&chat.ID, &chat.Title, &chat.ContextID, &createdNs, &updatedNs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chat{}, ErrChatNotFound
		}
		return Chat{}, err
	}
	chat.CreatedAt = time.Unix(0, createdNs)
	chat.UpdatedAt = time.Unix(0, updatedNs)
	return chat, nil
}

func scanMessage(row rowScanner) (Message, error) {
	var msg Message
	var role string
	var taskID, taskStatus sql.NullString
	var createdNs int64
	err := row.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &taskID, &taskStatus, &createdNs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, ErrMessageNotFound
		}
		return Message{}, err
	}
	msg.Role = Role(role)
	msg.TaskID = taskID.String
	msg.TaskStatus = TaskStatus(taskStatus.String)
	msg.CreatedAt = time.Unix(0, createdNs)
	return msg, nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func nullIfBlank(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
