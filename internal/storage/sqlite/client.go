package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/pkg/logger"
)

// ChatRecord is one logged chat exchange.
type ChatRecord struct {
	ID          string
	SessionID   string
	UserID      string
	UserMessage string
	Response    string
	Confidence  float64
	Intent      string
	RAGEnabled  bool
	LatencyMS   int64
	CreatedAt   time.Time
}

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_log (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT,
		user_message TEXT NOT NULL,
		response TEXT,
		confidence REAL,
		intent TEXT,
		rag_enabled INTEGER DEFAULT 0,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_log(session_id);
	CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_log(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertChatRecord(ctx context.Context, record ChatRecord) error {
	query := `
		INSERT INTO chat_log (id, session_id, user_id, user_message, response, confidence, intent, rag_enabled, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ragEnabled := 0
	if record.RAGEnabled {
		ragEnabled = 1
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.SessionID,
		record.UserID,
		record.UserMessage,
		record.Response,
		record.Confidence,
		record.Intent,
		ragEnabled,
		record.LatencyMS,
		createdAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chat record: %w", err)
	}

	logger.Debug("Chat recorded",
		zap.String("session_id", record.SessionID),
		zap.String("intent", record.Intent),
		zap.Float64("confidence", record.Confidence),
	)

	return nil
}

func (c *Client) GetSessionRecords(ctx context.Context, sessionID string, limit int) ([]ChatRecord, error) {
	query := `
		SELECT id, session_id, user_id, user_message, response, confidence, intent, rag_enabled, latency_ms, created_at
		FROM chat_log
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get session records: %w", err)
	}
	defer rows.Close()

	var records []ChatRecord
	for rows.Next() {
		var r ChatRecord
		var ragEnabled int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.SessionID, &r.UserID, &r.UserMessage, &r.Response, &r.Confidence, &r.Intent, &ragEnabled, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.RAGEnabled = ragEnabled == 1
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, nil
}
