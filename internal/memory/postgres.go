package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the episodic conversation log in PostgreSQL.
// Each turn is stored as two rows sharing a session id and timestamp, one
// tagged with the user role and one with the assistant role.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, classifyPg("connect postgres", KindConnection, err)
	}

	if err := initChatSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initChatSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_session_created ON chat_history (session_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_created ON chat_history (created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return classifyPg(fmt.Sprintf("init chat schema on %q", stmt), KindSchema, err)
		}
	}
	return nil
}

// Append writes the user and assistant rows of one turn in a single
// transaction; both rows commit or neither does.
func (s *PostgresStore) Append(ctx context.Context, sessionID, userMessage, assistantMessage string, ts time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classifyPg("begin append tx", KindConnection, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `INSERT INTO chat_history (id, session_id, role, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, insert, uuid.NewString(), sessionID, string(RoleUser), userMessage, ts); err != nil {
		return classifyPg("insert user row", KindWrite, err)
	}
	if _, err := tx.Exec(ctx, insert, uuid.NewString(), sessionID, string(RoleAssistant), assistantMessage, ts); err != nil {
		return classifyPg("insert assistant row", KindWrite, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyPg("commit append tx", KindWrite, err)
	}
	return nil
}

// Recent returns up to limit turns (2*limit rows) in ascending chronological
// order. Rows within a turn share a timestamp, so the role is used as a
// tiebreaker to keep the user message ahead of the assistant reply.
func (s *PostgresStore) Recent(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, text, created_at FROM chat_history
		 WHERE session_id=$1 ORDER BY created_at DESC, role ASC LIMIT $2`,
		sessionID,
		limit*2,
	)
	if err != nil {
		return nil, classifyPg("query recent history", KindQuery, err)
	}
	defer rows.Close()

	msgs := make([]Message, 0, limit*2)
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&role, &m.Text, &m.Timestamp); err != nil {
			return nil, classifyPg("scan history row", KindQuery, err)
		}
		m.Role = Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPg("iterate history rows", KindQuery, err)
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

// Cleanup deletes rows older than the retention window and reports the count.
func (s *PostgresStore) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, classifyPg("delete expired rows", KindWrite, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Stats(ctx context.Context) (EpisodicStats, error) {
	var st EpisodicStats
	var last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT session_id), MAX(created_at) FROM chat_history`,
	).Scan(&st.Messages, &st.Sessions, &last)
	if err != nil {
		return EpisodicStats{}, classifyPg("query episodic stats", KindQuery, err)
	}
	if last != nil {
		st.LastMessageAt = *last
	}
	return st, nil
}

func (s *PostgresStore) SessionStats(ctx context.Context, sessionID string) (SessionStats, error) {
	st := SessionStats{SessionID: sessionID}
	var first, last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE role=$2),
		        COUNT(*) FILTER (WHERE role=$3),
		        MIN(created_at), MAX(created_at)
		 FROM chat_history WHERE session_id=$1`,
		sessionID, string(RoleUser), string(RoleAssistant),
	).Scan(&st.TotalMessages, &st.UserMessages, &st.AssistantMessages, &first, &last)
	if err != nil {
		return SessionStats{}, classifyPg("query session stats", KindQuery, err)
	}
	if first != nil {
		st.FirstMessageAt = *first
	}
	if last != nil {
		st.LastMessageAt = *last
	}
	st.ConversationPairs = st.UserMessages
	if st.AssistantMessages < st.ConversationPairs {
		st.ConversationPairs = st.AssistantMessages
	}
	return st, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
