package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/courseqa/memory"
)

// SQLiteStore implements memory.LongTermStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	tableName string
}

var _ memory.LongTermStore = (*SQLiteStore)(nil)

// SQLiteOptions configures a SQLite store.
type SQLiteOptions struct {
	Path      string
	TableName string // Default "long_term_memories"
}

// NewSQLiteStore opens the database and creates the schema.
func NewSQLiteStore(opts SQLiteOptions) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = defaultTableName
	}

	s := &SQLiteStore{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the table if it doesn't exist.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			namespace TEXT NOT NULL DEFAULT '',
			memory_type TEXT NOT NULL DEFAULT '',
			topics TEXT,
			entities TEXT,
			embedding TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s (user_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces memories in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, memories []memory.StoredMemory) error {
	if len(memories) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			user_id = excluded.user_id,
			session_id = excluded.session_id,
			namespace = excluded.namespace,
			memory_type = excluded.memory_type,
			topics = excluded.topics,
			entities = excluded.entities,
			embedding = excluded.embedding,
			created_at = excluded.created_at
	`, s.tableName, selectColumns)

	for _, m := range memories {
		r, err := toRow(m)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query,
			r.id, r.text, r.userID, r.sessionID, r.namespace, r.memoryType,
			string(r.topics), string(r.entities), string(r.embedding), r.createdAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save memory %s: %w", r.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit memories: %w", err)
	}
	return nil
}

// Search loads the rows matching req's column filters and ranks them.
func (s *SQLiteStore) Search(ctx context.Context, req memory.SearchRequest, query []float32) (*memory.SearchResult, error) {
	where, args := whereClause(req, func(int) string { return "?" })
	stmt := fmt.Sprintf("SELECT %s FROM %s%s", selectColumns, s.tableName, where)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	var candidates []memory.StoredMemory
	for rows.Next() {
		var r row
		var topics, entities, embedding sql.NullString
		if err := rows.Scan(&r.id, &r.text, &r.userID, &r.sessionID, &r.namespace, &r.memoryType,
			&topics, &entities, &embedding, &r.createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		r.topics, r.entities, r.embedding = []byte(topics.String), []byte(entities.String), []byte(embedding.String)
		m, err := r.stored()
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memory rows: %w", err)
	}

	return memory.RankMemories(candidates, req, query), nil
}

// Delete removes memories by id and reports how many existed.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.tableName, marks), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memories: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted memories: %w", err)
	}
	return int(n), nil
}
