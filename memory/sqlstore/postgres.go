package sqlstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/courseqa/memory"
)

// DBPool is the part of *pgxpool.Pool the Postgres store uses.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements memory.LongTermStore using PostgreSQL.
type PostgresStore struct {
	pool      DBPool
	tableName string
}

var _ memory.LongTermStore = (*PostgresStore)(nil)

// PostgresOptions configures a Postgres store.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "long_term_memories"
}

// NewPostgresStore connects and creates the schema.
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := NewPostgresStoreWithPool(pool, opts.TableName)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithPool wraps an existing pool.
func NewPostgresStoreWithPool(pool DBPool, tableName string) *PostgresStore {
	if tableName == "" {
		tableName = defaultTableName
	}
	return &PostgresStore{pool: pool, tableName: tableName}
}

// InitSchema creates the table if it doesn't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			namespace TEXT NOT NULL DEFAULT '',
			memory_type TEXT NOT NULL DEFAULT '',
			topics JSONB,
			entities JSONB,
			embedding JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s (user_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Put upserts memories one statement at a time.
func (s *PostgresStore) Put(ctx context.Context, memories []memory.StoredMemory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			user_id = EXCLUDED.user_id,
			session_id = EXCLUDED.session_id,
			namespace = EXCLUDED.namespace,
			memory_type = EXCLUDED.memory_type,
			topics = EXCLUDED.topics,
			entities = EXCLUDED.entities,
			embedding = EXCLUDED.embedding,
			created_at = EXCLUDED.created_at
	`, s.tableName, selectColumns)

	for _, m := range memories {
		r, err := toRow(m)
		if err != nil {
			return err
		}
		_, err = s.pool.Exec(ctx, query,
			r.id, r.text, r.userID, r.sessionID, r.namespace, r.memoryType,
			r.topics, r.entities, r.embedding, r.createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save memory %s: %w", r.id, err)
		}
	}
	return nil
}

// Search loads the rows matching req's column filters and ranks them.
func (s *PostgresStore) Search(ctx context.Context, req memory.SearchRequest, query []float32) (*memory.SearchResult, error) {
	where, args := whereClause(req, func(n int) string { return "$" + strconv.Itoa(n) })
	stmt := fmt.Sprintf("SELECT %s FROM %s%s", selectColumns, s.tableName, where)

	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	var candidates []memory.StoredMemory
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.text, &r.userID, &r.sessionID, &r.namespace, &r.memoryType,
			&r.topics, &r.entities, &r.embedding, &r.createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
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
func (s *PostgresStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", s.tableName), ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memories: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
