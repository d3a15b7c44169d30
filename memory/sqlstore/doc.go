// Package sqlstore keeps long-term memories in SQLite or PostgreSQL.
//
// Both stores persist one row per memory with its topics, entities and
// embedding encoded as JSON. Filtering on user, session, namespace and
// memory type happens in SQL; topic matching and similarity ranking are
// done in process by memory.RankMemories.
//
//	store, err := sqlstore.NewSQLiteStore(sqlstore.SQLiteOptions{Path: "./memories.db"})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
package sqlstore
