package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/courseqa/memory"
)

const defaultTableName = "long_term_memories"

const selectColumns = "id, text, user_id, session_id, namespace, memory_type, topics, entities, embedding, created_at"

// row is the column form of a memory.StoredMemory.
type row struct {
	id, text, userID, sessionID, namespace, memoryType string
	topics, entities, embedding                        []byte
	createdAt                                          time.Time
}

func toRow(m memory.StoredMemory) (row, error) {
	if m.ID == "" {
		return row{}, fmt.Errorf("memory without id: %q", m.Text)
	}
	r := row{
		id:         m.ID,
		text:       m.Text,
		userID:     m.UserID,
		sessionID:  m.SessionID,
		namespace:  m.Namespace,
		memoryType: m.MemoryType,
		createdAt:  m.CreatedAt,
	}
	var err error
	if r.topics, err = marshalList(m.Topics); err != nil {
		return row{}, err
	}
	if r.entities, err = marshalList(m.Entities); err != nil {
		return row{}, err
	}
	if r.embedding, err = json.Marshal(m.Embedding); err != nil {
		return row{}, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return r, nil
}

func (r row) stored() (memory.StoredMemory, error) {
	m := memory.StoredMemory{MemoryRecord: memory.MemoryRecord{
		ID:         r.id,
		Text:       r.text,
		UserID:     r.userID,
		SessionID:  r.sessionID,
		Namespace:  r.namespace,
		MemoryType: r.memoryType,
		CreatedAt:  r.createdAt,
	}}
	if err := unmarshalIfPresent(r.topics, &m.Topics); err != nil {
		return m, fmt.Errorf("failed to unmarshal topics of %s: %w", r.id, err)
	}
	if err := unmarshalIfPresent(r.entities, &m.Entities); err != nil {
		return m, fmt.Errorf("failed to unmarshal entities of %s: %w", r.id, err)
	}
	if err := unmarshalIfPresent(r.embedding, &m.Embedding); err != nil {
		return m, fmt.Errorf("failed to unmarshal embedding of %s: %w", r.id, err)
	}
	return m, nil
}

func marshalList(v []string) ([]byte, error) {
	if v == nil {
		v = []string{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list: %w", err)
	}
	return data, nil
}

func unmarshalIfPresent(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// whereClause renders the SQL-side filters of req. placeholder returns the
// bind marker for the n-th argument, starting at 1.
func whereClause(req memory.SearchRequest, placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, column+" = "+placeholder(len(args)))
	}
	add("user_id", req.UserID)
	add("session_id", req.SessionID)
	add("namespace", req.Namespace)
	add("memory_type", req.MemoryType)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
