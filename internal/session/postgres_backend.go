package session

import (
	"encoding/json"
	"strings"
	"time"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  state TEXT NOT NULL DEFAULT 'input',
  payload JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions (state);
`)
	})
	return s.schemaErr
}

func scanSessionDB(row rowScanner) (Session, bool) {
	var (
		id, state string
		payload   []byte
		created   time.Time
		updated   time.Time
	)
	if err := row.Scan(&id, &state, &payload, &created, &updated); err != nil {
		return Session{}, false
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, false
	}
	sess.ID = id
	sess.State = State(state)
	sess.CreatedAt = created
	sess.UpdatedAt = updated
	return normalizeSession(sess), true
}

func (s *Store) getDB(id string) (Session, bool) {
	if err := s.ensureSchema(); err != nil {
		return Session{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, false
	}
	if s.recent != nil {
		if cached, ok := s.recent.Get(id); ok {
			return cached, true
		}
	}
	row := s.db.QueryRow(`SELECT id, state, payload, created_at, updated_at
FROM sessions WHERE id = $1`, id)
	sess, ok := scanSessionDB(row)
	if ok && s.recent != nil {
		s.recent.Add(id, sess)
	}
	return sess, ok
}

func (s *Store) putDB(sess Session) {
	if err := s.ensureSchema(); err != nil {
		return
	}
	n := normalizeSession(sess)
	if n.ID == "" {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	_, _ = s.db.Exec(`
INSERT INTO sessions (id, state, payload, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id)
DO UPDATE SET state=EXCLUDED.state,
  payload=EXCLUDED.payload,
  updated_at=EXCLUDED.updated_at`,
		n.ID, string(n.State), payload, n.CreatedAt, n.UpdatedAt)
	if s.recent != nil {
		s.recent.Remove(n.ID)
	}
}

func (s *Store) updateDB(id string, fn func(*Session)) (Session, bool) {
	if err := s.ensureSchema(); err != nil {
		return Session{}, false
	}
	tx, err := s.db.Begin()
	if err != nil {
		return Session{}, false
	}
	defer func() { _ = tx.Rollback() }()

	id = strings.TrimSpace(id)
	row := tx.QueryRow(`SELECT id, state, payload, created_at, updated_at
FROM sessions WHERE id = $1 FOR UPDATE`, id)
	cur, ok := scanSessionDB(row)
	if !ok {
		return Session{}, false
	}
	fn(&cur)
	cur.ID = id
	cur.UpdatedAt = time.Now().UTC()
	cur = normalizeSession(cur)
	payload, err := json.Marshal(cur)
	if err != nil {
		return Session{}, false
	}
	_, err = tx.Exec(`
UPDATE sessions
SET state=$2, payload=$3, updated_at=$4
WHERE id=$1`,
		cur.ID, string(cur.State), payload, cur.UpdatedAt)
	if err != nil {
		return Session{}, false
	}
	if err := tx.Commit(); err != nil {
		return Session{}, false
	}
	if s.recent != nil {
		s.recent.Remove(id)
	}
	return cur, true
}

func (s *Store) deleteDB(id string) {
	if err := s.ensureSchema(); err != nil {
		return
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	_, _ = s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id)
	if s.recent != nil {
		s.recent.Remove(id)
	}
}

func (s *Store) listDB() []Session {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT id, state, payload, created_at, updated_at
FROM sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	out := make([]Session, 0, 32)
	for rows.Next() {
		if sess, ok := scanSessionDB(rows); ok {
			out = append(out, sess)
		}
	}
	return out
}
