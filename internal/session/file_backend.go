package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []Session
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			id := strings.TrimSpace(row.ID)
			if id == "" {
				continue
			}
			s.byID[id] = normalizeSession(row)
		}
	})
}

func (s *Store) saveFile() {
	s.ensureLoadedFile()
	s.mu.RLock()
	rows := make([]Session, 0, len(s.byID))
	for _, sess := range s.byID {
		rows = append(rows, normalizeSession(sess))
	}
	s.mu.RUnlock()
	sortSessions(rows)

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, b, 0o644)
}

func (s *Store) getFile(id string) (Session, bool) {
	s.ensureLoadedFile()
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, false
	}
	s.mu.RLock()
	sess, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	return normalizeSession(sess), true
}

func (s *Store) putFile(sess Session) {
	s.ensureLoadedFile()
	normalized := normalizeSession(sess)
	if normalized.ID == "" {
		return
	}
	s.mu.Lock()
	s.byID[normalized.ID] = normalized
	s.mu.Unlock()
	s.saveFile()
}

func (s *Store) updateFile(id string, fn func(*Session)) (Session, bool) {
	s.ensureLoadedFile()
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, false
	}
	s.mu.Lock()
	sess, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return Session{}, false
	}
	fn(&sess)
	sess.ID = id
	sess.UpdatedAt = time.Now().UTC()
	sess = normalizeSession(sess)
	s.byID[id] = sess
	s.mu.Unlock()
	s.saveFile()
	return sess, true
}

func (s *Store) deleteFile(id string) {
	s.ensureLoadedFile()
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
	s.saveFile()
}

func (s *Store) listFile() []Session {
	s.ensureLoadedFile()
	s.mu.RLock()
	out := make([]Session, 0, len(s.byID))
	for _, sess := range s.byID {
		out = append(out, normalizeSession(sess))
	}
	s.mu.RUnlock()
	sortSessions(out)
	return out
}

// sortSessions orders newest first, ID as tie-break so output is
// stable.
func sortSessions(rows []Session) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
}
