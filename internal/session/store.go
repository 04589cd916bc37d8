package session

import (
	"database/sql"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store persists sessions. With a path it keeps a JSON file; with a
// DSN it keeps a Postgres table and a small read cache in front of it.
// Every method dispatches on which backend is wired.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]Session

	schemaOnce sync.Once
	schemaErr  error

	recent *lru.Cache[string, Session]
}

// NewStore opens the JSON-file backend at path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]Session),
	}
}

// NewPostgresStore opens the Postgres backend.
func NewPostgresStore(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, Session](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, recent: cache}, nil
}

// NewStoreFromEnv picks the backend from SESSION_DSN, falling back to
// the JSON file at path when the DSN is unset or unreachable.
func NewStoreFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("SESSION_DSN"))
	if dsn == "" {
		return NewStore(path)
	}
	s, err := NewPostgresStore(dsn)
	if err != nil {
		return NewStore(path)
	}
	return s
}

// EnsureLoaded makes the backend ready: the file backend reads its
// snapshot, the Postgres backend creates its schema.
func (s *Store) EnsureLoaded() {
	if s == nil {
		return
	}
	if s.db != nil {
		_ = s.ensureSchema()
		return
	}
	s.ensureLoadedFile()
}

// Get returns the session by ID.
func (s *Store) Get(id string) (Session, bool) {
	if s == nil {
		return Session{}, false
	}
	if s.db != nil {
		return s.getDB(id)
	}
	return s.getFile(id)
}

// Put inserts or replaces a session. Sessions without an ID are
// dropped.
func (s *Store) Put(sess Session) {
	if s == nil {
		return
	}
	if s.db != nil {
		s.putDB(sess)
		return
	}
	s.putFile(sess)
}

// Update applies fn to the stored session under the store's lock and
// persists the result.
func (s *Store) Update(id string, fn func(*Session)) (Session, bool) {
	if s == nil {
		return Session{}, false
	}
	if s.db != nil {
		return s.updateDB(id, fn)
	}
	return s.updateFile(id, fn)
}

// Delete removes the session by ID.
func (s *Store) Delete(id string) {
	if s == nil {
		return
	}
	if s.db != nil {
		s.deleteDB(id)
		return
	}
	s.deleteFile(id)
}

// List returns every session, newest first.
func (s *Store) List() []Session {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.listDB()
	}
	return s.listFile()
}

// Close releases the backend. The file backend flushes its snapshot.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.db.Close()
	}
	s.saveFile()
	return nil
}
