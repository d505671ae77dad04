package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Store implements storage.Backend against a single SQLite file. It
// holds exactly one open connection: SQLite allows only one writer at a
// time, so a single connection serializes writes and avoids SQLITE_BUSY
// errors under concurrent load while WAL mode lets readers proceed
// without blocking.
type Store struct {
	db *sql.DB
}

// Open creates a SQLite-backed Store with WAL self-healing. If the
// initial open fails due to stale WAL files left behind by a crashed
// process, it verifies no other process holds them (via lsof) and
// retries once after removing the stale -shm/-wal files.
func Open(dsn string) (*Store, error) {
	store, err := openStore(dsn)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || dbPath == ":memory:" {
		return nil, err
	}

	if !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openStore(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("sqlite: failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Printf("sqlite: recovered from stale WAL files for %s", dbPath)
	return store, nil
}

func openStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	mgr, err := storage.NewMigrationManager(db, migrationsFS, migrationsDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create migration manager: %w", err)
	}
	defer mgr.Close()
	if err := mgr.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Memories() storage.MemoryRepository         { return &memoryRepo{db: s.db} }
func (s *Store) Agents() storage.AgentRepository             { return &agentRepo{db: s.db} }
func (s *Store) Messages() storage.MessageRepository         { return &messageRepo{db: s.db} }
func (s *Store) Associations() storage.AssociationRepository { return &assocRepo{db: s.db} }
func (s *Store) WorkingMemory() storage.WorkingMemoryStore   { return &workingRepo{db: s.db} }
func (s *Store) LearningFeedback() storage.LearningFeedbackStore {
	return &feedbackRepo{db: s.db}
}
func (s *Store) Embeddings() storage.EmbeddingProvider { return &embeddingRepo{db: s.db} }
func (s *Store) Graph() storage.GraphProvider          { return &graphRepo{db: s.db} }

func (s *Store) TypedStore(memoryType types.MemoryType) storage.TypedMemoryStore {
	return &typedStore{db: s.db, memoryType: memoryType}
}

// dbPathFromDSN extracts a filesystem path from a SQLite DSN, handling
// both bare paths and file: URIs.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}

	return dsn
}

// isRecoverableWALError returns true if the error matches patterns caused
// by stale WAL files left behind after a crash.
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") || strings.Contains(msg, "database is locked")
}

// isWALStale checks whether -shm/-wal files exist for the given database
// path AND no other process currently holds them open (via lsof).
// Returns false if lsof is unavailable (conservative: no deletion).
func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"

	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		return false
	}

	cmd := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath)
	output, err := cmd.Output()
	if err != nil {
		return true
	}

	return strings.TrimSpace(string(output)) == ""
}

func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("sqlite: failed to remove stale %s: %v", path, err)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
