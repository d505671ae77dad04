package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Store implements storage.Backend against a PostgreSQL server. Unlike
// the sqlite adapter it pools connections normally: Postgres handles
// concurrent writers itself.
type Store struct {
	db               *sql.DB
	pgvectorEnabled  bool
}

// Open connects to dsn, runs migrations, and probes for the pgvector
// extension so Embeddings() can decide whether to also populate the
// embedding_vec column.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	mgr, err := storage.NewMigrationManager(db, migrationsFS, migrationsDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to create migration manager: %w", err)
	}
	defer mgr.Close()
	if err := mgr.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	s := &Store{db: db}
	s.pgvectorEnabled = s.detectPgvector(context.Background())
	return s, nil
}

// detectPgvector checks whether the embeddings table carries the
// embedding_vec column, which the 0002_pgvector migration only adds when
// the vector extension is actually installable on the server.
func (s *Store) detectPgvector(ctx context.Context) bool {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'embeddings' AND column_name = 'embedding_vec'
		)`).Scan(&exists)
	return err == nil && exists
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
func (s *Store) Embeddings() storage.EmbeddingProvider {
	return &embeddingRepo{db: s.db, pgvectorEnabled: s.pgvectorEnabled}
}
func (s *Store) Graph() storage.GraphProvider { return &graphRepo{db: s.db} }

func (s *Store) TypedStore(memoryType types.MemoryType) storage.TypedMemoryStore {
	return &typedStore{db: s.db, memoryType: memoryType}
}
