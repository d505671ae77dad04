// Package storage defines the seven repository contracts the memory
// orchestration engine is built against, plus the shared list/pagination
// and graph-bounds types those contracts use. Two concrete adapters
// implement every contract against the same schema: internal/storage/sqlite
// (embedded, single file) and internal/storage/postgres (server mode).
// internal/storage/memstore provides a third, in-process adapter for
// tests. Each adapter is constructed directly; no storage URL is parsed.
package storage

import (
	"context"
	"time"

	"github.com/scrypster/memento-engine/pkg/types"
)

// MemoryRepository is the primary CRUD + search contract over Memory
// entities.
type MemoryRepository interface {
	Create(ctx context.Context, memory *types.Memory) error
	FindByID(ctx context.Context, id types.MemoryId) (*types.Memory, error)
	FindByAgentID(ctx context.Context, agentID string, limit int) ([]*types.Memory, error)
	FindByUserID(ctx context.Context, userID string, limit int) ([]*types.Memory, error)
	Search(ctx context.Context, text string, limit int) ([]*types.Memory, error)
	Update(ctx context.Context, memory *types.Memory) error
	Delete(ctx context.Context, id types.MemoryId) error
	DeleteByAgentID(ctx context.Context, agentID string) (int, error)
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[*types.Memory], error)
}

// AgentRepository manages persisted Agent records.
type AgentRepository interface {
	Create(ctx context.Context, agent *types.Agent) error
	FindByID(ctx context.Context, id string) (*types.Agent, error)
	Update(ctx context.Context, agent *types.Agent) error
	Delete(ctx context.Context, id string) error
	FindByOrganizationID(ctx context.Context, orgID string, limit int) ([]*types.Agent, error)
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[*types.Agent], error)
}

// MessageRepository manages the append-only conversation log.
type MessageRepository interface {
	Create(ctx context.Context, msg *types.Message) error
	FindByID(ctx context.Context, id string) (*types.Message, error)
	Update(ctx context.Context, msg *types.Message) error
	Delete(ctx context.Context, id string) error
	FindByAgentID(ctx context.Context, agentID string, limit int) ([]*types.Message, error)
	FindByUserID(ctx context.Context, userID string, limit int) ([]*types.Message, error)
	DeleteByAgentID(ctx context.Context, agentID string) (int, error)
}

// AssociationRepository manages typed edges between memories.
type AssociationRepository interface {
	Create(ctx context.Context, assoc *types.Association) error
	FindByID(ctx context.Context, id string) (*types.Association, error)
	FindByMemoryID(ctx context.Context, memoryID types.MemoryId) ([]*types.Association, error)
	FindByType(ctx context.Context, associationType string, limit int) ([]*types.Association, error)
	UpdateStrength(ctx context.Context, id string, strength float64) error
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByType(ctx context.Context, associationType string) (int, error)
	AvgStrength(ctx context.Context, userID string) (float64, error)
	FindStrongest(ctx context.Context, limit int) ([]*types.Association, error)
}

// TypedMemoryFilter narrows a typed-store query beyond the common
// pagination options.
type TypedMemoryFilter struct {
	ListOptions
	Category  string    // Semantic
	Skill     string    // Procedural
	Pattern   string    // Procedural
	Since     time.Time // Episodic time-range
	Until     time.Time // Episodic time-range
}

// TypedMemoryStore is the shared CRUD + filtered-query contract
// implemented by the Core/Episodic/Semantic/Procedural backing stores
// (C8's specialist agents are bound to one of these each).
type TypedMemoryStore interface {
	Create(ctx context.Context, memory *types.Memory) error
	FindByID(ctx context.Context, id types.MemoryId) (*types.Memory, error)
	Update(ctx context.Context, memory *types.Memory) error
	Delete(ctx context.Context, id types.MemoryId) error
	Query(ctx context.Context, filter TypedMemoryFilter) ([]*types.Memory, error)
}

// WorkingMemoryItem is one TTL-bounded entry in the working-memory store.
type WorkingMemoryItem struct {
	ID        string
	SessionID string
	Content   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// WorkingMemoryStore is the session-scoped, TTL-bounded scratch store
// (C12). Expired entries are logically absent from Get.
type WorkingMemoryStore interface {
	Put(ctx context.Context, sessionID string, item WorkingMemoryItem, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) ([]WorkingMemoryItem, error)
	Delete(ctx context.Context, sessionID string, itemID string) error
	Clear(ctx context.Context, sessionID string) error
	CleanupExpired(ctx context.Context) (int, error)
}

// LearningFeedback is one recorded outcome signal used to tune decision
// thresholds over time.
type LearningFeedback struct {
	ID        string
	MemoryID  types.MemoryId
	Signal    string // e.g. "accepted", "rejected", "corrected"
	Detail    string
	CreatedAt time.Time
}

// LearningFeedbackStore is an append-only log of feedback signals.
type LearningFeedbackStore interface {
	Append(ctx context.Context, feedback LearningFeedback) error
	Recent(ctx context.Context, since time.Time) ([]LearningFeedback, error)
}

// EmbeddingProvider manages vector embeddings with dimension tracking,
// shared by both concrete adapters.
type EmbeddingProvider interface {
	StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, dimension int, model string) error
	GetEmbedding(ctx context.Context, memoryID string) ([]float32, error)
	DeleteEmbedding(ctx context.Context, memoryID string) error
	GetDimension(ctx context.Context, model string) (int, error)
}

// GraphProvider provides bounded graph traversal operations over
// associations.
type GraphProvider interface {
	Traverse(ctx context.Context, startID types.MemoryId, bounds GraphBounds) (*GraphResult, error)
	FindPath(ctx context.Context, startID, endID types.MemoryId, bounds GraphBounds) ([]types.MemoryId, error)
	GetNeighbors(ctx context.Context, memoryID types.MemoryId, opts ListOptions) (*PaginatedResult[*types.Memory], error)
}

// Backend bundles every repository a concrete adapter (sqlite, postgres,
// memstore) must provide. The orchestrator (C7) is built against this
// single handle rather than wiring each repository independently.
type Backend interface {
	Memories() MemoryRepository
	Agents() AgentRepository
	Messages() MessageRepository
	Associations() AssociationRepository
	TypedStore(memoryType types.MemoryType) TypedMemoryStore
	WorkingMemory() WorkingMemoryStore
	LearningFeedback() LearningFeedbackStore
	Embeddings() EmbeddingProvider
	Graph() GraphProvider
	Close() error
}
