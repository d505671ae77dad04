package types

import "time"

// MessageRole is who produced a Message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Session addresses a conversation or task run.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id,omitempty"`
	AgentID   string                 `json:"agent_id,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ToolCall is one function invocation requested by an LLM turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments string          `json:"arguments"`
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
}

// Message is one turn of a conversation, persisted append-only via
// MessageRepository.
type Message struct {
	ID                string                 `json:"id"`
	OrgID             string                 `json:"org_id"`
	UserID            string                 `json:"user_id"`
	AgentID           string                 `json:"agent_id"`
	Role              MessageRole            `json:"role"`
	Text              string                 `json:"text,omitempty"`
	StructuredContent map[string]interface{} `json:"structured_content,omitempty"`
	Model             string                 `json:"model,omitempty"`
	ToolCalls         []ToolCall             `json:"tool_calls,omitempty"`
	ToolResults       []ToolResult           `json:"tool_results,omitempty"`
	GroupID           string                 `json:"group_id,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
	IsDeleted         bool                   `json:"is_deleted"`
}

// AgentState is the lifecycle state of an Agent record.
type AgentState string

const (
	AgentStateActive   AgentState = "active"
	AgentStatePaused   AgentState = "paused"
	AgentStateStopped  AgentState = "stopped"
)

// LLMConfig names the generation backend an agent uses.
type LLMConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// EmbeddingConfig names the embedding backend an agent uses.
type EmbeddingConfig struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// ToolRule constrains when a named tool may be invoked.
type ToolRule struct {
	ToolName string `json:"tool_name"`
	Required bool   `json:"required"`
}

// Agent is the persisted record backing a registered Agent record (as
// opposed to the in-process typed-memory workers in internal/agents).
type Agent struct {
	ID              string          `json:"id"`
	OrgID           string          `json:"org_id"`
	Type            string          `json:"type,omitempty"`
	Name            string          `json:"name,omitempty"`
	SystemPrompt    string          `json:"system_prompt,omitempty"`
	LLMConfig       LLMConfig       `json:"llm_config"`
	EmbeddingConfig EmbeddingConfig `json:"embedding_config"`
	ToolRules       []ToolRule      `json:"tool_rules,omitempty"`
	MessageIDs      []string        `json:"message_ids,omitempty"`
	State           AgentState      `json:"state"`
	LastActiveAt    time.Time       `json:"last_active_at"`
	IsDeleted       bool            `json:"is_deleted"`
}

// Association is a typed edge between two memories in the same
// (org_id, user_id) scope.
type Association struct {
	ID            string                 `json:"id"`
	OrgID         string                 `json:"org_id"`
	UserID        string                 `json:"user_id"`
	AgentID       string                 `json:"agent_id"`
	FromMemoryID  MemoryId               `json:"from_memory_id"`
	ToMemoryID    MemoryId               `json:"to_memory_id"`
	AssociationType string               `json:"association_type"`
	Strength      float64                `json:"strength"`
	Confidence    float64                `json:"confidence"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// ExtractedFact is the LLM's structured distillation of a piece of raw
// content, as produced by the fact extractor (C5).
type ExtractedFact struct {
	Content    string   `json:"content"`
	Confidence float64  `json:"confidence"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags,omitempty"`
	SourceSpan string   `json:"source_span,omitempty"`
}

// DecisionKind is the ADD/UPDATE/DELETE/NOOP choice made for a fact.
type DecisionKind string

const (
	DecisionAdd    DecisionKind = "ADD"
	DecisionUpdate DecisionKind = "UPDATE"
	DecisionDelete DecisionKind = "DELETE"
	DecisionNoop   DecisionKind = "NOOP"
)

// Decision is the outcome of classifying one fact against its candidate
// memories.
type Decision struct {
	Kind       DecisionKind `json:"kind"`
	TargetID   MemoryId     `json:"target_id,omitempty"`
	Confidence float64      `json:"confidence"`
	Reason     string       `json:"reason,omitempty"`
}

// CausalNodeType discriminates a causal graph node.
type CausalNodeType string

const (
	CausalNodeEvent     CausalNodeType = "Event"
	CausalNodeState     CausalNodeType = "State"
	CausalNodeAction    CausalNodeType = "Action"
	CausalNodeCondition CausalNodeType = "Condition"
)

// CausalNode is one vertex of the causal reasoning graph (C11).
type CausalNode struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Type       CausalNodeType         `json:"type"`
	Timestamp  time.Time              `json:"timestamp"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// CausalRelationType classifies the nature of a causal edge.
type CausalRelationType string

const (
	CausalDirect       CausalRelationType = "Direct"
	CausalIndirect     CausalRelationType = "Indirect"
	CausalNecessary    CausalRelationType = "Necessary"
	CausalSufficient   CausalRelationType = "Sufficient"
	CausalFacilitating CausalRelationType = "Facilitating"
	CausalInhibiting   CausalRelationType = "Inhibiting"
)

// CausalEdge connects a cause node to an effect node. The acyclicity
// invariant requires Effect.Timestamp >= Cause.Timestamp.
type CausalEdge struct {
	ID               string              `json:"id"`
	CauseID          string              `json:"cause_id"`
	EffectID         string              `json:"effect_id"`
	Strength         float64             `json:"strength"`
	Confidence       float64             `json:"confidence"`
	TimeDelaySeconds float64             `json:"time_delay_seconds"`
	RelationType     CausalRelationType  `json:"relation_type"`
	Evidence         []string            `json:"evidence,omitempty"`
}

// SchemaPattern is the abstracted shape shared by a Schema's members.
type SchemaPattern struct {
	CoreConcept      string    `json:"core_concept"`
	KeyAttributes    []string  `json:"key_attributes,omitempty"`
	RelationPatterns []string  `json:"relation_patterns,omitempty"`
	TypicalExamples  []string  `json:"typical_examples,omitempty"`
	SemanticVector   []float32 `json:"semantic_vector,omitempty"`
}

// Schema is an abstract pattern shared by a set of memories, evolved via
// merge/split/create (C11).
type Schema struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Pattern     SchemaPattern `json:"pattern"`
	MemoryIDs   []MemoryId    `json:"memory_ids"`
	Version     int           `json:"version"`
	UsageCount  int           `json:"usage_count"`
	Confidence  float64       `json:"confidence"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
