// Package types defines the canonical domain model shared by every
// memory-engine subsystem: the typed Memory entity, its attribute and
// relation model, and the auxiliary records (sessions, messages, agents,
// associations, facts, causal graph nodes, and schemas) that the
// orchestrator and its collaborators operate on.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MemoryId is an opaque, globally unique, version-stable identifier.
type MemoryId string

// MemoryType is the semantic classification stored under the
// core:memory_type attribute.
type MemoryType string

const (
	MemoryTypeCore       MemoryType = "Core"
	MemoryTypeEpisodic   MemoryType = "Episodic"
	MemoryTypeSemantic   MemoryType = "Semantic"
	MemoryTypeProcedural MemoryType = "Procedural"
	MemoryTypeWorking    MemoryType = "Working"
)

// ValidMemoryTypes enumerates every recognized memory type.
var ValidMemoryTypes = []MemoryType{
	MemoryTypeCore, MemoryTypeEpisodic, MemoryTypeSemantic, MemoryTypeProcedural, MemoryTypeWorking,
}

// IsValidMemoryType reports whether t is one of ValidMemoryTypes.
func IsValidMemoryType(t MemoryType) bool {
	for _, v := range ValidMemoryTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ContentKind discriminates the Content variant.
type ContentKind string

const (
	ContentKindText        ContentKind = "text"
	ContentKindStructured  ContentKind = "structured"
	ContentKindBinary      ContentKind = "binary"
	ContentKindMultimodal  ContentKind = "multimodal"
)

// ContentPart is one element of a Multimodal content value.
type ContentPart struct {
	Kind ContentKind `json:"kind"`
	Text string      `json:"text,omitempty"`
	Data []byte      `json:"data,omitempty"`
}

// Content is a closed variant over the four payload shapes a memory can
// carry. Exactly one of the typed fields is populated, selected by Kind.
type Content struct {
	Kind       ContentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Binary     []byte          `json:"binary,omitempty"`
	Parts      []ContentPart   `json:"parts,omitempty"`
}

// NewTextContent builds a Text content value. Round-tripping through
// String() is lossless.
func NewTextContent(s string) Content { return Content{Kind: ContentKindText, Text: s} }

// NewStructuredContent canonicalizes v to JSON and wraps it.
func NewStructuredContent(v interface{}) (Content, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Content{}, fmt.Errorf("encode structured content: %w", err)
	}
	return Content{Kind: ContentKindStructured, Structured: raw}, nil
}

// String renders the content as a display/storage string. For Text it is
// lossless; for Structured it is the canonical JSON encoding.
func (c Content) String() string {
	switch c.Kind {
	case ContentKindText:
		return c.Text
	case ContentKindStructured:
		return string(c.Structured)
	case ContentKindBinary:
		return fmt.Sprintf("<binary:%d bytes>", len(c.Binary))
	case ContentKindMultimodal:
		parts := make([]string, len(c.Parts))
		for i, p := range c.Parts {
			parts[i] = p.Text
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// AttributeNamespace is one of the three recognized attribute namespaces.
type AttributeNamespace string

const (
	NamespaceCore   AttributeNamespace = "core"
	NamespaceSystem AttributeNamespace = "system"
	NamespaceCustom AttributeNamespace = "custom"
)

// AttributeKey is a namespaced attribute name, rendered "namespace:name".
type AttributeKey struct {
	Namespace AttributeNamespace
	Name      string
}

// Canonical core/system attribute keys. These are the ones the conversion
// layer (internal/storage/convert) promotes to real columns.
var (
	AttrOrganizationID  = AttributeKey{NamespaceCore, "organization_id"}
	AttrUserID          = AttributeKey{NamespaceCore, "user_id"}
	AttrAgentID         = AttributeKey{NamespaceCore, "agent_id"}
	AttrMemoryType      = AttributeKey{NamespaceCore, "memory_type"}
	AttrScope           = AttributeKey{NamespaceCore, "scope"}
	AttrLevel           = AttributeKey{NamespaceCore, "level"}
	AttrImportance      = AttributeKey{NamespaceCore, "importance"}
	AttrScore           = AttributeKey{NamespaceCore, "score"}
	AttrIsDeleted       = AttributeKey{NamespaceSystem, "is_deleted"}
	AttrCreatedByID     = AttributeKey{NamespaceSystem, "created_by_id"}
	AttrLastUpdatedByID = AttributeKey{NamespaceSystem, "last_updated_by_id"}
	AttrSessionID       = AttributeKey{NamespaceCore, "session_id"}
)

// String renders the key in "namespace:name" form.
func (k AttributeKey) String() string {
	return fmt.Sprintf("%s:%s", k.Namespace, k.Name)
}

// ParseAttributeKey parses a "namespace:name" string. Equality of the
// parsed key is case-sensitive, matching String's output.
func ParseAttributeKey(s string) (AttributeKey, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return AttributeKey{}, fmt.Errorf("invalid attribute key %q: want namespace:name", s)
	}
	return AttributeKey{Namespace: AttributeNamespace(parts[0]), Name: parts[1]}, nil
}

// AttributeValueKind discriminates AttributeValue.
type AttributeValueKind string

const (
	AttrValString  AttributeValueKind = "string"
	AttrValNumber  AttributeValueKind = "number"
	AttrValBoolean AttributeValueKind = "boolean"
	AttrValJSON    AttributeValueKind = "json"
	AttrValNull    AttributeValueKind = "null"
)

// AttributeValue is a closed variant over the value shapes an attribute
// can hold.
type AttributeValue struct {
	Kind    AttributeValueKind `json:"kind"`
	Str     string             `json:"str,omitempty"`
	Num     float64            `json:"num,omitempty"`
	Bool    bool               `json:"bool,omitempty"`
	JSON    json.RawMessage    `json:"json,omitempty"`
}

func StringValue(s string) AttributeValue  { return AttributeValue{Kind: AttrValString, Str: s} }
func NumberValue(n float64) AttributeValue { return AttributeValue{Kind: AttrValNumber, Num: n} }
func BoolValue(b bool) AttributeValue      { return AttributeValue{Kind: AttrValBoolean, Bool: b} }
func NullValue() AttributeValue            { return AttributeValue{Kind: AttrValNull} }

// AsString returns the value rendered as a string regardless of kind.
func (v AttributeValue) AsString() string {
	switch v.Kind {
	case AttrValString:
		return v.Str
	case AttrValNumber:
		return fmt.Sprintf("%g", v.Num)
	case AttrValBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case AttrValJSON:
		return string(v.JSON)
	default:
		return ""
	}
}

// AttributeSet maps namespaced keys to values. The zero value is usable.
type AttributeSet map[AttributeKey]AttributeValue

// Get returns the value for key and whether it was present.
func (a AttributeSet) Get(key AttributeKey) (AttributeValue, bool) {
	v, ok := a[key]
	return v, ok
}

// GetString is a convenience accessor returning "" when absent.
func (a AttributeSet) GetString(key AttributeKey) string {
	if v, ok := a[key]; ok {
		return v.AsString()
	}
	return ""
}

// Set stores a value under key, returning the (possibly new) set.
func (a AttributeSet) Set(key AttributeKey, val AttributeValue) AttributeSet {
	if a == nil {
		a = AttributeSet{}
	}
	a[key] = val
	return a
}

// RelationEdge is one typed edge in a RelationGraph.
type RelationEdge struct {
	To     MemoryId `json:"to"`
	Name   string   `json:"name"`
	Weight *float64 `json:"weight,omitempty"`
}

// RelationGraph is the set of typed edges outbound from a memory.
type RelationGraph []RelationEdge

// Metadata carries the bookkeeping fields every memory version has.
type Metadata struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AccessedAt  time.Time `json:"accessed_at"`
	AccessCount uint32    `json:"access_count"`
	Version     uint32    `json:"version"`
	Hash        *string   `json:"hash,omitempty"`
}

// Memory is the canonical V4 domain entity: content, attributes,
// relations and metadata. Per-tenant fields (organization/user/agent id,
// memory type, scope, level, importance, score, is_deleted, provenance)
// all live in Attributes — nothing outside the conversion layer
// hard-codes them.
type Memory struct {
	ID         MemoryId      `json:"id"`
	Content    Content       `json:"content"`
	Attributes AttributeSet  `json:"attributes"`
	Relations  RelationGraph `json:"relations"`
	Metadata   Metadata      `json:"metadata"`
}

// NewMemory constructs a fresh Memory with version 1 and all timestamps
// set to now.
func NewMemory(id MemoryId, content Content, attrs AttributeSet) *Memory {
	now := time.Now().UTC()
	if attrs == nil {
		attrs = AttributeSet{}
	}
	m := &Memory{
		ID:         id,
		Content:    content,
		Attributes: attrs,
		Relations:  RelationGraph{},
		Metadata: Metadata{
			CreatedAt: now,
			UpdatedAt: now,
			AccessedAt: now,
			Version:   1,
		},
	}
	m.RecomputeHash()
	return m
}

// MemoryType returns the memory's type attribute, or "" if unset.
func (m *Memory) MemoryType() MemoryType {
	return MemoryType(m.Attributes.GetString(AttrMemoryType))
}

// IsDeleted reports whether the tombstone attribute is set.
func (m *Memory) IsDeleted() bool {
	v, ok := m.Attributes.Get(AttrIsDeleted)
	return ok && v.Kind == AttrValBoolean && v.Bool
}

// Touch records an access: bumps AccessCount and advances AccessedAt.
// AccessedAt never moves backward relative to CreatedAt or a prior touch.
func (m *Memory) Touch(at time.Time) {
	if at.Before(m.Metadata.AccessedAt) {
		at = m.Metadata.AccessedAt
	}
	m.Metadata.AccessedAt = at
	m.Metadata.AccessCount++
}

// ApplyUpdate replaces content (if non-nil), bumps version and UpdatedAt,
// and recomputes or clears the content hash.
func (m *Memory) ApplyUpdate(newContent *Content, at time.Time) {
	if newContent != nil {
		m.Content = *newContent
		m.RecomputeHash()
	}
	m.Metadata.Version++
	m.Metadata.UpdatedAt = at
}

// SoftDelete sets the is_deleted tombstone attribute and bumps UpdatedAt.
// No row is ever physically removed by this call.
func (m *Memory) SoftDelete(at time.Time) {
	m.Attributes = m.Attributes.Set(AttrIsDeleted, BoolValue(true))
	m.Metadata.UpdatedAt = at
}

// RecomputeHash sets Metadata.Hash to the stable digest of Content. Only
// Text and Structured content are hashed; other kinds clear the hash.
func (m *Memory) RecomputeHash() {
	switch m.Content.Kind {
	case ContentKindText, ContentKindStructured:
		sum := sha256.Sum256([]byte(m.Content.String()))
		h := hex.EncodeToString(sum[:])
		m.Metadata.Hash = &h
	default:
		m.Metadata.Hash = nil
	}
}

// ClampUnit clamps a score-like float into [0,1] at a boundary, per the
// scoring-range invariant.
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SortedAttributeKeys returns the attribute keys in deterministic order,
// useful for wire serialization and tests.
func (a AttributeSet) SortedAttributeKeys() []AttributeKey {
	keys := make([]AttributeKey, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
