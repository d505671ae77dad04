package types

import "time"

// MemoryItem is the flat, pre-V4 representation of a memory used by
// older external callers. Conversion helpers below bridge it to and
// from the canonical Memory entity so those callers keep working without
// the orchestrator or storage layer ever depending on the flat shape.
type MemoryItem struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	OrganizationID string     `json:"organization_id,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	AgentID        string     `json:"agent_id,omitempty"`
	MemoryType     string     `json:"memory_type,omitempty"`
	Scope          string     `json:"scope,omitempty"`
	Importance     float64    `json:"importance,omitempty"`
	Score          float64    `json:"score,omitempty"`
	IsDeleted      bool       `json:"is_deleted"`
	CreatedByID    string     `json:"created_by_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	AccessedAt     time.Time  `json:"accessed_at"`
	AccessCount    uint32     `json:"access_count"`
	Version        uint32     `json:"version"`
	Hash           string     `json:"hash,omitempty"`
}

// ToMemory converts a legacy flat item into the canonical V4 entity.
func (m MemoryItem) ToMemory() *Memory {
	attrs := AttributeSet{}
	if m.OrganizationID != "" {
		attrs.Set(AttrOrganizationID, StringValue(m.OrganizationID))
	}
	if m.UserID != "" {
		attrs.Set(AttrUserID, StringValue(m.UserID))
	}
	if m.AgentID != "" {
		attrs.Set(AttrAgentID, StringValue(m.AgentID))
	}
	if m.MemoryType != "" {
		attrs.Set(AttrMemoryType, StringValue(m.MemoryType))
	}
	if m.Scope != "" {
		attrs.Set(AttrScope, StringValue(m.Scope))
	}
	attrs.Set(AttrImportance, NumberValue(ClampUnit(m.Importance)))
	attrs.Set(AttrScore, NumberValue(ClampUnit(m.Score)))
	attrs.Set(AttrIsDeleted, BoolValue(m.IsDeleted))
	if m.CreatedByID != "" {
		attrs.Set(AttrCreatedByID, StringValue(m.CreatedByID))
	}

	out := &Memory{
		ID:         MemoryId(m.ID),
		Content:    NewTextContent(m.Content),
		Attributes: attrs,
		Relations:  RelationGraph{},
		Metadata: Metadata{
			CreatedAt:   m.CreatedAt,
			UpdatedAt:   m.UpdatedAt,
			AccessedAt:  m.AccessedAt,
			AccessCount: m.AccessCount,
			Version:     m.Version,
		},
	}
	if m.Hash != "" {
		h := m.Hash
		out.Metadata.Hash = &h
	} else {
		out.RecomputeHash()
	}
	return out
}

// FromMemory converts a canonical V4 entity into the legacy flat shape.
// The content is rendered via Content.String, which is lossless for Text
// and canonical-JSON for Structured.
func FromMemory(m *Memory) MemoryItem {
	hash := ""
	if m.Metadata.Hash != nil {
		hash = *m.Metadata.Hash
	}
	return MemoryItem{
		ID:             string(m.ID),
		Content:        m.Content.String(),
		OrganizationID: m.Attributes.GetString(AttrOrganizationID),
		UserID:         m.Attributes.GetString(AttrUserID),
		AgentID:        m.Attributes.GetString(AttrAgentID),
		MemoryType:     string(m.MemoryType()),
		Scope:          m.Attributes.GetString(AttrScope),
		Importance:     attrNumber(m.Attributes, AttrImportance),
		Score:          attrNumber(m.Attributes, AttrScore),
		IsDeleted:      m.IsDeleted(),
		CreatedByID:    m.Attributes.GetString(AttrCreatedByID),
		CreatedAt:      m.Metadata.CreatedAt,
		UpdatedAt:      m.Metadata.UpdatedAt,
		AccessedAt:     m.Metadata.AccessedAt,
		AccessCount:    m.Metadata.AccessCount,
		Version:        m.Metadata.Version,
		Hash:           hash,
	}
}

func attrNumber(a AttributeSet, key AttributeKey) float64 {
	if v, ok := a.Get(key); ok && v.Kind == AttrValNumber {
		return v.Num
	}
	return 0
}
