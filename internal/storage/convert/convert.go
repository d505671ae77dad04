// Package convert implements the bidirectional, total, information
// preserving mapping between the canonical types.Memory entity and its
// persistence row form (C3), plus the embedding binary codec shared by
// the sqlite and postgres adapters. A round trip Memory -> Row -> Memory
// must preserve id, content, every canonical attribute, and the metadata
// counters exactly.
package convert

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
	"unsafe"

	"github.com/scrypster/memento-engine/pkg/types"
)

// Row is the flattened persistence shape of a Memory. Canonical
// core/system attributes are promoted to explicit fields; everything
// else round-trips through ExtraMetadata as JSON.
type Row struct {
	ID             string
	ContentKind    string
	ContentText    string
	ContentBinary  []byte
	OrganizationID string
	UserID         string
	AgentID        string
	MemoryType     string
	Scope          string
	SessionID      string
	Importance     float64
	Score          float64
	IsDeleted      bool
	CreatedByID    string
	LastUpdatedByID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AccessedAt     time.Time
	AccessCount    uint32
	Version        uint32
	Hash           string
	ExtraMetadata  string // JSON-encoded map of non-canonical attributes
	RelationsJSON  string // JSON-encoded RelationGraph
}

// canonicalKeys enumerates every attribute key promoted to an explicit
// Row column. Anything not in this set folds into ExtraMetadata.
var canonicalKeys = map[types.AttributeKey]bool{
	types.AttrOrganizationID:  true,
	types.AttrUserID:          true,
	types.AttrAgentID:         true,
	types.AttrMemoryType:      true,
	types.AttrScope:           true,
	types.AttrSessionID:       true,
	types.AttrImportance:      true,
	types.AttrScore:           true,
	types.AttrIsDeleted:       true,
	types.AttrCreatedByID:     true,
	types.AttrLastUpdatedByID: true,
}

// MemoryToRow flattens m into its persistence row form.
func MemoryToRow(m *types.Memory) (Row, error) {
	extra := map[string]types.AttributeValue{}
	for k, v := range m.Attributes {
		if !canonicalKeys[k] {
			extra[k.String()] = v
		}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return Row{}, fmt.Errorf("convert: marshal extra metadata: %w", err)
	}
	relJSON, err := json.Marshal(m.Relations)
	if err != nil {
		return Row{}, fmt.Errorf("convert: marshal relations: %w", err)
	}

	row := Row{
		ID:              string(m.ID),
		ContentKind:     string(m.Content.Kind),
		OrganizationID:  m.Attributes.GetString(types.AttrOrganizationID),
		UserID:          m.Attributes.GetString(types.AttrUserID),
		AgentID:         m.Attributes.GetString(types.AttrAgentID),
		MemoryType:      m.Attributes.GetString(types.AttrMemoryType),
		Scope:           m.Attributes.GetString(types.AttrScope),
		SessionID:       m.Attributes.GetString(types.AttrSessionID),
		Importance:      attrNumber(m.Attributes, types.AttrImportance),
		Score:           attrNumber(m.Attributes, types.AttrScore),
		IsDeleted:       m.IsDeleted(),
		CreatedByID:     m.Attributes.GetString(types.AttrCreatedByID),
		LastUpdatedByID: m.Attributes.GetString(types.AttrLastUpdatedByID),
		CreatedAt:       m.Metadata.CreatedAt,
		UpdatedAt:       m.Metadata.UpdatedAt,
		AccessedAt:      m.Metadata.AccessedAt,
		AccessCount:     m.Metadata.AccessCount,
		Version:         m.Metadata.Version,
		ExtraMetadata:   string(extraJSON),
		RelationsJSON:   string(relJSON),
	}
	if m.Metadata.Hash != nil {
		row.Hash = *m.Metadata.Hash
	}

	switch m.Content.Kind {
	case types.ContentKindText:
		row.ContentText = m.Content.Text
	case types.ContentKindStructured:
		row.ContentText = string(m.Content.Structured)
	case types.ContentKindBinary:
		row.ContentBinary = m.Content.Binary
	case types.ContentKindMultimodal:
		partsJSON, err := json.Marshal(m.Content.Parts)
		if err != nil {
			return Row{}, fmt.Errorf("convert: marshal multimodal parts: %w", err)
		}
		row.ContentText = string(partsJSON)
	}

	return row, nil
}

// RowToMemory reconstructs a Memory from its persistence row form.
func RowToMemory(row Row) (*types.Memory, error) {
	attrs := types.AttributeSet{}
	if row.ExtraMetadata != "" {
		var extra map[string]types.AttributeValue
		if err := json.Unmarshal([]byte(row.ExtraMetadata), &extra); err != nil {
			return nil, fmt.Errorf("convert: unmarshal extra metadata: %w", err)
		}
		for k, v := range extra {
			key, err := types.ParseAttributeKey(k)
			if err != nil {
				continue
			}
			attrs.Set(key, v)
		}
	}
	if row.OrganizationID != "" {
		attrs.Set(types.AttrOrganizationID, types.StringValue(row.OrganizationID))
	}
	if row.UserID != "" {
		attrs.Set(types.AttrUserID, types.StringValue(row.UserID))
	}
	if row.AgentID != "" {
		attrs.Set(types.AttrAgentID, types.StringValue(row.AgentID))
	}
	if row.MemoryType != "" {
		attrs.Set(types.AttrMemoryType, types.StringValue(row.MemoryType))
	}
	if row.Scope != "" {
		attrs.Set(types.AttrScope, types.StringValue(row.Scope))
	}
	if row.SessionID != "" {
		attrs.Set(types.AttrSessionID, types.StringValue(row.SessionID))
	}
	attrs.Set(types.AttrImportance, types.NumberValue(types.ClampUnit(row.Importance)))
	attrs.Set(types.AttrScore, types.NumberValue(types.ClampUnit(row.Score)))
	attrs.Set(types.AttrIsDeleted, types.BoolValue(row.IsDeleted))
	if row.CreatedByID != "" {
		attrs.Set(types.AttrCreatedByID, types.StringValue(row.CreatedByID))
	}
	if row.LastUpdatedByID != "" {
		attrs.Set(types.AttrLastUpdatedByID, types.StringValue(row.LastUpdatedByID))
	}

	var content types.Content
	switch types.ContentKind(row.ContentKind) {
	case types.ContentKindStructured:
		content = types.Content{Kind: types.ContentKindStructured, Structured: []byte(row.ContentText)}
	case types.ContentKindBinary:
		content = types.Content{Kind: types.ContentKindBinary, Binary: row.ContentBinary}
	case types.ContentKindMultimodal:
		var parts []types.ContentPart
		if err := json.Unmarshal([]byte(row.ContentText), &parts); err != nil {
			return nil, fmt.Errorf("convert: unmarshal multimodal parts: %w", err)
		}
		content = types.Content{Kind: types.ContentKindMultimodal, Parts: parts}
	default:
		content = types.NewTextContent(row.ContentText)
	}

	var relations types.RelationGraph
	if row.RelationsJSON != "" {
		if err := json.Unmarshal([]byte(row.RelationsJSON), &relations); err != nil {
			return nil, fmt.Errorf("convert: unmarshal relations: %w", err)
		}
	}

	m := &types.Memory{
		ID:         types.MemoryId(row.ID),
		Content:    content,
		Attributes: attrs,
		Relations:  relations,
		Metadata: types.Metadata{
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
			AccessedAt:  row.AccessedAt,
			AccessCount: row.AccessCount,
			Version:     row.Version,
		},
	}
	if row.Hash != "" {
		h := row.Hash
		m.Metadata.Hash = &h
	}

	return m, nil
}

func attrNumber(a types.AttributeSet, key types.AttributeKey) float64 {
	if v, ok := a.Get(key); ok && v.Kind == types.AttrValNumber {
		return v.Num
	}
	return 0
}

// EncodeEmbedding serializes a float32 vector to a little-endian binary
// BLOB, via IEEE-754 bit reinterpretation. Shared by every adapter that
// stores embeddings as BYTEA/BLOB columns.
func EncodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], floatToBits(v))
	}
	return buf
}

// DecodeEmbedding reconstructs a float32 vector from a binary BLOB
// produced by EncodeEmbedding. dimension validates the buffer size.
func DecodeEmbedding(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("convert: invalid dimension %d", dimension)
	}
	expected := dimension * 4
	if len(buf) != expected {
		return nil, fmt.Errorf("convert: buffer size mismatch: expected %d bytes, got %d", expected, len(buf))
	}
	out := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		out[i] = bitsToFloat(bits)
	}
	return out, nil
}

func floatToBits(f float32) uint32 {
	return *(*uint32)(unsafe.Pointer(&f))
}

func bitsToFloat(bits uint32) float32 {
	return *(*float32)(unsafe.Pointer(&bits))
}
