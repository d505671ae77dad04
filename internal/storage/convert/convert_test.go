package convert

import (
	"testing"

	"github.com/scrypster/memento-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRowRoundTrip(t *testing.T) {
	m := types.NewMemory("mem:1", types.NewTextContent("Alice lives in Berlin"), types.AttributeSet{
		types.AttrOrganizationID: types.StringValue("org1"),
		types.AttrUserID:         types.StringValue("user1"),
		types.AttrAgentID:        types.StringValue("agent1"),
		types.AttrMemoryType:     types.StringValue(string(types.MemoryTypeEpisodic)),
		types.AttrImportance:     types.NumberValue(0.8),
	})
	m.Attributes.Set(types.AttributeKey{Namespace: types.NamespaceCustom, Name: "color"}, types.StringValue("blue"))

	row, err := MemoryToRow(m)
	require.NoError(t, err)

	back, err := RowToMemory(row)
	require.NoError(t, err)

	assert.Equal(t, m.ID, back.ID)
	assert.Equal(t, m.Content.String(), back.Content.String())
	assert.Equal(t, m.Attributes.GetString(types.AttrOrganizationID), back.Attributes.GetString(types.AttrOrganizationID))
	assert.Equal(t, m.MemoryType(), back.MemoryType())
	assert.InDelta(t, 0.8, back.Attributes[types.AttrImportance].Num, 1e-9)
	assert.Equal(t, "blue", back.Attributes.GetString(types.AttributeKey{Namespace: types.NamespaceCustom, Name: "color"}))
	assert.EqualValues(t, m.Metadata.Version, back.Metadata.Version)
	assert.EqualValues(t, m.Metadata.AccessCount, back.Metadata.AccessCount)
	require.NotNil(t, back.Metadata.Hash)
	assert.Equal(t, *m.Metadata.Hash, *back.Metadata.Hash)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{0.1, -0.2, 0.3, 1.0, -1.0}
	buf := EncodeEmbedding(vec)
	back, err := DecodeEmbedding(buf, len(vec))
	require.NoError(t, err)
	for i := range vec {
		assert.InDelta(t, vec[i], back[i], 1e-6)
	}
}

func TestDecodeEmbeddingSizeMismatch(t *testing.T) {
	_, err := DecodeEmbedding([]byte{1, 2, 3}, 4)
	assert.Error(t, err)
}
