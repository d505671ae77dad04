package agents

import (
	"strings"
	"time"

	"github.com/scrypster/memento-engine/pkg/types"
)

func nowUTC() time.Time { return time.Now().UTC() }

// filterByContent does a case-insensitive substring match over items'
// content, capped at limit. Typed stores have no full-text index of their
// own (that's MemoryRepository.Search's job, scoped across all memory
// types); an in-process scan over one type's (already narrow) working set
// is the same tradeoff internal/storage/memstore's Search makes.
func filterByContent(items []*types.Memory, query string, limit int) []*types.Memory {
	if limit <= 0 {
		limit = 10
	}
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]*types.Memory, 0, limit)
	for _, m := range items {
		if query != "" && !strings.Contains(strings.ToLower(m.Content.String()), query) {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	return out
}
