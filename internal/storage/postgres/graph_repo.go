package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// graphRepo implements storage.GraphProvider by BFS over memory_associations,
// the edge table that replaces the teacher's entity/relationship graph.
type graphRepo struct{ db *sql.DB }

type edgeRow struct {
	from, to, relType string
	weight             float64
}

func (r *graphRepo) neighborEdges(ctx context.Context, id string) ([]edgeRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT from_memory_id, to_memory_id, association_type, strength
		FROM memory_associations WHERE from_memory_id = $1 OR to_memory_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []edgeRow
	for rows.Next() {
		var e edgeRow
		if err := rows.Scan(&e.from, &e.to, &e.relType, &e.weight); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *graphRepo) Traverse(ctx context.Context, startID types.MemoryId, bounds storage.GraphBounds) (*storage.GraphResult, error) {
	bounds.Normalize()
	ctx, cancel := contextWithTimeout(ctx, bounds.Timeout)
	defer cancel()

	visited := map[string]bool{string(startID): true}
	frontier := []string{string(startID)}

	result := &storage.GraphResult{Nodes: []string{string(startID)}}

	for hop := 0; hop < bounds.MaxHops && len(frontier) > 0; hop++ {
		var nextFrontier []string
		for _, id := range frontier {
			edges, err := r.neighborEdges(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("postgres: traverse: %w", err)
			}
			for _, e := range edges {
				if len(result.Edges) >= bounds.MaxEdges {
					result.BoundsReached = append(result.BoundsReached, "max_edges")
					return result, nil
				}
				other := e.to
				if other == id {
					other = e.from
				}
				result.Edges = append(result.Edges, storage.GraphEdge{
					From: e.from, To: e.to, RelationType: e.relType, Weight: e.weight,
				})
				if !visited[other] {
					visited[other] = true
					if len(result.Nodes) >= bounds.MaxNodes {
						result.BoundsReached = append(result.BoundsReached, "max_nodes")
						return result, nil
					}
					result.Nodes = append(result.Nodes, other)
					nextFrontier = append(nextFrontier, other)
				}
			}
			select {
			case <-ctx.Done():
				result.BoundsReached = append(result.BoundsReached, "timeout")
				return result, nil
			default:
			}
		}
		frontier = nextFrontier
	}
	if len(frontier) > 0 {
		result.BoundsReached = append(result.BoundsReached, "max_hops")
	}
	return result, nil
}

func (r *graphRepo) FindPath(ctx context.Context, startID, endID types.MemoryId, bounds storage.GraphBounds) ([]types.MemoryId, error) {
	bounds.Normalize()
	ctx, cancel := contextWithTimeout(ctx, bounds.Timeout)
	defer cancel()

	if startID == endID {
		return []types.MemoryId{startID}, nil
	}

	parent := map[string]string{string(startID): ""}
	frontier := []string{string(startID)}

	for hop := 0; hop < bounds.MaxHops && len(frontier) > 0; hop++ {
		var nextFrontier []string
		for _, id := range frontier {
			edges, err := r.neighborEdges(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("postgres: find path: %w", err)
			}
			for _, e := range edges {
				other := e.to
				if other == id {
					other = e.from
				}
				if _, seen := parent[other]; seen {
					continue
				}
				parent[other] = id
				if other == string(endID) {
					return reconstructPath(parent, string(endID)), nil
				}
				nextFrontier = append(nextFrontier, other)
			}
			select {
			case <-ctx.Done():
				return nil, nil
			default:
			}
		}
		frontier = nextFrontier
	}
	return nil, nil
}

// reconstructPath walks parent pointers from end back to the start node
// (whose parent entry is the empty string) and reverses the result.
func reconstructPath(parent map[string]string, end string) []types.MemoryId {
	var rev []types.MemoryId
	cur := end
	for {
		rev = append(rev, types.MemoryId(cur))
		next, ok := parent[cur]
		if !ok || next == "" {
			break
		}
		cur = next
	}
	out := make([]types.MemoryId, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}

func (r *graphRepo) GetNeighbors(ctx context.Context, memoryID types.MemoryId, opts storage.ListOptions) (*storage.PaginatedResult[*types.Memory], error) {
	opts.Normalize()

	edges, err := r.neighborEdges(ctx, string(memoryID))
	if err != nil {
		return nil, fmt.Errorf("postgres: get neighbors: %w", err)
	}

	ids := make([]string, 0, len(edges))
	seen := map[string]bool{}
	for _, e := range edges {
		other := e.to
		if other == string(memoryID) {
			other = e.from
		}
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}

	total := len(ids)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	page := ids[start:end]

	repo := &memoryRepo{db: r.db}
	items := make([]*types.Memory, 0, len(page))
	for _, id := range page {
		m, err := repo.FindByID(ctx, types.MemoryId(id))
		if err != nil {
			continue
		}
		items = append(items, m)
	}

	return &storage.PaginatedResult[*types.Memory]{
		Items: items, Total: total, Page: opts.Page, PageSize: opts.Limit,
		HasMore: end < total,
	}, nil
}
