package retrieval

import "github.com/scrypster/memento-engine/pkg/types"

// defaultTargetMemoryTypes is every memory type the typed-agent registry
// covers; used when a request doesn't narrow TargetMemoryTypes itself.
var defaultTargetMemoryTypes = []types.MemoryType{
	types.MemoryTypeCore, types.MemoryTypeEpisodic, types.MemoryTypeSemantic, types.MemoryTypeProcedural,
}

// route derives a RouteDecision (C9.2). With no PreferredStrategy hint,
// every strategy is selected with equal weight; a preferred strategy
// keeps the full roster in play (a caller still benefits from the other
// strategies' coverage) but is weighted twice as heavily as the rest, so
// it dominates ranking without starving the others entirely.
func route(req Request) RouteDecision {
	targets := defaultTargetMemoryTypes
	if len(req.TargetMemoryTypes) > 0 {
		targets = make([]types.MemoryType, 0, len(req.TargetMemoryTypes))
		for _, t := range req.TargetMemoryTypes {
			targets = append(targets, types.MemoryType(t))
		}
	}

	weights := make(map[Strategy]float64, len(allStrategies))
	for _, s := range allStrategies {
		weights[s] = 1.0
	}
	if req.PreferredStrategy != "" {
		if _, ok := weights[req.PreferredStrategy]; ok {
			weights[req.PreferredStrategy] = 2.0
		}
	}

	return RouteDecision{
		TargetMemoryTypes:  targets,
		SelectedStrategies: append([]Strategy{}, allStrategies...),
		StrategyWeights:    weights,
	}
}
