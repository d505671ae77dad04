package reasoning

// Advanced reasoning: stateless helpers operating over a caller-provided
// graph snapshot, per spec §11. None of these hold a lock or mutate
// Engine/CausalGraph state — callers pass in whatever subgraph or
// domain pair they want reasoned over.

// MultiHopCausal is BFS with the same time-order and confidence-product
// constraints as Engine.FindCausalChains, exposed as a standalone helper
// so callers can reason over an ad hoc graph snapshot without
// registering it with an Engine.
func MultiHopCausal(graph *CausalGraph, causeID, effectID string, maxHops int, minConfidence float64) []CausalChain {
	return bfsChains(graph, causeID, effectID, maxHops, minConfidence)
}

// Counterfactual finds nodeID's forward dependents (nodes reachable via
// outgoing causal edges) and predicts how alteredOutcome would propagate
// to them. Confidence decays as the breadth of impact grows: each
// additional affected node multiplies confidence by a fixed 0.9 decay
// factor, reflecting growing uncertainty the further the predicted
// alteration ripples.
func Counterfactual(graph *CausalGraph, nodeID, alteredOutcome string) CounterfactualResult {
	affected := forwardDependents(graph, nodeID, make(map[string]bool))
	confidence := 1.0
	for range affected {
		confidence *= 0.9
	}
	return CounterfactualResult{
		NodeID:          nodeID,
		AlteredOutcome:  alteredOutcome,
		AffectedNodeIDs: affected,
		Confidence:      confidence,
	}
}

func forwardDependents(graph *CausalGraph, nodeID string, visited map[string]bool) []string {
	var out []string
	for _, edge := range graph.OutEdges(nodeID) {
		if visited[edge.EffectID] {
			continue
		}
		visited[edge.EffectID] = true
		out = append(out, edge.EffectID)
		out = append(out, forwardDependents(graph, edge.EffectID, visited)...)
	}
	return out
}

// Analogical maps source onto target: features are matched by simple
// set overlap, relations by equality of their Label regardless of
// endpoint names. Per spec §11, analogy strength = 0.4*coverage +
// 0.6*avg(mapping_confidence), where coverage is the fraction of source
// features/relations that found any match and mapping_confidence for a
// matched relation is 1.0 (label equality is binary — there is no
// partial relation match in this model).
func Analogical(source, target Domain) AnalogyResult {
	featureMatches := map[string]string{}
	targetFeatures := map[string]bool{}
	for _, f := range target.Features {
		targetFeatures[f] = true
	}
	for _, f := range source.Features {
		if targetFeatures[f] {
			featureMatches[f] = f
		}
	}

	relationMatches := map[string]string{}
	targetByLabel := map[string][]Relation{}
	for _, r := range target.Relations {
		targetByLabel[r.Label] = append(targetByLabel[r.Label], r)
	}
	for _, r := range source.Relations {
		if matches, ok := targetByLabel[r.Label]; ok && len(matches) > 0 {
			relationMatches[r.Label] = matches[0].Label
		}
	}

	totalSource := len(source.Features) + len(source.Relations)
	totalMatched := len(featureMatches) + len(relationMatches)
	coverage := 0.0
	if totalSource > 0 {
		coverage = float64(totalMatched) / float64(totalSource)
	}

	mappingConfidence := 0.0
	if totalMatched > 0 {
		mappingConfidence = 1.0 // label/feature equality is a binary match in this model
	}

	return AnalogyResult{
		FeatureMatches:  featureMatches,
		RelationMatches: relationMatches,
		Coverage:        coverage,
		Strength:        0.4*coverage + 0.6*mappingConfidence,
	}
}
