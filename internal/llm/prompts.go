// Package llm provides the text-generation and embedding interfaces used by
// the memory pipeline, a gobreaker-backed circuit breaker for every LLM call
// site, and strict JSON-only prompt templates for fact extraction, decision
// making, conflict detection, and topic extraction.
package llm

import "fmt"

// FactExtractionPrompt generates a strict JSON-only prompt asking the model
// to pull discrete, memorable facts out of raw content. Non-fact chatter
// ("thanks", "ok", small talk) must yield an empty array, never an error.
func FactExtractionPrompt(content, persona string) string {
	personaLine := ""
	if persona != "" {
		personaLine = fmt.Sprintf("PERSONA CONTEXT: %s\n\n", persona)
	}
	return fmt.Sprintf(`TASK: Extract discrete, memorable facts from the content below.
OUTPUT: ONLY a valid JSON array. NO markdown. NO code blocks. NO backticks. NO OBJECT WRAPPER.

%sREQUIRED JSON STRUCTURE:
Your response MUST start with [ and end with ]
Each element MUST have: content, importance, confidence, tags

Example structure (EXACT FORMAT REQUIRED):
[
  {"content":"User prefers dark mode in all tools","importance":0.6,"confidence":0.9,"tags":["preference","ui"]},
  {"content":"Project deadline is March 15","importance":0.8,"confidence":0.95,"tags":["deadline","project"]}
]

RULES:
1. If the content is small talk, acknowledgment, or carries no durable information, return []
2. Each fact.content is a single self-contained statement (no pronouns referring outside the fact)
3. importance and confidence are floats in [0,1]
4. tags is a short array of lowercase keywords, may be empty
5. No extra fields, no trailing commas, no comments

CONTENT:
%s`, personaLine, content)
}

// DecisionPrompt asks the model to classify a new fact against a bounded
// set of existing candidate memories as ADD, UPDATE, DELETE, or NOOP.
func DecisionPrompt(fact string, candidates []string) string {
	list := ""
	for i, c := range candidates {
		list += fmt.Sprintf("%d. %s\n", i+1, c)
	}
	if list == "" {
		list = "(no existing candidates)\n"
	}
	return fmt.Sprintf(`TASK: Decide how a new fact relates to existing memories.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

NEW FACT:
%s

EXISTING CANDIDATES (numbered):
%s
REQUIRED JSON STRUCTURE:
{"action":"ADD|UPDATE|DELETE|NOOP","target_index":0,"confidence":0.0,"reason":"..."}

RULES:
1. action is exactly one of ADD, UPDATE, DELETE, NOOP
2. target_index is the 1-based index into EXISTING CANDIDATES (0 if action is ADD or NOOP)
3. ADD: no candidate is sufficiently similar to the new fact
4. UPDATE: a candidate should be refined or supplemented by the new fact
5. DELETE: the new fact invalidates a candidate (contradiction, supersession)
6. NOOP: the new fact duplicates a candidate or carries no new information
7. confidence is a float in [0,1]`, fact, list)
}

// ConflictDetectionPrompt asks the model to judge whether two memories
// conflict, and if so how severely.
func ConflictDetectionPrompt(a, b string) string {
	return fmt.Sprintf(`TASK: Determine whether these two statements conflict.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

STATEMENT A:
%s

STATEMENT B:
%s

REQUIRED JSON STRUCTURE:
{"has_conflict":true,"severity":"low|medium|high","explanation":"..."}

RULES:
1. has_conflict is a boolean
2. severity is only present meaningfully when has_conflict is true; otherwise use "low"
3. explanation is one sentence`, a, b)
}

// TopicExtractionPrompt asks the model to label the topics present in a
// retrieval query, optionally informed by surrounding conversation context.
func TopicExtractionPrompt(query, context string) string {
	contextLine := ""
	if context != "" {
		contextLine = fmt.Sprintf("CONTEXT:\n%s\n\n", context)
	}
	return fmt.Sprintf(`TASK: Extract topics from a search query.
OUTPUT: ONLY a valid JSON array. NO markdown. NO code blocks. NO backticks.

%sQUERY:
%s

REQUIRED JSON STRUCTURE:
[{"label":"...","category":"...","confidence":0.0}]

RULES:
1. Return [] if no clear topic is present
2. label is a short phrase, category is a single word, confidence is a float in [0,1]`, contextLine, query)
}

// CausalExplanationPrompt asks the model for a short natural-language
// explanation of a causal chain already discovered algorithmically (C11),
// used only to render a human-readable summary, never to discover the
// chain itself.
func CausalExplanationPrompt(chain []string) string {
	steps := ""
	for i, s := range chain {
		steps += fmt.Sprintf("%d. %s\n", i+1, s)
	}
	return fmt.Sprintf(`TASK: Summarize why this causal chain holds, in one or two sentences.
OUTPUT: plain text, no JSON, no markdown.

CHAIN:
%s`, steps)
}

// SynthesisPrompt asks the model to reconcile and summarize a set of
// retrieved memories into a single unified context string (C9.3).
func SynthesisPrompt(query string, memories []string) string {
	list := ""
	for i, m := range memories {
		list += fmt.Sprintf("%d. %s\n", i+1, m)
	}
	return fmt.Sprintf(`TASK: Synthesize the following memories into a single coherent context
that answers or informs the query below. Resolve contradictions by
preferring the most specific and most recent statement.
OUTPUT: plain text, no JSON, no markdown.

QUERY:
%s

MEMORIES:
%s`, query, list)
}
