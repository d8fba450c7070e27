// Package classifier maps free-form task text to a trigger class. The
// routing engine never infers classes itself; callers run this (or their own
// classifier) upstream and pass the result in.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/routegate/pkg/adapter"
	"github.com/zen-systems/routegate/pkg/policy"
)

// DefaultThreshold is the heuristic confidence below which the LLM
// tie-breaker runs, when one is configured.
const DefaultThreshold = 0.65

// Vocabulary maps each trigger class to the phrases that suggest it.
// Phrases are matched as whole tokens, case-insensitively. TriggerNonRuntime
// has no vocabulary; it is the result when nothing matches.
var Vocabulary = map[policy.TriggerClass][]string{
	policy.TriggerRuntimeBug: {
		"crash", "crashes", "exception", "stack trace", "runtime error",
		"console error", "null pointer", "undefined", "throws", "500",
	},
	policy.TriggerVisualRegression: {
		"visual", "layout", "misaligned", "overlap", "css", "styling",
		"render", "flicker", "looks wrong", "visual diff",
	},
	policy.TriggerReproRequired: {
		"reproduce", "repro", "steps to reproduce", "cannot reproduce",
		"intermittent", "flaky",
	},
	policy.TriggerReviewNeedsRuntime: {
		"verify in browser", "runtime behavior", "check in the browser",
		"manual verification", "observe at runtime",
	},
}

// Candidate captures a scored candidate trigger class.
type Candidate struct {
	Class   policy.TriggerClass `json:"trigger_class"`
	Score   int                 `json:"score"`
	Matched []string            `json:"matched,omitempty"`
}

// Result captures a classification with its provenance.
type Result struct {
	Class      policy.TriggerClass `json:"trigger_class"`
	Confidence float64             `json:"confidence"`
	Reasons    []string            `json:"reasons,omitempty"`
	Candidates []Candidate         `json:"candidates,omitempty"`
	UsedLLM    bool                `json:"used_llm"`
}

// Classifier scores task text against the vocabulary and optionally breaks
// low-confidence ties with an LLM call. With no adapter configured it is
// fully deterministic.
type Classifier struct {
	tieBreaker adapter.Adapter
	model      string
	threshold  float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTieBreaker enables the LLM tie-breaker using the given adapter and model.
func WithTieBreaker(a adapter.Adapter, model string) Option {
	return func(c *Classifier) {
		c.tieBreaker = a
		c.model = model
	}
}

// WithThreshold overrides the tie-breaker confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Classifier) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// New creates a classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify determines the trigger class for task text. A tie-breaker failure
// is reported alongside the heuristic result rather than replacing it.
func (c *Classifier) Classify(ctx context.Context, text string) (*Result, error) {
	result := Heuristic(text)

	if c.tieBreaker == nil || c.model == "" {
		return result, nil
	}
	if result.Confidence >= c.threshold || len(result.Candidates) <= 1 {
		return result, nil
	}

	prompt := buildPrompt(text, result.Candidates)
	content, err := c.tieBreaker.Complete(ctx, c.model, prompt)
	if err != nil && adapter.IsTransient(err) {
		content, err = c.tieBreaker.Complete(ctx, c.model, prompt)
	}
	if err != nil {
		result.Reasons = append(result.Reasons, fmt.Sprintf("tie-breaker error: %v", err))
		return result, err
	}

	pick, err := parsePick(content)
	if err != nil {
		result.Reasons = append(result.Reasons, fmt.Sprintf("tie-breaker response invalid: %v", err))
		return result, err
	}
	if !candidateClass(pick.Class, result.Candidates) {
		result.Reasons = append(result.Reasons, "tie-breaker class not in candidates")
		return result, fmt.Errorf("tie-breaker class %q not in candidates", pick.Class)
	}
	if pick.Confidence < 0 || pick.Confidence > 1 {
		result.Reasons = append(result.Reasons, "tie-breaker confidence out of range")
		return result, fmt.Errorf("tie-breaker confidence out of range")
	}

	result.Class = pick.Class
	result.Confidence = pick.Confidence
	result.UsedLLM = true
	result.Reasons = append(result.Reasons, pick.Reason)
	return result, nil
}

// Heuristic scores trigger classes by vocabulary matches alone.
func Heuristic(text string) *Result {
	textLower := strings.ToLower(text)

	var candidates []Candidate
	for class, phrases := range Vocabulary {
		var matched []string
		for _, phrase := range phrases {
			if containsToken(textLower, strings.ToLower(phrase)) {
				matched = append(matched, phrase)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Strings(matched)
		candidates = append(candidates, Candidate{Class: class, Score: len(matched), Matched: matched})
	}

	if len(candidates) == 0 {
		return &Result{
			Class:      policy.TriggerNonRuntime,
			Confidence: 0,
			Reasons:    []string{"no vocabulary matched; treating as non-runtime"},
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].Class < candidates[j].Class
		}
		return candidates[i].Score > candidates[j].Score
	})

	topScore := candidates[0].Score
	secondScore := 0
	if len(candidates) > 1 {
		secondScore = candidates[1].Score
	}

	margin := float64(topScore-secondScore) / float64(topScore)
	strength := float64(min(topScore, 5)) / 5.0
	confidence := 0.75*margin + 0.25*strength
	if topScore >= 2 && secondScore == 0 {
		confidence = max(confidence, 0.9)
	}

	return &Result{
		Class:      candidates[0].Class,
		Confidence: confidence,
		Reasons:    []string{fmt.Sprintf("top_score=%d second_score=%d", topScore, secondScore)},
		Candidates: candidates,
	}
}

type tieBreakerPick struct {
	Class      policy.TriggerClass `json:"trigger_class"`
	Confidence float64             `json:"confidence"`
	Reason     string              `json:"reason"`
}

func parsePick(content string) (*tieBreakerPick, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var pick tieBreakerPick
	if err := json.Unmarshal([]byte(content), &pick); err != nil {
		return nil, err
	}
	if pick.Class == "" {
		return nil, fmt.Errorf("missing trigger_class")
	}
	return &pick, nil
}

func candidateClass(class policy.TriggerClass, candidates []Candidate) bool {
	if class == policy.TriggerNonRuntime {
		return true
	}
	for _, candidate := range candidates {
		if candidate.Class == class {
			return true
		}
	}
	return false
}

func buildPrompt(text string, candidates []Candidate) string {
	var sb strings.Builder
	sb.WriteString("You classify bug-fixing task descriptions. Choose the best trigger_class.\n")
	sb.WriteString("Return ONLY JSON: {\"trigger_class\":\"...\",\"confidence\":0-1,\"reason\":\"...\"}.\n\n")
	sb.WriteString("Task description:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nCandidates:\n")

	for _, c := range candidates {
		sb.WriteString(fmt.Sprintf("- %s (score=%d)\n", c.Class, c.Score))
		if len(c.Matched) > 0 {
			sb.WriteString(fmt.Sprintf("  matched: %s\n", strings.Join(c.Matched, ", ")))
		}
	}

	return sb.String()
}

// containsToken checks whether text contains the phrase at word boundaries.
func containsToken(text, phrase string) bool {
	idx := strings.Index(text, phrase)
	if idx == -1 {
		return false
	}

	if idx > 0 && isWordChar(text[idx-1]) {
		return false
	}

	endIdx := idx + len(phrase)
	if endIdx < len(text) && isWordChar(text[endIdx]) {
		return false
	}

	return true
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
