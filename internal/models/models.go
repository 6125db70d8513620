package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StepKind identifies the phase a research step belongs to.
type StepKind string

const (
	StepClarification StepKind = "clarification"
	StepPokeAPIQuery  StepKind = "pokeapi_query"
	StepWebSearch     StepKind = "web_search"
	StepAnalysis      StepKind = "analysis"
	StepSynthesis     StepKind = "synthesis"
)

// ResearchStep is one recorded phase attempt. Steps are immutable once
// appended to the ledger.
type ResearchStep struct {
	Kind         StepKind               `json:"step_type" db:"step_type"`
	Description  string                 `json:"description" db:"description"`
	InputData    map[string]interface{} `json:"input_data,omitempty"`
	OutputData   map[string]interface{} `json:"output_data,omitempty"`
	Sources      []string               `json:"sources,omitempty"`
	Success      bool                   `json:"success" db:"success"`
	ErrorMessage string                 `json:"error_message,omitempty" db:"error_message"`
	Timestamp    time.Time              `json:"timestamp" db:"created_at"`
}

// NewStep creates a successful step stamped with the current time.
func NewStep(kind StepKind, description string) ResearchStep {
	return ResearchStep{
		Kind:        kind,
		Description: description,
		Success:     true,
		Timestamp:   time.Now(),
	}
}

// FailedStep creates a failed step. A failed step always carries an error
// message; callers passing a nil error get a generic one.
func FailedStep(kind StepKind, description string, err error) ResearchStep {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ResearchStep{
		Kind:         kind,
		Description:  description,
		Success:      false,
		ErrorMessage: msg,
		Timestamp:    time.Now(),
	}
}

// PokemonData is a normalized record from the domain API. Height is meters
// and weight kilograms; the upstream decimeter/hectogram values are converted
// at the adapter boundary.
type PokemonData struct {
	ID             int               `json:"id"`
	Name           string            `json:"name"`
	Types          []string          `json:"types"`
	Height         float64           `json:"height"`
	Weight         float64           `json:"weight"`
	BaseExperience int               `json:"base_experience"`
	Abilities      []string          `json:"abilities"`
	Stats          map[string]int    `json:"stats"`
	Moves          []string          `json:"moves"`
	Sprites        map[string]string `json:"sprites"`
	Description    string            `json:"description,omitempty"`
	EvolutionChain []string          `json:"evolution_chain,omitempty"`
}

// ResearchContext is the single mutable aggregate for one run. The collected
// data map is the shared scratchpad every worker and the dispatcher write
// into; access is serialized so a future concurrent worker pool only needs to
// fan out the loop body. Key collisions resolve last-write-wins.
type ResearchContext struct {
	RunID          string
	OriginalQuery  string
	ClarifiedGoals []string
	CurrentFocus   string
	Analysis       *AnalysisResult

	mu        sync.RWMutex
	collected map[string]interface{}
}

// NewContext creates a context for a fresh run with only the query populated.
func NewContext(query string) *ResearchContext {
	return &ResearchContext{
		RunID:         uuid.New().String(),
		OriginalQuery: query,
		collected:     make(map[string]interface{}),
	}
}

// SetData stores a value under a namespaced key in the shared scratchpad.
func (c *ResearchContext) SetData(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collected[key] = value
}

// GetData returns the value stored under key.
func (c *ResearchContext) GetData(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.collected[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when absent or not a
// string.
func (c *ResearchContext) GetString(key string) string {
	v, ok := c.GetData(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetInt returns the integer stored under key, coercing float64 values that
// arrive via JSON decoding. Absent or non-numeric values yield 0.
func (c *ResearchContext) GetInt(key string) int {
	v, ok := c.GetData(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return 0
}

// GetStringSlice returns the string slice stored under key, coercing
// []interface{} element-wise. Non-string elements are skipped.
func (c *ResearchContext) GetStringSlice(key string) []string {
	v, ok := c.GetData(key)
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// DataSnapshot returns a shallow copy of the collected data map.
func (c *ResearchContext) DataSnapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.collected))
	for k, v := range c.collected {
		out[k] = v
	}
	return out
}

// ResearchReport is the terminal artifact of a run.
type ResearchReport struct {
	RunID            string                 `json:"run_id"`
	Query            string                 `json:"query"`
	ExecutiveSummary string                 `json:"executive_summary"`
	DetailedFindings map[string]interface{} `json:"detailed_findings"`
	Recommendations  []string               `json:"recommendations"`
	Sources          []string               `json:"sources"`
	ResearchSteps    []ResearchStep         `json:"research_steps"`
	ConfidenceScore  float64                `json:"confidence_score"`
	Limitations      []string               `json:"limitations"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// FlexInt decodes a JSON value that should be an integer but may arrive as a
// float, a quoted number, or garbage. Anything non-numeric decodes to zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int(n))
		return nil
	}
	*f = 0
	return nil
}

// InstructionList decodes worker instructions that the coordinator may emit
// either as an ordered array or as a map keyed "subagent_1", "subagent_2", ...
// Map form is ordered by the numeric key suffix.
type InstructionList []string

func (l *InstructionList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err == nil {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := trailingNumber(keys[i]), trailingNumber(keys[j])
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		})
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, m[k])
		}
		*l = out
		return nil
	}
	*l = nil
	return nil
}

func trailingNumber(s string) int {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return 0
	}
	n, _ := strconv.Atoi(s[i:])
	return n
}

// ClarificationResult is the coordinator's decomposition of the query.
type ClarificationResult struct {
	Goals                []string        `json:"goals"`
	PokemonToResearch    []string        `json:"pokemon_to_research"`
	ResearchFocus        string          `json:"research_focus"`
	Constraints          []string        `json:"constraints"`
	SubagentInstructions InstructionList `json:"subagent_instructions"`
	NumSubagents         FlexInt         `json:"num_subagents"`
}

// AnalysisResult is the analyst's verdict over the aggregated findings.
type AnalysisResult struct {
	KeyFindings            []string `json:"key_findings"`
	Recommendations        []string `json:"recommendations"`
	Considerations         []string `json:"considerations"`
	Limitations            []string `json:"limitations"`
	ConfidenceScore        float64  `json:"confidence_score"`
	SatisfactionOfGoals    bool     `json:"satisfaction_of_goals"`
	FurtherResearchNeeded  bool     `json:"further_research_needed"`
	NeedForGoalsRefinement bool     `json:"need_for_goals_refinement"`
	RefinedQuery           string   `json:"refined_query"`
}
