package domain

import "time"

// History entry types.
const (
	HistoryAnalysisAborted   = "analysis_aborted"
	HistorySelectiveComplete = "analysis_selective_complete"
	historyAnalysisPrefix    = "analysis_"
	historySelectivePrefix   = "analysis_selective_"
	historyFailedSuffix      = "_failed"
	historyReflectionPrefix  = "reflection_"
)

// AnalysisHistoryType names the entry for one analysis pass, e.g.
// "analysis_surface" or "analysis_selective_structure_failed".
func AnalysisHistoryType(l Layer, selective, failed bool) string {
	t := historyAnalysisPrefix
	if selective {
		t = historySelectivePrefix
	}
	t += string(l)
	if failed {
		t += historyFailedSuffix
	}
	return t
}

// ReflectionHistoryType names the entry embedded in a reflection artifact.
func ReflectionHistoryType(rt ReflectionType) string {
	return historyReflectionPrefix + rt.Pass()
}

// HistoryEntry is one append-only audit record on a signal or artifact.
// Entries are never mutated once written.
type HistoryEntry struct {
	Type            string    `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	AccountID       string    `json:"account_id,omitempty"`
	Model           string    `json:"model,omitempty"`
	SystemPrompt    string    `json:"system_prompt,omitempty"`
	UserPrompt      string    `json:"user_prompt,omitempty"`
	Response        string    `json:"response,omitempty"`
	Tokens          *int      `json:"tokens,omitempty"`
	FieldsUpdated   []string  `json:"fields_updated,omitempty"`
	FieldsRequested []string  `json:"fields_requested,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// Usage is the token accounting a provider reports for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens"`
}

// Generation is the normalized result of one model call.
type Generation struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// TotalTokens returns a pointer suitable for HistoryEntry.Tokens.
func (g *Generation) TotalTokens() *int {
	if g == nil || g.Usage == nil {
		return nil
	}
	n := g.Usage.TotalTokens
	return &n
}
