package models

// PromptPair is the system and user prompt sent for one generation
type PromptPair struct {
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
}

// OutcomeStatus is the terminal state of a generation
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeExhausted OutcomeStatus = "exhausted"
)

// GenerationOutcome is what the presentation layer shows once a generation ends.
// A succeeded outcome carries the winning model and its full text. An exhausted
// outcome carries the last error seen.
type GenerationOutcome struct {
	Status          OutcomeStatus `json:"status"`
	UsedModel       string        `json:"used_model,omitempty"`
	FullText        string        `json:"full_text,omitempty"`
	HTML            string        `json:"html,omitempty"`
	Error           string        `json:"error,omitempty"`
	AttemptedModels []string      `json:"attempted_models"`
	DurationMS      int64         `json:"duration_ms"`
}

// Succeeded reports whether a model completed its stream
func (o *GenerationOutcome) Succeeded() bool {
	return o.Status == OutcomeSucceeded
}
