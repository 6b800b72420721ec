package types

import "strings"

// ModelIdentifier names a model, optionally with a provider prefix ("qwen/qwen3-vl-4b").
// Identity comparisons are case-sensitive.
type ModelIdentifier = string

// ShortName strips a leading provider/namespace prefix from a model id.
func ShortName(id ModelIdentifier) string {
	if i := strings.Index(id, "/"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}

// PromptMode selects the instruction sent alongside the image.
type PromptMode string

const (
	ModeDescription    PromptMode = "description"
	ModeClassification PromptMode = "classification"
)

// ParsePromptMode maps free-form input onto a PromptMode, defaulting to description.
func ParsePromptMode(s string) PromptMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeClassification)) {
		return ModeClassification
	}
	return ModeDescription
}

// ClassificationLabels are the two classes offered in classification mode.
type ClassificationLabels struct {
	Positive string `json:"positive" example:"Airplane"`
	Negative string `json:"negative" example:"Not airplane"`
}

// Ground-truth values for classification batches.
const (
	TruthPositive = "positive"
	TruthNegative = "negative"
)

// Image is an uploaded or scanned image held in memory.
type Image struct {
	Name string
	// Ext is the lower-case extension without the dot, e.g. "jpg".
	Ext  string
	Data []byte
}

// BackendCapabilities describes what a backend adapter can do. Fixed at construction.
type BackendCapabilities struct {
	CanListActiveModels  bool `json:"can_list_active_models"`
	CanExplicitlyLoad    bool `json:"can_explicitly_load"`
	CanExplicitlyUnload  bool `json:"can_explicitly_unload"`
	AlwaysAvailable      bool `json:"always_available"`
	RequiresManualSwitch bool `json:"requires_manual_switch"`
}

// InferenceRequest is built once per (image, model) pair.
type InferenceRequest struct {
	Image  Image
	Model  ModelIdentifier
	Mode   PromptMode
	Labels *ClassificationLabels
}

// ErrorKind classifies a failed inference.
type ErrorKind string

const (
	ErrConnectivity     ErrorKind = "connectivity_error"
	ErrResponseFormat   ErrorKind = "response_format_error"
	ErrModelUnavailable ErrorKind = "model_unavailable"
	ErrModelUnsupported ErrorKind = "model_unsupported"
	ErrDiscoveryFailed  ErrorKind = "discovery_failed"
)

// Success carries the answer and performance metrics of one inference.
type Success struct {
	Entity                string   `json:"entity" example:"Dog"`
	ProcessingTimeSeconds float64  `json:"processing_time" example:"1.234"`
	PromptTokens          *int     `json:"prompt_tokens,omitempty" example:"812"`
	CompletionTokens      *int     `json:"completion_tokens,omitempty" example:"3"`
	TotalTokens           *int     `json:"total_tokens,omitempty" example:"815"`
	TokensPerSecond       *float64 `json:"tokens_per_second,omitempty" example:"2.43"`
}

// Failure explains why a model produced no answer.
type Failure struct {
	Reason               ErrorKind       `json:"reason" example:"model_unavailable"`
	Message              string          `json:"error"`
	RequiresManualSwitch bool            `json:"requires_manual_switch,omitempty"`
	CurrentlyLoaded      ModelIdentifier `json:"current_loaded,omitempty"`
	// Instruction is a human action plan for manual-switch backends.
	Instruction string `json:"instruction,omitempty"`
}

// InferenceResult holds exactly one of Success or Failure.
// Values are produced by NewSuccess/NewFailure and never mutated afterwards.
type InferenceResult struct {
	Image   string          `json:"image,omitempty"`
	Model   ModelIdentifier `json:"model"`
	Success *Success        `json:"success,omitempty"`
	Failure *Failure        `json:"failure,omitempty"`
}

func NewSuccess(image string, model ModelIdentifier, s Success) InferenceResult {
	return InferenceResult{Image: image, Model: model, Success: &s}
}

func NewFailure(image string, model ModelIdentifier, f Failure) InferenceResult {
	return InferenceResult{Image: image, Model: model, Failure: &f}
}

// OK reports whether the result is a Success.
func (r InferenceResult) OK() bool { return r.Success != nil }

// EvaluationBatch is the ordered list of results across images and models.
type EvaluationBatch struct {
	Results []InferenceResult `json:"results"`
}

// Append adds a result. Results are kept in evaluation order.
func (b *EvaluationBatch) Append(r ...InferenceResult) { b.Results = append(b.Results, r...) }

// Images returns the distinct image names in first-seen order.
func (b EvaluationBatch) Images() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range b.Results {
		if _, ok := seen[r.Image]; ok {
			continue
		}
		seen[r.Image] = struct{}{}
		out = append(out, r.Image)
	}
	return out
}

// Lookup finds the result for (image, model).
func (b EvaluationBatch) Lookup(image string, model ModelIdentifier) (InferenceResult, bool) {
	for _, r := range b.Results {
		if r.Image == image && r.Model == model {
			return r, true
		}
	}
	return InferenceResult{}, false
}
