package types

// PairwiseComparison compares the first two successful results of a run.
type PairwiseComparison struct {
	// Absolute processing time difference in seconds.
	// example: 0.412
	TimeDifference float64 `json:"time_difference" example:"0.412"`
	// Time difference relative to the mean of both times, in percent.
	// example: 28.6
	TimeDifferencePercent *float64 `json:"time_difference_percent,omitempty" example:"28.6"`
	// Model with the lower processing time.
	// example: qwen/qwen3-vl-4b
	FasterModel string `json:"faster_model" example:"qwen/qwen3-vl-4b"`
	// Absolute generation rate difference; present when both results report a rate.
	TokensPerSecondDiff *float64 `json:"tokens_per_second_diff,omitempty" example:"1.25"`
	// Model with the higher generation rate.
	FasterTokensModel string `json:"faster_tokens_model,omitempty" example:"google/gemma-3-4b"`
	// Absolute total-token difference; present when both results report usage.
	TotalTokensDiff *int `json:"total_tokens_diff,omitempty" example:"42"`
	// Model that used fewer total tokens.
	MoreEfficientModel string `json:"more_efficient_model,omitempty" example:"qwen/qwen3-vl-4b"`
	// Case-insensitive exact match of both answers.
	AnswersMatch bool `json:"answers_match" example:"true"`
	// "identical" or "different".
	AnswerSimilarity string `json:"answer_similarity" example:"identical"`
}

// Evaluation is the outcome of running one image through an ordered model list.
type Evaluation struct {
	ID      string `json:"id" example:"3f1e2d8a-5c7b-4f7e-9a51-8a2b0c9d1e11"`
	Image   string `json:"image" example:"cat.jpg"`
	Success bool   `json:"success" example:"true"`
	// One result per requested model, in request order.
	Results    []InferenceResult   `json:"results"`
	Comparison *PairwiseComparison `json:"comparison,omitempty"`
	// example: 1
	ModelsAnalyzed int `json:"models_analyzed" example:"1"`
	// example: 1
	ModelsFailed int `json:"models_failed" example:"1"`
	// Set when no model produced an answer.
	Error string `json:"error,omitempty"`
}

// ModelPerformance summarises one model across a batch.
type ModelPerformance struct {
	Model       string  `json:"model"`
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	// Averages are over successful calls only; zero when there are none.
	AverageLatency      float64 `json:"average_processing_time"`
	AverageThroughput   float64 `json:"average_tokens_per_second"`
	TotalProcessingTime float64 `json:"total_processing_time"`
	// Classification mode only.
	Accuracy *float64 `json:"accuracy,omitempty"`
	Correct  int      `json:"correct,omitempty"`
	Judged   int      `json:"judged,omitempty"`
}

// BatchReport is derived from an EvaluationBatch and never stored.
type BatchReport struct {
	Models          []string                    `json:"models"`
	Images          int                         `json:"images"`
	AgreementMatrix map[string]map[string]int   `json:"agreement_matrix"`
	Performance     map[string]ModelPerformance `json:"performance_metrics"`
}

// BatchEvaluation bundles the per-image evaluations of a batch with its report.
type BatchEvaluation struct {
	ID          string                `json:"id"`
	Mode        PromptMode            `json:"mode"`
	Labels      *ClassificationLabels `json:"labels,omitempty"`
	Success     bool                  `json:"success"`
	Evaluations []Evaluation          `json:"evaluations"`
	Batch       EvaluationBatch       `json:"-"`
	Report      BatchReport           `json:"report"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []string `json:"models"`
	// True when discovery failed and the static fallback list is returned.
	Fallback bool `json:"fallback"`
}

// ModelAvailability is one configured model as seen by GET /check-models.
type ModelAvailability struct {
	Name            string `json:"name" example:"qwen/qwen3-vl-4b"`
	ShortName       string `json:"short_name" example:"qwen3-vl-4b"`
	Available       bool   `json:"available"`
	CurrentlyLoaded bool   `json:"currently_loaded"`
}

// CheckModelsResponse is returned by GET /check-models.
type CheckModelsResponse struct {
	Status       string              `json:"status" example:"ok"`
	Models       []ModelAvailability `json:"models"`
	LoadedCount  int                 `json:"loaded_count"`
	TotalCount   int                 `json:"total_count"`
	AllLoaded    bool                `json:"all_loaded"`
	CurrentModel string              `json:"current_model,omitempty"`
	AutoSwitch   bool                `json:"auto_switching"`
	Note         string              `json:"note,omitempty"`
}

// ActiveModelResponse is returned by GET /active-model.
type ActiveModelResponse struct {
	Success                 bool     `json:"success"`
	ActiveModel             string   `json:"active_model,omitempty"`
	ActiveModelShort        string   `json:"active_model_short,omitempty"`
	AvailableModels         []string `json:"available_models"`
	ManualSwitchingRequired bool     `json:"manual_switching_required"`
	Instructions            []string `json:"instructions,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Backend variant: manual, gateway or explicit.
	// example: manual
	Backend      string              `json:"backend" example:"manual"`
	BaseURL      string              `json:"base_url" example:"http://127.0.0.1:1234"`
	Capabilities BackendCapabilities `json:"capabilities"`
	Models       []string            `json:"models"`
	// True while an evaluation is running.
	Busy bool `json:"busy"`
	// example: 12
	EvaluationsTotal uint64 `json:"evaluations_total" example:"12"`
	// example: 24
	InvocationsTotal uint64 `json:"invocations_total" example:"24"`
	// example: 3
	FailuresTotal uint64 `json:"failures_total" example:"3"`
	// Unix seconds of the last finished evaluation, 0 if none.
	LastEvaluationUnix int64 `json:"last_evaluation_unix"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: image is required
	Error string `json:"error" example:"image is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
