package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"vlmeval/pkg/types"
)

const (
	descriptionPrompt    = "Identify what is shown in the picture. Answer with a single word or a short phrase: only the name of the entity, no explanations."
	classificationPrompt = "Look at the picture and answer with exactly one of two options: %q or %q. Reply with the option only, no explanations."
)

// Generation holds sampling parameters shared by every invocation.
type Generation struct {
	MaxTokens int
	// Temperature nil means DefaultTemperature. Zero is honored.
	Temperature *float64
}

// DefaultTemperature keeps answers near-deterministic.
const DefaultTemperature = 0.2

// DefaultGeneration keeps answers terse.
var DefaultGeneration = Generation{MaxTokens: 30}

func (g Generation) temperature() float64 {
	if g.Temperature == nil {
		return DefaultTemperature
	}
	return *g.Temperature
}

// ChatRequest is the OpenAI-compatible chat completion payload.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// MIMEType maps a file extension to the image MIME type used in data URIs.
func MIMEType(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpg" {
		ext = "jpeg"
	}
	return "image/" + ext
}

// DataURI embeds an image inline as base64.
func DataURI(img types.Image) string {
	return "data:" + MIMEType(img.Ext) + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Instruction returns the text prompt for a request. Classification without
// labels degrades to the description prompt.
func Instruction(mode types.PromptMode, labels *types.ClassificationLabels) string {
	if mode == types.ModeClassification && labels != nil {
		return fmt.Sprintf(classificationPrompt, labels.Positive, labels.Negative)
	}
	return descriptionPrompt
}

// BuildChatRequest builds the single-turn multimodal request for any backend.
// model is the identifier the backend expects, which may differ from req.Model
// for instance-based backends.
func BuildChatRequest(req types.InferenceRequest, model string, gen Generation) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []ChatMessage{{
			Role: "user",
			Content: []ContentPart{
				{Type: "image_url", ImageURL: &ImageURL{URL: DataURI(req.Image)}},
				{Type: "text", Text: Instruction(req.Mode, req.Labels)},
			},
		}},
		MaxTokens:   gen.MaxTokens,
		Temperature: gen.temperature(),
	}
}

// TokensPerSecond derives a generation rate. ok is false unless both inputs are positive.
func TokensPerSecond(completionTokens int, seconds float64) (rate float64, ok bool) {
	if completionTokens <= 0 || seconds <= 0 {
		return 0, false
	}
	return round(float64(completionTokens)/seconds, 2), true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

var errFormat = errors.New("malformed response")

// ParseChatResponse extracts the trimmed answer and optional usage.
// Errors wrap errFormat.
func ParseChatResponse(body []byte, seconds float64) (types.Success, error) {
	if !gjson.ValidBytes(body) {
		return types.Success{}, fmt.Errorf("%w: body is not valid JSON", errFormat)
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || content.Type != gjson.String {
		return types.Success{}, fmt.Errorf("%w: missing choices[0].message.content", errFormat)
	}
	s := types.Success{
		Entity:                strings.TrimSpace(content.String()),
		ProcessingTimeSeconds: seconds,
	}
	if usage := gjson.GetBytes(body, "usage"); usage.IsObject() {
		s.PromptTokens = tokenCount(usage, "prompt_tokens")
		s.CompletionTokens = tokenCount(usage, "completion_tokens")
		s.TotalTokens = tokenCount(usage, "total_tokens")
		if s.CompletionTokens != nil {
			if rate, ok := TokensPerSecond(*s.CompletionTokens, seconds); ok {
				s.TokensPerSecond = &rate
			}
		}
	}
	return s, nil
}

// tokenCount returns nil when the usage object omits the field.
func tokenCount(usage gjson.Result, field string) *int {
	v := usage.Get(field)
	if !v.Exists() || v.Type != gjson.Number {
		return nil
	}
	n := int(v.Int())
	return &n
}

// invokeChat posts a chat completion and converts every outcome into a result.
func invokeChat(ctx context.Context, ep endpoint, path string, req types.InferenceRequest, backendModel string, gen Generation, timeout time.Duration) types.InferenceResult {
	payload := BuildChatRequest(req, backendModel, gen)
	start := time.Now()
	body, err := ep.do(ctx, http.MethodPost, path, payload, timeout)
	seconds := round(time.Since(start).Seconds(), 3)
	if err != nil {
		msg := "connection to backend failed: " + err.Error()
		if se, ok := err.(*statusError); ok && se.Code == http.StatusBadRequest {
			msg = fmt.Sprintf("model %s is not available; make sure it is installed on the backend (%v)", req.Model, err)
		}
		return types.NewFailure(req.Image.Name, req.Model, types.Failure{Reason: types.ErrConnectivity, Message: msg})
	}
	s, err := ParseChatResponse(body, seconds)
	if err != nil {
		return types.NewFailure(req.Image.Name, req.Model, types.Failure{Reason: types.ErrResponseFormat, Message: err.Error()})
	}
	return types.NewSuccess(req.Image.Name, req.Model, s)
}
