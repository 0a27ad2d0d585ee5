// Package annotate implements the chunked, retrying LLM annotation loop.
// Each operation takes a text in its prerequisite schema, sends bounded
// chunks of the token stream to the model, validates the responses and
// re-aligns them onto the original elements.
package annotate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Request is one completion request to the language model.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Response is the model's reply plus its token accounting.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client is the uniform interface to a language model. Implementations live
// in internal/adapter/llm.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CallRecord documents one LLM call made during a phase operation.
type CallRecord struct {
	ID               uuid.UUID
	Prompt           string
	Response         string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Duration         time.Duration
	Retries          int
	Timestamp        time.Time
}

// Mode selects between producing annotations from scratch and improving
// existing ones.
type Mode string

const (
	ModeAnnotate Mode = "annotate"
	ModeImprove  Mode = "improve"
)

// IsValid returns true if the mode is a known value.
func (m Mode) IsValid() bool { return m == ModeAnnotate || m == ModeImprove }

// DefaultSystemMessage is the system message sent with every request.
const DefaultSystemMessage = "You are a helpful assistant."
