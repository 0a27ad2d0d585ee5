package llm

import (
	"context"
	"sync"

	"github.com/clara-project/clara-core/internal/annotate"
)

// Mock is a deterministic annotate.Client for tests and dry runs. It
// replays scripted responses in order, or calls a function if one is set.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Func      func(req annotate.Request) (annotate.Response, error)
	Calls     []annotate.Request
}

// Complete records the request and returns the next scripted response.
// When the script runs out, the last response repeats.
func (m *Mock) Complete(ctx context.Context, req annotate.Request) (annotate.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Func != nil {
		return m.Func(req)
	}
	if m.Err != nil {
		return annotate.Response{}, m.Err
	}
	if len(m.Responses) == 0 {
		return annotate.Response{Text: "[]"}, nil
	}
	idx := len(m.Calls) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return annotate.Response{
		Text:             m.Responses[idx],
		PromptTokens:     len(req.Prompt) / 4,
		CompletionTokens: len(m.Responses[idx]) / 4,
	}, nil
}
