package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clara-project/clara-core/internal/align"
	"github.com/clara-project/clara-core/internal/config"
	"github.com/clara-project/clara-core/internal/domain"
	"github.com/clara-project/clara-core/internal/markup"
	"github.com/clara-project/clara-core/internal/progress"
)

// Engine runs LLM annotation operations over text models.
type Engine struct {
	log       *slog.Logger
	client    Client
	llm       config.LLMConfig
	ann       config.AnnotationConfig
	templates *Registry
	clock     func() time.Time
}

// NewEngine creates an annotation engine.
func NewEngine(logger *slog.Logger, client Client, llm config.LLMConfig, ann config.AnnotationConfig, templates *Registry) *Engine {
	return &Engine{
		log:       logger.With("service", "annotate"),
		client:    client,
		llm:       llm,
		ann:       ann,
		templates: templates,
		clock:     time.Now,
	}
}

// Annotate runs one annotation operation of the given kind and mode over
// the text. The input text is not mutated; the annotated copy and the LLM
// call records are returned. The Word+NonWordText content stream of the
// output is identical to the input's.
func (e *Engine) Annotate(ctx context.Context, text *domain.Text, kind Kind, mode Mode, rep progress.Reporter) (*domain.Text, []CallRecord, error) {
	if !kind.IsValid() {
		return nil, nil, domain.NewValidationError("kind", "unknown annotation kind "+string(kind))
	}
	if !mode.IsValid() {
		return nil, nil, domain.NewValidationError("mode", "unknown mode "+string(mode))
	}
	if kind == KindLemmaAndGloss && mode != ModeImprove {
		return nil, nil, domain.NewValidationError("mode", "lemma_and_gloss supports improve only")
	}
	if rep == nil {
		rep = progress.Nop{}
	}

	out := text.Clone()
	stream := out.ContentStream()
	chunks := chunkStream(stream, e.ann.MaxAnnotationWords)

	operation := string(mode)
	tmpl, examples, err := e.templates.Lookup(operation, string(kind), text.L2Language)
	if err != nil {
		return nil, nil, err
	}

	var records []CallRecord
	// Chunks are sent strictly in source order: re-alignment depends on it.
	for i, chunk := range chunks {
		if rep.Cancelled() {
			return nil, records, fmt.Errorf("annotate %s: %w", kind, context.Canceled)
		}
		sent := promptElements(chunk)
		if len(sent) == 0 {
			continue
		}
		elementsJSON, err := simplifiedJSON(sent, kind, mode)
		if err != nil {
			return nil, records, err
		}
		prompt := Fill(tmpl, map[string]string{
			"l1_language":              text.L1Language,
			"l2_language":              text.L2Language,
			"examples":                 examples,
			"simplified_elements_json": elementsJSON,
		})

		taskType := fmt.Sprintf("%s_%s chunk %d/%d", operation, kind, i+1, len(chunks))
		entries, rec, err := e.callForEntries(ctx, prompt, kind, taskType, rep)
		records = append(records, rec)
		if err != nil {
			return nil, records, err
		}
		e.realignChunk(sent, entries, kind)
	}

	// Words the model dropped or mangled get sentinel annotations.
	for _, el := range stream {
		if el.IsWord() {
			applySentinels(el, kind)
		}
	}
	return out, records, nil
}

// Segment rewrites a plain text into segmented marked-up form (mode
// annotate) or improves an existing segmentation (mode improve).
func (e *Engine) Segment(ctx context.Context, text *domain.Text, mode Mode, rep progress.Reporter) (*domain.Text, []CallRecord, error) {
	if !mode.IsValid() {
		return nil, nil, domain.NewValidationError("mode", "unknown mode "+string(mode))
	}
	if rep == nil {
		rep = progress.Nop{}
	}

	inputSchema := domain.SchemaPlain
	operation := "segment"
	if mode == ModeImprove {
		inputSchema = domain.SchemaSegmented
		operation = "improve"
	}
	surface, err := markup.Serialize(text, inputSchema)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(surface) == "" {
		return &domain.Text{L2Language: text.L2Language, L1Language: text.L1Language, Voice: text.Voice}, nil, nil
	}

	tmpl, examples, err := e.templates.Lookup(operation, string(domain.SchemaSegmented), text.L2Language)
	if err != nil {
		return nil, nil, err
	}
	prompt := Fill(tmpl, map[string]string{
		"l1_language":              text.L1Language,
		"l2_language":              text.L2Language,
		"examples":                 examples,
		"simplified_elements_json": surface,
	})

	var out *domain.Text
	rec, err := e.callWithRetry(ctx, prompt, operation+"_segmented", rep, func(response string) error {
		parsed, perr := markup.Parse(stripFences(response), domain.SchemaSegmented)
		if perr != nil {
			return perr
		}
		out = parsed
		return nil
	})
	if err != nil {
		return nil, []CallRecord{rec}, err
	}
	out.L2Language = text.L2Language
	out.L1Language = text.L1Language
	out.Voice = text.Voice
	return out, []CallRecord{rec}, nil
}

// callForEntries performs one chunk's call-validate-retry cycle.
func (e *Engine) callForEntries(ctx context.Context, prompt string, kind Kind, taskType string, rep progress.Reporter) ([]entry, CallRecord, error) {
	var entries []entry
	rec, err := e.callWithRetry(ctx, prompt, taskType, rep, func(response string) error {
		parsed, dropped, perr := parseEntries(response, kind)
		if perr != nil {
			return perr
		}
		if dropped > 0 {
			e.log.Warn("malformed entries discarded",
				slog.String("task", taskType), slog.Int("dropped", dropped))
		}
		entries = parsed
		return nil
	})
	return entries, rec, err
}

// callWithRetry issues the prompt, validates the response via accept, and
// retries on transport errors or rejected responses up to the configured
// limit with a fixed inter-attempt wait. A heartbeat is posted to the
// reporter while a response is outstanding.
func (e *Engine) callWithRetry(ctx context.Context, prompt, taskType string, rep progress.Reporter, accept func(string) error) (CallRecord, error) {
	rec := CallRecord{ID: uuid.New(), Prompt: prompt, Timestamp: e.clock()}
	start := e.clock()

	var lastErr error
	for attempt := 0; attempt <= e.ann.RetryLimit; attempt++ {
		rec.Retries = attempt
		resp, err := e.completeWithHeartbeat(ctx, prompt, taskType, rep)
		if err == nil {
			rec.Response = resp.Text
			rec.PromptTokens += resp.PromptTokens
			rec.CompletionTokens += resp.CompletionTokens
			err = accept(resp.Text)
		}
		if err == nil {
			rec.Duration = e.clock().Sub(start)
			rec.Cost = e.cost(rec.PromptTokens, rec.CompletionTokens)
			return rec, nil
		}
		lastErr = err
		e.log.Warn("llm call failed",
			slog.String("task", taskType),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
		if attempt < e.ann.RetryLimit {
			select {
			case <-ctx.Done():
				rec.Duration = e.clock().Sub(start)
				return rec, ctx.Err()
			case <-time.After(e.ann.RetryWait):
			}
		}
	}
	rec.Duration = e.clock().Sub(start)
	rec.Cost = e.cost(rec.PromptTokens, rec.CompletionTokens)
	return rec, fmt.Errorf("%s after %d attempts: %v: %w", taskType, e.ann.RetryLimit+1, lastErr, domain.ErrLLMResponse)
}

// completeWithHeartbeat issues a single request and keeps the progress
// reporter alive while the response is outstanding.
func (e *Engine) completeWithHeartbeat(ctx context.Context, prompt, taskType string, rep progress.Reporter) (Response, error) {
	callCtx := ctx
	if e.llm.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.llm.RequestTimeout)
		defer cancel()
	}

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := e.client.Complete(callCtx, Request{
			System:    DefaultSystemMessage,
			Prompt:    prompt,
			MaxTokens: e.llm.MaxTokens,
		})
		done <- result{resp: resp, err: err}
	}()

	interval := e.ann.HeartbeatInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	waited := time.Duration(0)
	for {
		select {
		case r := <-done:
			return r.resp, r.err
		case <-ticker.C:
			waited += interval
			rep.Post(progress.Update{
				TaskType: taskType,
				Message:  fmt.Sprintf("waiting for response (%s)", waited.Round(time.Second)),
			})
		}
	}
}

func (e *Engine) cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*e.llm.InputRatePerMTok/1e6 +
		float64(completionTokens)*e.llm.OutputRatePerMTok/1e6
}

// realignChunk matches the response entries back onto the chunk's elements
// by longest common subsequence on surfaces and transfers annotations onto
// the matched Words.
func (e *Engine) realignChunk(sent []*domain.ContentElement, entries []entry, kind Kind) {
	original := make([]string, len(sent))
	for i, el := range sent {
		original[i] = el.Content
	}
	returned := make([]string, len(entries))
	for i, en := range entries {
		returned[i] = en.content()
	}
	for _, p := range align.LCSPairs(original, returned) {
		if sent[p.I].IsWord() {
			applyEntry(sent[p.I], entries[p.J], kind)
		}
	}
}

// chunkStream splits the flattened element stream into slices of at most
// maxElements elements, preserving source order.
func chunkStream(stream []*domain.ContentElement, maxElements int) [][]*domain.ContentElement {
	if maxElements <= 0 {
		maxElements = 250
	}
	var chunks [][]*domain.ContentElement
	for start := 0; start < len(stream); start += maxElements {
		end := start + maxElements
		if end > len(stream) {
			end = len(stream)
		}
		chunks = append(chunks, stream[start:end])
	}
	return chunks
}

// stripFences removes a markdown code fence if the model wrapped its
// output in one.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if i := strings.Index(trimmed, "\n"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimRight(trimmed, "\n")
}
