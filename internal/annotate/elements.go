package annotate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clara-project/clara-core/internal/domain"
)

// Kind is the annotation kind an engine operation produces.
type Kind string

const (
	KindGloss         Kind = "gloss"
	KindLemma         Kind = "lemma"
	KindPinyin        Kind = "pinyin"
	KindLemmaAndGloss Kind = "lemma_and_gloss"
)

// IsValid returns true if the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindGloss, KindLemma, KindPinyin, KindLemmaAndGloss:
		return true
	}
	return false
}

// Arity is the tuple width of the kind's simplified element list.
func (k Kind) Arity() int {
	switch k {
	case KindLemma:
		return 3
	case KindLemmaAndGloss:
		return 4
	default:
		return 2
	}
}

// TargetSchema is the schema a kind's output text is in.
func (k Kind) TargetSchema() domain.Schema {
	return domain.Schema(k)
}

// entry is one validated tuple from an LLM response.
type entry struct {
	fields []string
}

func (e entry) content() string { return e.fields[0] }

// promptElements filters a chunk down to the elements sent to the model:
// whitespace-only elements are dropped from the prompt but preserved in
// the output.
func promptElements(chunk []*domain.ContentElement) []*domain.ContentElement {
	var out []*domain.ContentElement
	for _, el := range chunk {
		if !el.IsWhitespace() {
			out = append(out, el)
		}
	}
	return out
}

// simplifiedJSON renders the chunk as the JSON list the prompt embeds.
// In annotate mode this is the bare surface tokens; in improve mode the
// fully annotated tuples. Non-word elements keep their literal content in
// every field.
func simplifiedJSON(elements []*domain.ContentElement, kind Kind, mode Mode) (string, error) {
	var payload any
	if mode == ModeAnnotate {
		tokens := make([]string, len(elements))
		for i, el := range elements {
			tokens[i] = el.Content
		}
		payload = tokens
	} else {
		tuples := make([][]string, len(elements))
		for i, el := range elements {
			tuples[i] = annotatedTuple(el, kind)
		}
		payload = tuples
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal simplified elements: %w", err)
	}
	return string(data), nil
}

func annotatedTuple(el *domain.ContentElement, kind Kind) []string {
	a := el.Annotations
	if !el.IsWord() {
		tuple := make([]string, kind.Arity())
		for i := range tuple {
			tuple[i] = el.Content
		}
		return tuple
	}
	switch kind {
	case KindGloss:
		return []string{el.Content, a.Gloss}
	case KindLemma:
		return []string{el.Content, a.Lemma, a.POS}
	case KindPinyin:
		return []string{el.Content, a.Pinyin}
	default:
		return []string{el.Content, a.Lemma, a.POS, a.Gloss}
	}
}

// extractJSONArray finds the first complete JSON array in a string.
func extractJSONArray(s string) (string, error) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return s[start : end+1], nil
}

// parseEntries validates an LLM response against the kind's tuple shape.
// A response that is not a JSON list at all is an error (the caller
// retries); individual malformed tuples are dropped and counted.
func parseEntries(response string, kind Kind) (entries []entry, dropped int, err error) {
	jsonStr, err := extractJSONArray(response)
	if err != nil {
		return nil, 0, err
	}
	var raw []any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, 0, fmt.Errorf("unmarshal response list: %w", err)
	}
	arity := kind.Arity()
	for _, item := range raw {
		tuple, ok := item.([]any)
		if !ok || len(tuple) != arity {
			dropped++
			continue
		}
		fields := make([]string, arity)
		valid := true
		for i, f := range tuple {
			s, ok := f.(string)
			if !ok {
				valid = false
				break
			}
			fields[i] = s
		}
		if !valid {
			dropped++
			continue
		}
		entries = append(entries, entry{fields: fields})
	}
	return entries, dropped, nil
}

// applyEntry transfers the annotations of a validated tuple onto a Word.
func applyEntry(el *domain.ContentElement, e entry, kind Kind) {
	switch kind {
	case KindGloss:
		el.Annotations.Gloss = e.fields[1]
	case KindLemma:
		el.Annotations.Lemma = e.fields[1]
		el.Annotations.POS = e.fields[2]
	case KindPinyin:
		el.Annotations.Pinyin = e.fields[1]
	case KindLemmaAndGloss:
		el.Annotations.Lemma = e.fields[1]
		el.Annotations.POS = e.fields[2]
		el.Annotations.Gloss = e.fields[3]
	}
}

// applySentinels marks a Word left unannotated after re-alignment.
func applySentinels(el *domain.ContentElement, kind Kind) {
	a := &el.Annotations
	switch kind {
	case KindGloss:
		if a.Gloss == "" {
			a.Gloss = domain.NoGloss
		}
	case KindLemma:
		if a.Lemma == "" {
			a.Lemma = domain.NoLemma
		}
		if a.POS == "" {
			a.POS = domain.NoPOS
		}
	case KindPinyin:
		if a.Pinyin == "" {
			a.Pinyin = domain.NoAnnotation
		}
	case KindLemmaAndGloss:
		if a.Gloss == "" {
			a.Gloss = domain.NoGloss
		}
		if a.Lemma == "" {
			a.Lemma = domain.NoLemma
		}
		if a.POS == "" {
			a.POS = domain.NoPOS
		}
	}
}
