// Package tagger annotates Word elements with lemma and part-of-speech
// tags using a language-specific morphological analyser instead of an LLM.
package tagger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clara-project/clara-core/internal/align"
	"github.com/clara-project/clara-core/internal/domain"
)

// Morph is one analysed token: its surface form, dictionary form and a
// tag from the uniform tagset.
type Morph struct {
	Surface string
	Lemma   string
	POS     string
}

// Morphology analyses a run of text into morphemes. Implementations are
// per-language; Languages reports which L2 codes they accept.
type Morphology interface {
	Analyze(ctx context.Context, text string) ([]Morph, error)
	Languages() []string
}

// Adapter routes a text to the analyser registered for its language and
// overlays the analysis onto the Word stream.
type Adapter struct {
	log       *slog.Logger
	analysers map[string]Morphology
}

func NewAdapter(log *slog.Logger, analysers ...Morphology) *Adapter {
	byLang := make(map[string]Morphology)
	for _, m := range analysers {
		for _, lang := range m.Languages() {
			byLang[lang] = m
		}
	}
	return &Adapter{
		log:       log.With("service", "tagger"),
		analysers: byLang,
	}
}

// Supports reports whether a tagger is registered for the language.
func (a *Adapter) Supports(language string) bool {
	_, ok := a.analysers[language]
	return ok
}

// Tag returns a copy of the text with Lemma and POS set on every Word.
// Analyser output is matched against the Word stream surface for surface;
// Words the analyser did not produce keep sentinel values. The input is
// not modified.
func (a *Adapter) Tag(ctx context.Context, text *domain.Text) (*domain.Text, error) {
	m, ok := a.analysers[text.L2Language]
	if !ok {
		return nil, fmt.Errorf("no morphological tagger for %q: %w", text.L2Language, domain.ErrTagger)
	}

	out := text.Clone()
	for _, page := range out.Pages {
		for s := range page.Segments {
			if err := a.tagSegment(ctx, m, &page.Segments[s]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (a *Adapter) tagSegment(ctx context.Context, m Morphology, seg *domain.Segment) error {
	words := make([]*domain.ContentElement, 0, len(seg.Elements))
	for i := range seg.Elements {
		if seg.Elements[i].IsWord() {
			words = append(words, &seg.Elements[i])
		}
	}
	if len(words) == 0 {
		return nil
	}

	morphs, err := m.Analyze(ctx, seg.ContentString())
	if err != nil {
		return fmt.Errorf("analyse segment: %w", err)
	}

	surfaces := make([]string, len(words))
	for i, w := range words {
		surfaces[i] = w.Content
	}
	morphSurfaces := make([]string, len(morphs))
	for i, mo := range morphs {
		morphSurfaces[i] = mo.Surface
	}

	matched := 0
	for _, pair := range align.LCSPairs(surfaces, morphSurfaces) {
		words[pair.I].Annotations.Lemma = morphs[pair.J].Lemma
		words[pair.I].Annotations.POS = morphs[pair.J].POS
		matched++
	}
	if matched < len(words) {
		a.log.Debug("tagger output did not cover all words",
			"words", len(words), "matched", matched)
	}
	for _, w := range words {
		if w.Annotations.Lemma == "" {
			w.Annotations.Lemma = domain.NoLemma
		}
		if w.Annotations.POS == "" {
			w.Annotations.POS = domain.NoPOS
		}
	}
	return nil
}
