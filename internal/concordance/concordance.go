// Package concordance builds the per-lemma index linking every lemma back
// to the segments it appears in.
package concordance

import (
	"fmt"

	"github.com/clara-project/clara-core/internal/domain"
)

// Annotate returns a copy of the text with segment uids and page numbers
// assigned and the concordance map filled in. Every Word must already
// carry a lemma. The input is not modified.
func Annotate(text *domain.Text) (*domain.Text, error) {
	out := text.Clone()

	// First pass: stable segment identities.
	uid := 0
	for p := range out.Pages {
		page := &out.Pages[p]
		for s := range page.Segments {
			uid++
			page.Segments[s].Annotations.SegmentUID = uid
			page.Segments[s].Annotations.PageNumber = p + 1
		}
	}

	// Second pass: lemma occurrences.
	index := make(map[string]*domain.ConcordanceEntry)
	for _, page := range out.Pages {
		for s := range page.Segments {
			seg := &page.Segments[s]
			for _, w := range seg.Words() {
				lemma := w.Annotations.Lemma
				if lemma == "" {
					return nil, fmt.Errorf("word %q has no lemma: %w", w.Content, domain.ErrValidation)
				}
				if lemma == domain.NoLemma {
					continue
				}
				entry, ok := index[lemma]
				if !ok {
					entry = &domain.ConcordanceEntry{}
					index[lemma] = entry
				}
				entry.Frequency++
				if !containsInt(entry.Segments, seg.Annotations.SegmentUID) {
					entry.Segments = append(entry.Segments, seg.Annotations.SegmentUID)
				}
			}
		}
	}
	out.Annotations.Concordance = index
	return out, nil
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
