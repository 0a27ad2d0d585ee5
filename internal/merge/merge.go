// Package merge combines independently annotated editions of the same text
// by sequence alignment on their surface streams.
package merge

import (
	"fmt"

	"github.com/clara-project/clara-core/internal/align"
	"github.com/clara-project/clara-core/internal/domain"
)

// strategy tells the segment walk how to move annotations between sides.
type strategy struct {
	// transfer copies the right side's contribution onto a paired element.
	transfer func(dst, src *domain.ContentElement)
	// dummy marks an element that found no partner on the other side.
	dummy func(el *domain.ContentElement)
}

// GlossAndLemma merges a gloss-annotated and a lemma-annotated edition with
// parallel page/segment structure into a single lemma_and_gloss text.
// Annotation bags are unioned; on key collisions the lemma side wins.
func GlossAndLemma(gloss, lemma *domain.Text) (*domain.Text, error) {
	return mergeTexts(gloss, lemma, strategy{
		transfer: func(dst, src *domain.ContentElement) {
			dst.Annotations.Merge(domain.Annotations{
				Lemma: src.Annotations.Lemma,
				POS:   src.Annotations.POS,
			})
		},
		dummy: func(el *domain.ContentElement) {
			if el.Annotations.Gloss == "" {
				el.Annotations.Gloss = domain.NoGloss
			}
			if el.Annotations.Lemma == "" {
				el.Annotations.Lemma = domain.NoLemma
			}
			if el.Annotations.POS == "" {
				el.Annotations.POS = domain.NoPOS
			}
		},
	})
}

// PinyinInto merges a pinyin-annotated edition into an existing
// lemma_and_gloss text with the same algorithm.
func PinyinInto(base, pinyin *domain.Text) (*domain.Text, error) {
	return mergeTexts(base, pinyin, strategy{
		transfer: func(dst, src *domain.ContentElement) {
			dst.Annotations.Merge(domain.Annotations{Pinyin: src.Annotations.Pinyin})
		},
		dummy: func(el *domain.ContentElement) {
			if el.Annotations.Pinyin == "" {
				el.Annotations.Pinyin = domain.NoAnnotation
			}
		},
	})
}

func mergeTexts(left, right *domain.Text, st strategy) (*domain.Text, error) {
	if len(left.Pages) != len(right.Pages) {
		return nil, fmt.Errorf("merge: %d pages vs %d: %w", len(left.Pages), len(right.Pages), domain.ErrAlignment)
	}
	out := left.Clone()
	for p := range out.Pages {
		if len(out.Pages[p].Segments) != len(right.Pages[p].Segments) {
			return nil, fmt.Errorf("merge: page %d has %d segments vs %d: %w",
				p+1, len(out.Pages[p].Segments), len(right.Pages[p].Segments), domain.ErrAlignment)
		}
		for s := range out.Pages[p].Segments {
			merged := mergeSegment(&out.Pages[p].Segments[s], &right.Pages[p].Segments[s], st)
			out.Pages[p].Segments[s] = merged
		}
	}
	return out, nil
}

// mergeSegment aligns two parallel segments' element lists by content
// equality. Equal spans union the annotation bags; replace spans pair
// elements greedily by surface similarity; unpaired elements get dummy
// annotations.
func mergeSegment(left, right *domain.Segment, st strategy) domain.Segment {
	lc := make([]string, len(left.Elements))
	for i := range left.Elements {
		lc[i] = left.Elements[i].Content
	}
	rc := make([]string, len(right.Elements))
	for i := range right.Elements {
		rc[i] = right.Elements[i].Content
	}

	var out domain.Segment
	out.Annotations = left.Annotations

	for _, op := range align.Opcodes(lc, rc) {
		switch op.Tag {
		case align.OpEqual:
			for k := 0; k < op.I2-op.I1; k++ {
				el := left.Elements[op.I1+k]
				st.transfer(&el, &right.Elements[op.J1+k])
				out.Elements = append(out.Elements, el)
			}
		case align.OpDelete:
			for i := op.I1; i < op.I2; i++ {
				el := left.Elements[i]
				if el.IsWord() {
					st.dummy(&el)
				}
				out.Elements = append(out.Elements, el)
			}
		case align.OpInsert:
			for j := op.J1; j < op.J2; j++ {
				el := right.Elements[j]
				if el.IsWord() {
					st.dummy(&el)
				}
				out.Elements = append(out.Elements, el)
			}
		case align.OpReplace:
			out.Elements = append(out.Elements, mergeReplaceSpan(
				left.Elements[op.I1:op.I2], right.Elements[op.J1:op.J2], st)...)
		}
	}
	return out
}

// mergeReplaceSpan greedily pairs left-side elements with their most
// similar unused right-side element. Unpaired rights are appended as
// dummy-annotated inserts.
func mergeReplaceSpan(left, right []domain.ContentElement, st strategy) []domain.ContentElement {
	used := make([]bool, len(right))
	var out []domain.ContentElement

	for i := range left {
		el := left[i]
		best, bestRatio := -1, 0.0
		for j := range right {
			if used[j] {
				continue
			}
			if r := align.Ratio(el.Content, right[j].Content); r > bestRatio {
				best, bestRatio = j, r
			}
		}
		if best >= 0 {
			used[best] = true
			st.transfer(&el, &right[best])
		} else if el.IsWord() {
			st.dummy(&el)
		}
		out = append(out, el)
	}
	for j := range right {
		if !used[j] {
			el := right[j]
			if el.IsWord() {
				st.dummy(&el)
			}
			out = append(out, el)
		}
	}
	return out
}
