// Package diff compares two editions of an annotated text token by token.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/clara-project/clara-core/internal/align"
	"github.com/clara-project/clara-core/internal/domain"
)

// Want selects which parts of the report to compute.
type Want struct {
	ErrorRate bool
	Details   bool
}

// Report is the outcome of comparing a candidate edition against a
// reference edition.
type Report struct {
	WordCount  int     // words in the reference edition
	Mismatches int     // words whose surface or annotations differ
	ErrorRate  float64 // Mismatches / WordCount (0 for an empty reference)
	Details    string  // unified side-by-side of the annotated token streams
}

// Compare diffs candidate against reference under the given schema.
// The error rate counts reference words that the candidate drops, changes,
// or annotates differently.
func Compare(reference, candidate *domain.Text, schema domain.Schema, want Want) (Report, error) {
	if !schema.IsValid() {
		return Report{}, domain.NewValidationError("schema", "unknown schema "+schema.String())
	}

	refLines := tokenLines(reference, schema)
	candLines := tokenLines(candidate, schema)

	report := Report{WordCount: len(refLines)}

	if want.ErrorRate || !want.Details {
		matched := 0
		for _, op := range align.Opcodes(refLines, candLines) {
			if op.Tag == align.OpEqual {
				matched += op.I2 - op.I1
			}
		}
		report.Mismatches = len(refLines) - matched
		if len(refLines) > 0 {
			report.ErrorRate = float64(report.Mismatches) / float64(len(refLines))
		}
	}

	if want.Details {
		details, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        toDiffLines(refLines),
			B:        toDiffLines(candLines),
			FromFile: "reference",
			ToFile:   "candidate",
			Context:  3,
		})
		if err != nil {
			return Report{}, fmt.Errorf("diff details: %w", err)
		}
		report.Details = details
	}
	return report, nil
}

// tokenLines renders each Word as one comparable line carrying the
// annotations the schema cares about.
func tokenLines(t *domain.Text, schema domain.Schema) []string {
	words := t.Words()
	lines := make([]string, len(words))
	for i, w := range words {
		a := w.Annotations
		switch schema {
		case domain.SchemaGloss:
			lines[i] = w.Content + "\t" + a.Gloss
		case domain.SchemaLemma:
			lines[i] = w.Content + "\t" + a.Lemma + "/" + a.POS
		case domain.SchemaLemmaAndGloss:
			lines[i] = w.Content + "\t" + a.Lemma + "/" + a.POS + "/" + a.Gloss
		case domain.SchemaPinyin:
			lines[i] = w.Content + "\t" + a.Pinyin
		case domain.SchemaPhonetic:
			lines[i] = w.Content + "\t" + a.Phonetic
		default:
			lines[i] = w.Content
		}
	}
	return lines
}

func toDiffLines(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = strings.ReplaceAll(tok, "\n", " ") + "\n"
	}
	return out
}
