package phonetic

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/clara-project/clara-core/internal/domain"
)

// Transformer rewrites a segmented text into its phonetic form. It prefers
// an orthography description and falls back to lexicon-driven alignment.
type Transformer struct {
	language string
	orth     *Orthography
	aligner  *Aligner
}

// NewTransformer builds a transformer for one language. At least one of
// orth and aligner must be available.
func NewTransformer(language string, orth *Orthography, aligner *Aligner) (*Transformer, error) {
	if orth == nil && aligner == nil {
		return nil, fmt.Errorf("no orthography or pronunciation lexicon for %q: %w",
			language, domain.ErrLexiconMissing)
	}
	return &Transformer{language: language, orth: orth, aligner: aligner}, nil
}

// Transform returns a phonetic-schema copy of the text. Each Word expands
// into one Word per letter chunk, carrying the chunk's phoneme. Words the
// lexicon cannot resolve stay whole with a sentinel annotation. The input
// is not modified.
func (t *Transformer) Transform(text *domain.Text) (*domain.Text, error) {
	out := text.Clone()
	for _, page := range out.Pages {
		for s := range page.Segments {
			seg := &page.Segments[s]
			var elements []domain.ContentElement
			for _, el := range seg.Elements {
				if !el.IsWord() {
					elements = append(elements, el)
					continue
				}
				elements = append(elements, t.decomposeWord(el.Content)...)
			}
			seg.Elements = elements
		}
	}
	return out, nil
}

// Decompose returns the pipe-joined letter and phoneme chunk lists for one
// word, in lowercase.
func (t *Transformer) Decompose(word string) (string, string, bool) {
	if t.orth != nil {
		chunks := t.orth.Decompose(word)
		letters := make([]string, len(chunks))
		phones := make([]string, len(chunks))
		for i, c := range chunks {
			letters[i] = c.Letters
			phones[i] = c.Phonemes
		}
		return strings.Join(letters, "|"), strings.Join(phones, "|"), true
	}
	phonemes, ok := t.aligner.Phonemes(word)
	if !ok {
		return "", "", false
	}
	letters, phones := t.aligner.Align(word, phonemes)
	return letters, phones, true
}

func (t *Transformer) decomposeWord(word string) []domain.ContentElement {
	letters, phones, ok := t.Decompose(word)
	if !ok {
		return []domain.ContentElement{{
			Type:        domain.ElementWord,
			Content:     word,
			Annotations: domain.Annotations{Phonetic: domain.NoAnnotation},
		}}
	}
	letters = transferCase(word, letters)

	lchunks := strings.Split(letters, "|")
	pchunks := strings.Split(phones, "|")
	out := make([]domain.ContentElement, 0, len(lchunks))
	for i, lc := range lchunks {
		phoneme := pchunks[i]
		if phoneme == "" {
			phoneme = domain.NoAnnotation
		}
		out = append(out, domain.ContentElement{
			Type:        domain.ElementWord,
			Content:     lc,
			Annotations: domain.Annotations{Phonetic: phoneme},
		})
	}
	return out
}

// transferCase copies the original word's casing onto the decomposed
// letter stream character by character, leaving pipes in place.
func transferCase(original, decomposed string) string {
	src := []rune(original)
	var b strings.Builder
	i := 0
	for _, r := range decomposed {
		if r == '|' {
			b.WriteRune(r)
			continue
		}
		if i < len(src) && unicode.IsUpper(src[i]) {
			r = unicode.ToUpper(r)
		}
		i++
		b.WriteRune(r)
	}
	return b.String()
}
