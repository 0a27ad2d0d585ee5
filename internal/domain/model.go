package domain

import (
	"strings"
	"unicode"
)

// Annotation sentinels set on Words the annotators could not align.
const (
	NoAnnotation = "NO_ANNOTATION"
	NoGloss      = "NO_GLOSS"
	NoLemma      = "NO_LEMMA"
	NoPOS        = "NO_POS"
)

// AudioRef points a word or segment at an entry in the audio repository.
type AudioRef struct {
	Engine   string `json:"engine_id"`
	Language string `json:"language_id"`
	Voice    string `json:"voice_id"`
	FilePath string `json:"file_path"`
}

// Annotations is the per-element and per-segment annotation bag.
// The allowed keys are fixed; anything else goes into Other.
// Zero values mean "absent".
type Annotations struct {
	Gloss            string
	Lemma            string
	POS              string
	Pinyin           string
	Phonetic         string
	TTS              *AudioRef
	SegmentUID       int // 1-based; 0 means unassigned
	PageNumber       int
	Acknowledgements string
	Other            map[string]string
}

// Merge copies every non-zero annotation from o into a.
// Values already set in a are overwritten by o.
func (a *Annotations) Merge(o Annotations) {
	if o.Gloss != "" {
		a.Gloss = o.Gloss
	}
	if o.Lemma != "" {
		a.Lemma = o.Lemma
	}
	if o.POS != "" {
		a.POS = o.POS
	}
	if o.Pinyin != "" {
		a.Pinyin = o.Pinyin
	}
	if o.Phonetic != "" {
		a.Phonetic = o.Phonetic
	}
	if o.TTS != nil {
		a.TTS = o.TTS
	}
	if o.SegmentUID != 0 {
		a.SegmentUID = o.SegmentUID
	}
	if o.PageNumber != 0 {
		a.PageNumber = o.PageNumber
	}
	if o.Acknowledgements != "" {
		a.Acknowledgements = o.Acknowledgements
	}
	for k, v := range o.Other {
		if a.Other == nil {
			a.Other = make(map[string]string)
		}
		a.Other[k] = v
	}
}

// ContentElement is the leaf token of the text model.
type ContentElement struct {
	Type        ElementType
	Content     string
	Annotations Annotations
}

// IsWord reports whether the element is a Word.
func (e *ContentElement) IsWord() bool { return e.Type == ElementWord }

// IsWhitespace reports whether the element is non-word text consisting
// entirely of whitespace.
func (e *ContentElement) IsWhitespace() bool {
	return e.Type == ElementNonWord && strings.TrimSpace(e.Content) == ""
}

// Segment is an ordered run of content elements sharing one audio unit.
type Segment struct {
	Elements    []ContentElement
	Annotations Annotations
}

// ContentString reproduces the segment's original surface.
func (s *Segment) ContentString() string {
	var b strings.Builder
	for i := range s.Elements {
		b.WriteString(s.Elements[i].Content)
	}
	return b.String()
}

// Words returns pointers to the segment's Word elements in order.
func (s *Segment) Words() []*ContentElement {
	var out []*ContentElement
	for i := range s.Elements {
		if s.Elements[i].IsWord() {
			out = append(out, &s.Elements[i])
		}
	}
	return out
}

// Page is an ordered run of segments rendered onto one HTML page.
type Page struct {
	Segments    []Segment
	Annotations Annotations
}

// ConcordanceEntry is the per-lemma index stored on the Text.
type ConcordanceEntry struct {
	Frequency int   `json:"frequency"`
	Segments  []int `json:"segments"` // deduplicated segment uids, in first-seen order
}

// TextAnnotations is the top-level annotation bag of a Text.
type TextAnnotations struct {
	Concordance map[string]*ConcordanceEntry
	Other       map[string]string
}

// Text is the root of the annotated text model.
type Text struct {
	Pages       []Page
	L2Language  string
	L1Language  string
	Voice       string
	Annotations TextAnnotations
}

// ContentStream returns pointers to every Word and NonWordText element in
// source order. Markup and Image elements are excluded: annotation phases
// operate on the spoken token stream only.
func (t *Text) ContentStream() []*ContentElement {
	var out []*ContentElement
	for p := range t.Pages {
		for s := range t.Pages[p].Segments {
			seg := &t.Pages[p].Segments[s]
			for i := range seg.Elements {
				switch seg.Elements[i].Type {
				case ElementWord, ElementNonWord:
					out = append(out, &seg.Elements[i])
				}
			}
		}
	}
	return out
}

// Words returns pointers to every Word element in source order.
func (t *Text) Words() []*ContentElement {
	var out []*ContentElement
	for _, e := range t.ContentStream() {
		if e.IsWord() {
			out = append(out, e)
		}
	}
	return out
}

// WordCount returns the number of Word elements. Texts internalised under
// the plain schema contain no Words until a segmentation pass runs.
func (t *Text) WordCount() int { return len(t.Words()) }

// Segments returns pointers to every segment in source order.
func (t *Text) Segments() []*Segment {
	var out []*Segment
	for p := range t.Pages {
		for s := range t.Pages[p].Segments {
			out = append(out, &t.Pages[p].Segments[s])
		}
	}
	return out
}

// SurfaceStream returns the content strings of the Word and NonWordText
// elements in source order. Two texts with equal surface streams carry the
// same tokens; phase operations must preserve this stream.
func (t *Text) SurfaceStream() []string {
	stream := t.ContentStream()
	out := make([]string, len(stream))
	for i, e := range stream {
		out[i] = e.Content
	}
	return out
}

// Validate checks the per-schema annotation invariants: gloss texts carry a
// gloss on every Word, lemma texts a lemma and pos, phonetic texts a
// phonetic decomposition.
func (t *Text) Validate(schema Schema) error {
	for _, w := range t.Words() {
		a := w.Annotations
		switch schema {
		case SchemaGloss:
			if a.Gloss == "" {
				return NewValidationError("gloss", "word "+w.Content+" has no gloss")
			}
		case SchemaLemma:
			if a.Lemma == "" || a.POS == "" {
				return NewValidationError("lemma", "word "+w.Content+" has no lemma/pos")
			}
		case SchemaLemmaAndGloss:
			if a.Gloss == "" || a.Lemma == "" || a.POS == "" {
				return NewValidationError("lemma_and_gloss", "word "+w.Content+" is missing annotations")
			}
		case SchemaPhonetic:
			if a.Phonetic == "" {
				return NewValidationError("phonetic", "word "+w.Content+" has no phonetic form")
			}
		case SchemaPinyin:
			if a.Pinyin == "" {
				return NewValidationError("pinyin", "word "+w.Content+" has no pinyin")
			}
		}
	}
	return nil
}

// IsSpeakable reports whether a canonical audio key contains anything a TTS
// engine could say: at least one letter or digit.
func IsSpeakable(key string) bool {
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
