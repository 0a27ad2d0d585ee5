package markup

import (
	"strings"

	"github.com/clara-project/clara-core/internal/domain"
)

// Serialize writes a text model back into marked-up form under the named
// schema. For every well-formed input x, Serialize(Parse(x, s), s) == x
// modulo canonicalised newlines.
func Serialize(t *domain.Text, schema domain.Schema) (string, error) {
	if !schema.IsValid() {
		return "", domain.NewValidationError("schema", "unknown schema "+schema.String())
	}

	if schema == domain.SchemaPlain {
		var b strings.Builder
		for _, seg := range t.Segments() {
			b.WriteString(seg.ContentString())
		}
		return b.String(), nil
	}

	pages := make([]string, len(t.Pages))
	for i := range t.Pages {
		segs := make([]string, len(t.Pages[i].Segments))
		for j := range t.Pages[i].Segments {
			segs[j] = serializeSegment(&t.Pages[i].Segments[j], schema)
		}
		pages[i] = strings.Join(segs, "||")
	}
	return strings.Join(pages, "\n"+pageBreak+"\n"), nil
}

func serializeSegment(seg *domain.Segment, schema domain.Schema) string {
	var b strings.Builder
	prevWord := false
	for i := range seg.Elements {
		el := &seg.Elements[i]
		switch el.Type {
		case domain.ElementWord:
			if prevWord {
				b.WriteByte('|')
			}
			writeWord(&b, el, schema)
			prevWord = true
		case domain.ElementNonWord:
			b.WriteString(escape(el.Content))
			prevWord = false
		default:
			// Markup and images pass through verbatim.
			b.WriteString(el.Content)
			prevWord = false
		}
	}
	return b.String()
}

func writeWord(b *strings.Builder, el *domain.ContentElement, schema domain.Schema) {
	if strings.ContainsAny(el.Content, " \t\n") {
		b.WriteByte('@')
		b.WriteString(escape(el.Content))
		b.WriteByte('@')
	} else {
		b.WriteString(escape(el.Content))
	}

	a := el.Annotations
	switch schema {
	case domain.SchemaGloss:
		if a.Gloss != "" {
			writeAnnotation(b, a.Gloss)
		}
	case domain.SchemaLemma:
		if a.Lemma != "" && a.POS != "" {
			writeAnnotation(b, a.Lemma+"/"+a.POS)
		}
	case domain.SchemaLemmaAndGloss:
		if a.Lemma != "" && a.POS != "" && a.Gloss != "" {
			writeAnnotation(b, a.Lemma+"/"+a.POS+"/"+a.Gloss)
		}
	case domain.SchemaPinyin:
		if a.Pinyin != "" {
			writeAnnotation(b, a.Pinyin)
		}
	case domain.SchemaPhonetic:
		if a.Phonetic != "" {
			writeAnnotation(b, a.Phonetic)
		}
	}
}

// writeAnnotation escapes only the annotation delimiter itself: phonetic
// and pinyin values legitimately contain | chunk separators.
func writeAnnotation(b *strings.Builder, value string) {
	b.WriteByte('#')
	for _, r := range value {
		if r == '\\' || r == '#' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('#')
}

// escape backslash-escapes the reserved markup characters.
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '#', '@', '<', '>', '|':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
