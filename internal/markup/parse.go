// Package markup internalises marked-up strings into the text model and
// serialises the model back out. The surface syntax is shared by every
// pipeline phase: `||` separates segments, a `<page>` line separates pages,
// `@ ... @` groups multi-word units, `Word#...#` attaches annotations, and
// the reserved characters `# @ < > |` are backslash-escaped inside content.
package markup

import (
	"strings"
	"unicode"

	"github.com/clara-project/clara-core/internal/domain"
)

const pageBreak = "<page>"

// CanonicaliseNewlines rewrites \r\n and bare \r to \n.
func CanonicaliseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Parse internalises a marked-up string under the named schema.
// Malformed markup yields a *domain.InternaliseError.
func Parse(s string, schema domain.Schema) (*domain.Text, error) {
	if !schema.IsValid() {
		return nil, domain.NewValidationError("schema", "unknown schema "+schema.String())
	}
	s = CanonicaliseNewlines(s)

	if schema == domain.SchemaPlain {
		// Plain text is opaque: one page, one segment, one element.
		return &domain.Text{Pages: []domain.Page{{Segments: []domain.Segment{{
			Elements: []domain.ContentElement{{Type: domain.ElementNonWord, Content: s}},
		}}}}}, nil
	}

	text := &domain.Text{}
	for _, ps := range splitPages(s) {
		page := domain.Page{}
		for _, ss := range splitSegments(ps.content) {
			seg, err := parseSegment(ss.content, schema, ps.line+ss.lineOffset)
			if err != nil {
				return nil, err
			}
			page.Segments = append(page.Segments, seg)
		}
		text.Pages = append(text.Pages, page)
	}
	return text, nil
}

type chunk struct {
	content    string
	line       int // 1-based line of the chunk's first character
	lineOffset int
}

// splitPages splits on lines whose entire content is an unescaped <page>.
func splitPages(s string) []chunk {
	lines := strings.Split(s, "\n")
	var pages []chunk
	var cur []string
	start := 1
	for i, line := range lines {
		if strings.TrimSpace(line) == pageBreak {
			pages = append(pages, chunk{content: strings.Join(cur, "\n"), line: start})
			cur = nil
			start = i + 2
			continue
		}
		cur = append(cur, line)
	}
	pages = append(pages, chunk{content: strings.Join(cur, "\n"), line: start})
	return pages
}

// splitSegments splits a page on unescaped "||".
func splitSegments(s string) []chunk {
	var segs []chunk
	var cur strings.Builder
	lineOffset := 0
	curLine := 0
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			cur.WriteRune(r)
			cur.WriteRune(runes[i+1])
			i++
			continue
		}
		if r == '|' && i+1 < len(runes) && runes[i+1] == '|' {
			segs = append(segs, chunk{content: cur.String(), lineOffset: curLine})
			cur.Reset()
			curLine = lineOffset
			i++
			continue
		}
		if r == '\n' {
			lineOffset++
		}
		cur.WriteRune(r)
	}
	segs = append(segs, chunk{content: cur.String(), lineOffset: curLine})
	return segs
}

// isWordRune reports whether r can start or extend a bare word token.
func isWordRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
		return true
	}
	switch r {
	case '-', '\'', '’':
		return true
	}
	return false
}

type segmentParser struct {
	runes  []rune
	pos    int
	line   int
	offset int
	schema domain.Schema
	out    []domain.ContentElement
}

func (p *segmentParser) errf(format string, args ...any) error {
	return domain.NewInternaliseError(p.line, p.offset, format, args...)
}

func (p *segmentParser) advance() rune {
	r := p.runes[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
		p.offset = 0
	} else {
		p.offset++
	}
	return r
}

func (p *segmentParser) peek() (rune, bool) {
	if p.pos >= len(p.runes) {
		return 0, false
	}
	return p.runes[p.pos], true
}

func parseSegment(s string, schema domain.Schema, startLine int) (domain.Segment, error) {
	p := &segmentParser{runes: []rune(s), line: startLine, schema: schema}
	var nonWord strings.Builder

	flushNonWord := func() {
		if nonWord.Len() > 0 {
			p.out = append(p.out, domain.ContentElement{Type: domain.ElementNonWord, Content: nonWord.String()})
			nonWord.Reset()
		}
	}

	for {
		r, ok := p.peek()
		if !ok {
			break
		}
		switch {
		case r == '\\':
			p.advance()
			esc, ok := p.peek()
			if !ok {
				return domain.Segment{}, p.errf("dangling escape at end of segment")
			}
			p.advance()
			if isWordRune(esc) {
				if err := p.parseWord(string(esc), flushNonWord); err != nil {
					return domain.Segment{}, err
				}
			} else {
				nonWord.WriteRune(esc)
			}
		case r == '|':
			// A single pipe is zero-width glue between two adjacent words.
			// Anywhere else it is a reserved character that needs escaping.
			if nonWord.Len() > 0 || len(p.out) == 0 || !p.out[len(p.out)-1].IsWord() {
				return domain.Segment{}, p.errf("unescaped | in content")
			}
			p.advance()
			if next, ok := p.peek(); !ok || !(isWordRune(next) || next == '\\' || next == '@') {
				return domain.Segment{}, p.errf("unescaped | in content")
			}
		case r == '@':
			p.advance()
			content, err := p.readUntil('@', "unmatched @ in multi-word group")
			if err != nil {
				return domain.Segment{}, err
			}
			if strings.TrimSpace(content) == "" {
				return domain.Segment{}, p.errf("empty multi-word group")
			}
			if err := p.attachWord(content, flushNonWord); err != nil {
				return domain.Segment{}, err
			}
		case r == '#':
			return domain.Segment{}, p.errf("annotation marker # with no preceding word")
		case r == '<' || r == '>':
			return domain.Segment{}, p.errf("unescaped %c in content", r)
		case isWordRune(r):
			if err := p.parseWord("", flushNonWord); err != nil {
				return domain.Segment{}, err
			}
		default:
			p.advance()
			nonWord.WriteRune(r)
		}
	}
	flushNonWord()
	return domain.Segment{Elements: p.out}, nil
}

// parseWord consumes a bare word run starting with the already-consumed
// prefix, then any #annotation# suffix.
func (p *segmentParser) parseWord(prefix string, flushNonWord func()) error {
	var b strings.Builder
	b.WriteString(prefix)
	for {
		r, ok := p.peek()
		if !ok {
			break
		}
		if r == '\\' {
			p.advance()
			esc, ok := p.peek()
			if !ok {
				return p.errf("dangling escape inside word")
			}
			p.advance()
			b.WriteRune(esc)
			continue
		}
		if !isWordRune(r) {
			break
		}
		p.advance()
		b.WriteRune(r)
	}
	return p.attachWord(b.String(), flushNonWord)
}

// attachWord emits a Word element, parsing a trailing #annotation# if present.
func (p *segmentParser) attachWord(content string, flushNonWord func()) error {
	if content == "" {
		return p.errf("empty word")
	}
	el := domain.ContentElement{Type: domain.ElementWord, Content: content}
	if r, ok := p.peek(); ok && r == '#' {
		p.advance()
		raw, err := p.readUntil('#', "unmatched # in annotation")
		if err != nil {
			return err
		}
		if err := p.applyAnnotation(&el, raw); err != nil {
			return err
		}
	}
	flushNonWord()
	p.out = append(p.out, el)
	return nil
}

// readUntil consumes runes up to the next unescaped delim, resolving escapes.
func (p *segmentParser) readUntil(delim rune, missing string) (string, error) {
	var b strings.Builder
	for {
		r, ok := p.peek()
		if !ok {
			return "", p.errf("%s", missing)
		}
		p.advance()
		if r == '\\' {
			esc, ok := p.peek()
			if !ok {
				return "", p.errf("dangling escape")
			}
			p.advance()
			b.WriteRune(esc)
			continue
		}
		if r == delim {
			return b.String(), nil
		}
		b.WriteRune(r)
	}
}

func (p *segmentParser) applyAnnotation(el *domain.ContentElement, raw string) error {
	switch p.schema {
	case domain.SchemaSegmented:
		return p.errf("unexpected annotation on word %q in segmented text", el.Content)
	case domain.SchemaGloss:
		if raw == "" {
			return p.errf("empty gloss on word %q", el.Content)
		}
		el.Annotations.Gloss = raw
	case domain.SchemaLemma:
		parts := strings.Split(raw, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return p.errf("lemma annotation on %q must be lemma/pos, got %q", el.Content, raw)
		}
		el.Annotations.Lemma, el.Annotations.POS = parts[0], parts[1]
	case domain.SchemaLemmaAndGloss:
		parts := strings.SplitN(raw, "/", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return p.errf("annotation on %q must be lemma/pos/gloss, got %q", el.Content, raw)
		}
		el.Annotations.Lemma, el.Annotations.POS, el.Annotations.Gloss = parts[0], parts[1], parts[2]
	case domain.SchemaPinyin:
		if raw == "" {
			return p.errf("empty pinyin on word %q", el.Content)
		}
		el.Annotations.Pinyin = raw
	case domain.SchemaPhonetic:
		if raw == "" {
			return p.errf("empty phonetic form on word %q", el.Content)
		}
		el.Annotations.Phonetic = raw
	}
	return nil
}
