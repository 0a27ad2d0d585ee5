package markup

import (
	"errors"
	"testing"

	"github.com/clara-project/clara-core/internal/domain"
)

func TestParse_PageBreakSemantics(t *testing.T) {
	t.Parallel()

	text, err := Parse("C'est un avion .\n<page>\nこれ は 犬 です 。", domain.SchemaSegmented)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(text.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(text.Pages))
	}
	var words int
	for _, seg := range text.Pages[1].Segments {
		for _, el := range seg.Elements {
			if el.Type == domain.ElementWord {
				words++
			}
		}
	}
	if words != 4 {
		t.Fatalf("page 2 words = %d, want 4", words)
	}
}

func TestParse_Plain(t *testing.T) {
	t.Parallel()

	in := "Anything #at@all| <page>\ngoes here."
	text, err := Parse(in, domain.SchemaPlain)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(text.Pages) != 1 || len(text.Pages[0].Segments) != 1 {
		t.Fatalf("plain text must be one page/one segment, got %+v", text)
	}
	if text.WordCount() != 0 {
		t.Fatalf("plain word count = %d, want 0", text.WordCount())
	}
	if got := text.Pages[0].Segments[0].ContentString(); got != in {
		t.Fatalf("plain content = %q, want %q", got, in)
	}
}

func TestParse_GlossAnnotations(t *testing.T) {
	t.Parallel()

	text, err := Parse("l'#the#|avion#plane# vole .", domain.SchemaGloss)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	words := text.Words()
	if len(words) != 3 {
		t.Fatalf("words = %d, want 3", len(words))
	}
	if words[0].Content != "l'" || words[0].Annotations.Gloss != "the" {
		t.Errorf("word 0 = %q gloss %q", words[0].Content, words[0].Annotations.Gloss)
	}
	if words[1].Content != "avion" || words[1].Annotations.Gloss != "plane" {
		t.Errorf("word 1 = %q gloss %q", words[1].Content, words[1].Annotations.Gloss)
	}
	if words[2].Annotations.Gloss != "" {
		t.Errorf("word 2 should be unglossed, got %q", words[2].Annotations.Gloss)
	}
}

func TestParse_LemmaArity(t *testing.T) {
	t.Parallel()

	text, err := Parse("chats#chat/NOUN#", domain.SchemaLemma)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := text.Words()[0]
	if w.Annotations.Lemma != "chat" || w.Annotations.POS != "NOUN" {
		t.Fatalf("lemma/pos = %q/%q", w.Annotations.Lemma, w.Annotations.POS)
	}

	if _, err := Parse("chats#chat#", domain.SchemaLemma); err == nil {
		t.Fatal("wrong arity under lemma should fail")
	}
	if _, err := Parse("chats#chat/NOUN#", domain.SchemaLemmaAndGloss); err == nil {
		t.Fatal("wrong arity under lemma_and_gloss should fail")
	}
}

func TestParse_MultiWordGroup(t *testing.T) {
	t.Parallel()

	text, err := Parse("@New York@#city# is big", domain.SchemaGloss)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := text.Words()[0]
	if w.Content != "New York" || w.Annotations.Gloss != "city" {
		t.Fatalf("group word = %q gloss %q", w.Content, w.Annotations.Gloss)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		schema domain.Schema
	}{
		{"unmatched annotation hash", "word#gloss", domain.SchemaGloss},
		{"unescaped angle bracket", "a < b", domain.SchemaSegmented},
		{"dangling hash", "#gloss#", domain.SchemaGloss},
		{"unmatched group", "@two words", domain.SchemaSegmented},
		{"empty group", "@ @", domain.SchemaSegmented},
		{"annotation in segmented", "word#x#", domain.SchemaSegmented},
		{"pipe between non-words", "a | b", domain.SchemaSegmented},
		{"leading pipe", "|chat", domain.SchemaSegmented},
		{"trailing pipe", "chat#ʃ#|", domain.SchemaPhonetic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, tt.schema)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", tt.input)
			}
			if !errors.Is(err, domain.ErrInternalisation) {
				t.Fatalf("error %v is not ErrInternalisation", err)
			}
			var ie *domain.InternaliseError
			if !errors.As(err, &ie) {
				t.Fatalf("error %v is not *InternaliseError", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		schema domain.Schema
	}{
		{"segmented two pages", "Un avion .|| Il vole .\n<page>\nFin .", domain.SchemaSegmented},
		{"gloss", "l'#the#|avion#plane# vole#flies# .", domain.SchemaGloss},
		{"lemma", "chats#chat/NOUN# verts#vert/ADJ#", domain.SchemaLemma},
		{"lemma and gloss", "l'#le/DET/the#|avion#avion/NOUN/plane#", domain.SchemaLemmaAndGloss},
		{"pinyin", "狗#gǒu#", domain.SchemaPinyin},
		{"phonetic", "chat#ʃ|a#", domain.SchemaPhonetic},
		{"escaped hash in word", `C\#3#gloss#`, domain.SchemaGloss},
		{"escaped angle in nonword", `a \< b`, domain.SchemaSegmented},
		{"multi-word group", "@New York@#city#", domain.SchemaGloss},
		{"trailing empty segment", "a .||", domain.SchemaSegmented},
		{"crlf input", "ligne une .\r\n<page>\r\nligne deux .", domain.SchemaSegmented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Parse(tt.input, tt.schema)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			out, err := Serialize(text, tt.schema)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if want := CanonicaliseNewlines(tt.input); out != want {
				t.Fatalf("round trip:\n in: %q\nout: %q", want, out)
			}
		})
	}
}

func TestRoundTrip_EscapedHashSurvivesEverySchema(t *testing.T) {
	t.Parallel()

	for _, schema := range []domain.Schema{
		domain.SchemaSegmented, domain.SchemaGloss, domain.SchemaLemma,
		domain.SchemaLemmaAndGloss, domain.SchemaPinyin, domain.SchemaPhonetic,
	} {
		in := `C\#3`
		text, err := Parse(in, schema)
		if err != nil {
			t.Fatalf("schema %s: %v", schema, err)
		}
		if w := text.Words(); len(w) != 1 || w[0].Content != "C#3" {
			t.Fatalf("schema %s: words = %+v", schema, w)
		}
		out, err := Serialize(text, schema)
		if err != nil {
			t.Fatalf("schema %s serialize: %v", schema, err)
		}
		if out != in {
			t.Fatalf("schema %s: round trip %q -> %q", schema, in, out)
		}
	}
}

func TestParse_EmptyText(t *testing.T) {
	t.Parallel()

	text, err := Parse("", domain.SchemaSegmented)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if text.WordCount() != 0 {
		t.Fatal("empty text should have no words")
	}
	out, err := Serialize(text, domain.SchemaSegmented)
	if err != nil || out != "" {
		t.Fatalf("Serialize = %q, %v", out, err)
	}
}
