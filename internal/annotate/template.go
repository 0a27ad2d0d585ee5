package annotate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLanguage is the fallback key when no language-specific template or
// example set is installed.
const DefaultLanguage = "default"

// TemplateKey identifies a prompt template.
type TemplateKey struct {
	Operation string // "annotate", "improve" or "segment"
	Kind      string // target schema name
	Language  string // L2 language, or DefaultLanguage
}

// Registry holds prompt templates and example sets, keyed per
// (operation, kind, L2). Lookups fall back to the default language.
type Registry struct {
	templates map[TemplateKey]string
	examples  map[TemplateKey]string
}

// NewRegistry creates a registry pre-loaded with the built-in default
// templates and examples.
func NewRegistry() *Registry {
	r := &Registry{
		templates: make(map[TemplateKey]string),
		examples:  make(map[TemplateKey]string),
	}
	for key, tmpl := range builtinTemplates {
		r.templates[key] = tmpl
	}
	for key, ex := range builtinExamples {
		r.examples[key] = ex
	}
	return r
}

// LoadDir overlays templates from a directory. Files are named
// <operation>_<kind>_<language>.txt; unparseable names are skipped.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		parts := strings.SplitN(strings.TrimSuffix(e.Name(), ".txt"), "_", 3)
		if len(parts) != 3 {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read template %s: %w", e.Name(), err)
		}
		r.templates[TemplateKey{Operation: parts[0], Kind: parts[1], Language: parts[2]}] = string(data)
	}
	return nil
}

// Lookup returns the template and example set for (operation, kind, L2),
// falling back to the default language for either.
func (r *Registry) Lookup(operation, kind, language string) (tmpl, examples string, err error) {
	tmpl, ok := r.templates[TemplateKey{Operation: operation, Kind: kind, Language: language}]
	if !ok {
		tmpl, ok = r.templates[TemplateKey{Operation: operation, Kind: kind, Language: DefaultLanguage}]
	}
	if !ok {
		return "", "", fmt.Errorf("no template for operation %q kind %q", operation, kind)
	}
	examples, ok = r.examples[TemplateKey{Operation: operation, Kind: kind, Language: language}]
	if !ok {
		examples = r.examples[TemplateKey{Operation: operation, Kind: kind, Language: DefaultLanguage}]
	}
	return tmpl, examples, nil
}

// Fill substitutes the named holes of a template.
func Fill(tmpl string, vars map[string]string) string {
	out := tmpl
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

var builtinTemplates = map[TemplateKey]string{
	{Operation: "annotate", Kind: "gloss", Language: DefaultLanguage}: `You are annotating a text in {l2_language} for learners whose language is {l1_language}.

You will receive a JSON list of the text's tokens. For each token, produce a pair [token, gloss] where gloss is a concise {l1_language} translation of the token as used in context. Punctuation and other non-word tokens keep their literal content as the gloss.

{examples}

Tokens:
{simplified_elements_json}

Output ONLY the JSON list of pairs, no markdown, no explanations.`,

	{Operation: "improve", Kind: "gloss", Language: DefaultLanguage}: `You are reviewing glosses of a {l2_language} text for {l1_language}-speaking learners.

You will receive a JSON list of pairs [token, gloss]. Correct any gloss that is wrong or unidiomatic; keep the rest unchanged. Never change, drop or reorder the tokens themselves.

{examples}

Annotated tokens:
{simplified_elements_json}

Output ONLY the corrected JSON list of pairs, no markdown, no explanations.`,

	{Operation: "annotate", Kind: "lemma", Language: DefaultLanguage}: `You are lemmatising a text in {l2_language}.

You will receive a JSON list of the text's tokens. For each token, produce a triple [token, lemma, pos] where lemma is the dictionary form and pos is a Universal Dependencies part-of-speech tag (NOUN, VERB, ADJ, ADV, PRON, DET, ADP, NUM, CONJ, PART, INTJ, PUNCT, X). Non-word tokens repeat their content as the lemma with pos PUNCT.

{examples}

Tokens:
{simplified_elements_json}

Output ONLY the JSON list of triples, no markdown, no explanations.`,

	{Operation: "improve", Kind: "lemma", Language: DefaultLanguage}: `You are reviewing lemma and part-of-speech annotations of a {l2_language} text.

You will receive a JSON list of triples [token, lemma, pos]. Correct any wrong lemma or pos; keep the rest unchanged. Never change, drop or reorder the tokens themselves.

{examples}

Annotated tokens:
{simplified_elements_json}

Output ONLY the corrected JSON list of triples, no markdown, no explanations.`,

	{Operation: "annotate", Kind: "pinyin", Language: DefaultLanguage}: `You are adding pinyin to a text in {l2_language}.

You will receive a JSON list of the text's tokens. For each token, produce a pair [token, pinyin] with tone marks. Non-word tokens repeat their content as the pinyin.

{examples}

Tokens:
{simplified_elements_json}

Output ONLY the JSON list of pairs, no markdown, no explanations.`,

	{Operation: "improve", Kind: "pinyin", Language: DefaultLanguage}: `You are reviewing the pinyin annotations of a {l2_language} text.

You will receive a JSON list of pairs [token, pinyin]. Correct any wrong pinyin; keep the rest unchanged. Never change, drop or reorder the tokens themselves.

{examples}

Annotated tokens:
{simplified_elements_json}

Output ONLY the corrected JSON list of pairs, no markdown, no explanations.`,

	{Operation: "improve", Kind: "lemma_and_gloss", Language: DefaultLanguage}: `You are reviewing the full annotations of a {l2_language} text for {l1_language}-speaking learners.

You will receive a JSON list of quadruples [token, lemma, pos, gloss]. Correct any wrong lemma, pos or gloss; keep the rest unchanged. Never change, drop or reorder the tokens themselves.

{examples}

Annotated tokens:
{simplified_elements_json}

Output ONLY the corrected JSON list of quadruples, no markdown, no explanations.`,

	{Operation: "segment", Kind: "segmented", Language: DefaultLanguage}: `You are segmenting a plain text in {l2_language} into pages and sentence-like segments.

Rewrite the text exactly, adding '||' between segments and a line containing only '<page>' between pages. Do not translate, correct or reword anything; every character of the original text must reappear in order. Escape any literal '#', '@', '<', '>' or '|' in the text with a backslash.

{examples}

Text:
{simplified_elements_json}

Output ONLY the rewritten text, no markdown, no explanations.`,

	{Operation: "improve", Kind: "segmented", Language: DefaultLanguage}: `You are reviewing the segmentation of a text in {l2_language}.

The text uses '||' between segments and '<page>' lines between pages. Move, add or remove separators where the segmentation is unnatural; never change the text itself.

{examples}

Text:
{simplified_elements_json}

Output ONLY the corrected text, no markdown, no explanations.`,
}

var builtinExamples = map[TemplateKey]string{
	{Operation: "annotate", Kind: "gloss", Language: DefaultLanguage}: `Example input: ["le", " ", "chat", "."]
Example output: [["le", "the"], [" ", " "], ["chat", "cat"], [".", "."]]`,

	{Operation: "annotate", Kind: "lemma", Language: DefaultLanguage}: `Example input: ["chats", "."]
Example output: [["chats", "chat", "NOUN"], [".", ".", "PUNCT"]]`,

	{Operation: "annotate", Kind: "pinyin", Language: DefaultLanguage}: `Example input: ["狗", "。"]
Example output: [["狗", "gǒu"], ["。", "。"]]`,

	{Operation: "segment", Kind: "segmented", Language: DefaultLanguage}: `Example input: Le chat dort. Il rêve.
Example output: Le chat dort.|| Il rêve.`,
}
