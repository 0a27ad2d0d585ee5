package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clara-project/clara-core/internal/domain"
	"github.com/clara-project/clara-core/internal/markup"
)

func mustParse(t *testing.T, s string, schema domain.Schema) *domain.Text {
	t.Helper()
	text, err := markup.Parse(s, schema)
	require.NoError(t, err)
	return text
}

func TestGlossAndLemma_TinyFrench(t *testing.T) {
	t.Parallel()

	gloss := mustParse(t, "l'#the#|avion#plane#", domain.SchemaGloss)
	lemma := mustParse(t, "l'#le/DET#|avion#avion/NOUN#", domain.SchemaLemma)

	merged, err := GlossAndLemma(gloss, lemma)
	require.NoError(t, err)
	require.NoError(t, merged.Validate(domain.SchemaLemmaAndGloss))

	words := merged.Words()
	require.Len(t, words, 2)
	assert.Equal(t, "l'", words[0].Content)
	assert.Equal(t, "le", words[0].Annotations.Lemma)
	assert.Equal(t, "the", words[0].Annotations.Gloss)
	assert.Equal(t, "avion", words[1].Content)
	assert.Equal(t, "avion", words[1].Annotations.Lemma)
	assert.Equal(t, "plane", words[1].Annotations.Gloss)
}

func TestGlossAndLemma_ProjectionReproducesInputs(t *testing.T) {
	t.Parallel()

	glossIn := "le#the# chat#cat# dort#sleeps# ."
	lemmaIn := "le#le/DET# chat#chat/NOUN# dort#dormir/VERB# ."
	gloss := mustParse(t, glossIn, domain.SchemaGloss)
	lemma := mustParse(t, lemmaIn, domain.SchemaLemma)

	merged, err := GlossAndLemma(gloss, lemma)
	require.NoError(t, err)

	glossOut, err := markup.Serialize(merged, domain.SchemaGloss)
	require.NoError(t, err)
	assert.Equal(t, glossIn, glossOut)

	lemmaOut, err := markup.Serialize(merged, domain.SchemaLemma)
	require.NoError(t, err)
	assert.Equal(t, lemmaIn, lemmaOut)
}

func TestGlossAndLemma_SurfacePreserved(t *testing.T) {
	t.Parallel()

	// The lemma side disagrees about one token; the merged surface must
	// still come from one of the inputs word for word.
	gloss := mustParse(t, "le#the# chats#cats#", domain.SchemaGloss)
	lemma := mustParse(t, "le#le/DET# chat#chat/NOUN#", domain.SchemaLemma)

	merged, err := GlossAndLemma(gloss, lemma)
	require.NoError(t, err)

	surfaces := map[string]bool{}
	for _, w := range append(gloss.Words(), lemma.Words()...) {
		surfaces[w.Content] = true
	}
	for _, w := range merged.Words() {
		assert.True(t, surfaces[w.Content], "unexpected surface %q", w.Content)
	}
	// The greedy pairing matches "chats" with "chat" and carries its lemma.
	words := merged.Words()
	require.Len(t, words, 2)
	assert.Equal(t, "chats", words[1].Content)
	assert.Equal(t, "chat", words[1].Annotations.Lemma)
	assert.Equal(t, "cats", words[1].Annotations.Gloss)
}

func TestGlossAndLemma_LemmaSideWinsCollisions(t *testing.T) {
	t.Parallel()

	gloss := mustParse(t, "chat#cat#", domain.SchemaGloss)
	lemma := mustParse(t, "chat#chat/NOUN#", domain.SchemaLemma)
	// Give the gloss side a stale lemma to collide with.
	gloss.Words()[0].Annotations.Lemma = "stale"

	merged, err := GlossAndLemma(gloss, lemma)
	require.NoError(t, err)
	assert.Equal(t, "chat", merged.Words()[0].Annotations.Lemma)
}

func TestGlossAndLemma_InsertGetsDummies(t *testing.T) {
	t.Parallel()

	gloss := mustParse(t, "le#the#", domain.SchemaGloss)
	lemma := mustParse(t, "le#le/DET# vite#vite/ADV#", domain.SchemaLemma)

	merged, err := GlossAndLemma(gloss, lemma)
	require.NoError(t, err)

	words := merged.Words()
	require.Len(t, words, 2)
	assert.Equal(t, domain.NoGloss, words[1].Annotations.Gloss)
	assert.Equal(t, "vite", words[1].Annotations.Lemma)
}

func TestGlossAndLemma_StructureMismatch(t *testing.T) {
	t.Parallel()

	gloss := mustParse(t, "a#x#\n<page>\nb#y#", domain.SchemaGloss)
	lemma := mustParse(t, "a#a/X#", domain.SchemaLemma)

	_, err := GlossAndLemma(gloss, lemma)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlignment)
}

func TestPinyinInto(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "狗#gǒu/NOUN/dog#", domain.SchemaLemmaAndGloss)
	pinyin := mustParse(t, "狗#gǒu#", domain.SchemaPinyin)

	merged, err := PinyinInto(base, pinyin)
	require.NoError(t, err)

	w := merged.Words()[0]
	assert.Equal(t, "gǒu", w.Annotations.Pinyin)
	assert.Equal(t, "dog", w.Annotations.Gloss)
}

func TestGlossAndLemma_EmptyTexts(t *testing.T) {
	t.Parallel()

	gloss := mustParse(t, "", domain.SchemaGloss)
	lemma := mustParse(t, "", domain.SchemaLemma)

	merged, err := GlossAndLemma(gloss, lemma)
	require.NoError(t, err)
	assert.Zero(t, merged.WordCount())
}
