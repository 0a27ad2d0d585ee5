package render

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clara-project/clara-core/internal/concordance"
	"github.com/clara-project/clara-core/internal/config"
	"github.com/clara-project/clara-core/internal/domain"
	"github.com/clara-project/clara-core/internal/markup"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRenderer(t *testing.T, selfContained bool) *Renderer {
	t.Helper()
	r, err := New(testLogger(), config.RenderConfig{SelfContained: selfContained})
	require.NoError(t, err)
	return r
}

// annotatedText builds a two-page text with concordance and one audio ref.
func annotatedText(t *testing.T, audioPath string) *domain.Text {
	t.Helper()
	text, err := markup.Parse(
		"le#le/DET/the# chat#chat/NOUN/cat#\n<page>\nle#le/DET/the# chien#chien/NOUN/dog#",
		domain.SchemaLemmaAndGloss)
	require.NoError(t, err)
	text.L2Language = "french"
	text.L1Language = "english"

	out, err := concordance.Annotate(text)
	require.NoError(t, err)

	if audioPath != "" {
		out.Words()[0].Annotations.TTS = &domain.AudioRef{
			Engine: "fake_tts", Language: "french", Voice: "celine", FilePath: audioPath,
		}
	}
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRender_EmitsPagesAndIndexes(t *testing.T) {
	t.Parallel()

	r := newRenderer(t, false)
	outDir := t.TempDir()

	files, err := r.Render(annotatedText(t, ""), "Le chat", outDir)
	require.NoError(t, err)

	// 2 pages + 3 lemmas + 2 vocab indexes.
	assert.Len(t, files, 7)

	page1 := readFile(t, filepath.Join(outDir, "page_1.html"))
	assert.Contains(t, page1, "page 1 of 2")
	assert.Contains(t, page1, "chat")
	assert.Contains(t, page1, `title="the · DET"`)
	assert.NotContains(t, page1, "dir=\"rtl\"")

	page2 := readFile(t, filepath.Join(outDir, "page_2.html"))
	assert.Contains(t, page2, "chien")
	assert.Contains(t, page2, `href="page_1.html"`)

	alpha := readFile(t, filepath.Join(outDir, "vocab_alphabetical.html"))
	chatIdx := strings.Index(alpha, ">chat<")
	leIdx := strings.Index(alpha, ">le<")
	require.Greater(t, chatIdx, 0)
	require.Greater(t, leIdx, 0)
	assert.Less(t, chatIdx, leIdx, "alphabetical order")

	freq := readFile(t, filepath.Join(outDir, "vocab_frequency.html"))
	leIdx = strings.Index(freq, ">le<")
	chatIdx = strings.Index(freq, ">chat<")
	assert.Less(t, leIdx, chatIdx, "le has frequency 2 and sorts first")
}

func TestRender_ConcordancePages(t *testing.T) {
	t.Parallel()

	r := newRenderer(t, false)
	outDir := t.TempDir()

	_, err := r.Render(annotatedText(t, ""), "Le chat", outDir)
	require.NoError(t, err)

	conc := readFile(t, filepath.Join(outDir, "concordance_le.html"))
	assert.Contains(t, conc, "2 occurrences")
	assert.Contains(t, conc, "page_1.html#segment-1")
	assert.Contains(t, conc, "page_2.html#segment-2")

	// Words link to their lemma's concordance page.
	page1 := readFile(t, filepath.Join(outDir, "page_1.html"))
	assert.Contains(t, page1, `href="concordance_le.html"`)
}

func TestRender_MissingAudioTolerated(t *testing.T) {
	t.Parallel()

	r := newRenderer(t, false)
	outDir := t.TempDir()

	files, err := r.Render(annotatedText(t, ""), "Le chat", outDir)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	page1 := readFile(t, filepath.Join(outDir, "page_1.html"))
	assert.NotContains(t, page1, "<audio")
}

func TestRender_SelfContainedCopiesAudio(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	audioFile := filepath.Join(srcDir, "le.mp3")
	require.NoError(t, os.WriteFile(audioFile, []byte("audio"), 0o644))

	r := newRenderer(t, true)
	outDir := t.TempDir()
	text := annotatedText(t, audioFile)

	_, err := r.Render(text, "Le chat", outDir)
	require.NoError(t, err)

	copied := filepath.Join(outDir, "multimedia", "le.mp3")
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	page1 := readFile(t, filepath.Join(outDir, "page_1.html"))
	assert.Contains(t, page1, `src="multimedia/le.mp3"`)

	// The caller's model keeps its original reference.
	assert.Equal(t, audioFile, text.Words()[0].Annotations.TTS.FilePath)
}

func TestRender_RTL(t *testing.T) {
	t.Parallel()

	text, err := markup.Parse("كتاب#كتاب/NOUN/book#", domain.SchemaLemmaAndGloss)
	require.NoError(t, err)
	text.L2Language = "arabic"
	out, err := concordance.Annotate(text)
	require.NoError(t, err)

	r := newRenderer(t, false)
	outDir := t.TempDir()
	_, err = r.Render(out, "كتاب", outDir)
	require.NoError(t, err)

	page1 := readFile(t, filepath.Join(outDir, "page_1.html"))
	assert.Contains(t, page1, `dir="rtl"`)
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"chat", "chat"},
		{"l'avion", "l_avion"},
		{"a/b", "a_b"},
		{"犬", "犬"},
		{"", "lemma"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in))
	}
}

func TestConcordanceFilenames_Collisions(t *testing.T) {
	t.Parallel()

	conc := map[string]*domain.ConcordanceEntry{
		"a/b": {Frequency: 1},
		"a_b": {Frequency: 1},
	}
	files := concordanceFilenames(conc)
	assert.NotEqual(t, files["a/b"], files["a_b"])
}
