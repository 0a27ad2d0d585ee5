// Package render turns a fully annotated text into a set of static HTML
// pages: one per Page, one concordance page per lemma, and two vocabulary
// indexes.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clara-project/clara-core/internal/audio"
	"github.com/clara-project/clara-core/internal/config"
	"github.com/clara-project/clara-core/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Languages written right to left.
var rtlLanguages = map[string]bool{
	"arabic":  true,
	"farsi":   true,
	"hebrew":  true,
	"urdu":    true,
	"yiddish": true,
}

// Renderer emits the HTML artifact set for a text.
type Renderer struct {
	log           *slog.Logger
	selfContained bool
	templates     *template.Template
}

func New(log *slog.Logger, cfg config.RenderConfig) (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse render templates: %w", err)
	}
	return &Renderer{
		log:           log.With("service", "render"),
		selfContained: cfg.SelfContained,
		templates:     t,
	}, nil
}

type tokenView struct {
	IsWord          bool
	Content         string
	Tooltip         string
	Audio           string
	ConcordanceFile string
}

type segmentView struct {
	UID    int
	Audio  string
	Tokens []tokenView
}

type pageView struct {
	Title      string
	Language   string
	IsRTL      bool
	PageNumber int
	TotalPages int
	PrevFile   string
	NextFile   string
	Segments   []segmentView
}

type concSegmentView struct {
	UID      int
	PageFile string
	Surface  string
}

type concordanceView struct {
	Language  string
	IsRTL     bool
	Lemma     string
	Frequency int
	Segments  []concSegmentView
}

type vocabEntry struct {
	Lemma           string
	Frequency       int
	ConcordanceFile string
}

type vocabView struct {
	Title    string
	Language string
	IsRTL    bool
	Entries  []vocabEntry
}

// Render writes the full HTML set for the text into outDir and returns
// the paths of the emitted files. Elements without audio render without a
// player; this is not an error.
func (r *Renderer) Render(text *domain.Text, title, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}

	work := text
	if r.selfContained {
		work = r.localiseAudio(text, outDir)
	}

	isRTL := rtlLanguages[work.L2Language]
	concFiles := concordanceFilenames(work.Annotations.Concordance)
	uidToPage := map[int]string{}
	for p := range work.Pages {
		file := pageFilename(p + 1)
		for s := range work.Pages[p].Segments {
			uidToPage[work.Pages[p].Segments[s].Annotations.SegmentUID] = file
		}
	}

	var emitted []string
	for p := range work.Pages {
		view := pageView{
			Title:      title,
			Language:   work.L2Language,
			IsRTL:      isRTL,
			PageNumber: p + 1,
			TotalPages: len(work.Pages),
			Segments:   segmentViews(&work.Pages[p], concFiles),
		}
		if p > 0 {
			view.PrevFile = pageFilename(p)
		}
		if p < len(work.Pages)-1 {
			view.NextFile = pageFilename(p + 2)
		}
		path := filepath.Join(outDir, pageFilename(p+1))
		if err := r.writeTemplate(path, "page.html.tmpl", view); err != nil {
			return emitted, err
		}
		emitted = append(emitted, path)
	}

	for lemma, entry := range work.Annotations.Concordance {
		view := concordanceView{
			Language:  work.L2Language,
			IsRTL:     isRTL,
			Lemma:     lemma,
			Frequency: entry.Frequency,
		}
		for _, uid := range entry.Segments {
			view.Segments = append(view.Segments, concSegmentView{
				UID:      uid,
				PageFile: uidToPage[uid],
				Surface:  segmentSurface(work, uid),
			})
		}
		path := filepath.Join(outDir, concFiles[lemma])
		if err := r.writeTemplate(path, "concordance.html.tmpl", view); err != nil {
			return emitted, err
		}
		emitted = append(emitted, path)
	}

	if work.Annotations.Concordance != nil {
		for _, idx := range []struct {
			file  string
			title string
			less  func(a, b vocabEntry) bool
		}{
			{"vocab_alphabetical.html", "Vocabulary A–Z", func(a, b vocabEntry) bool {
				return a.Lemma < b.Lemma
			}},
			{"vocab_frequency.html", "Vocabulary by frequency", func(a, b vocabEntry) bool {
				if a.Frequency != b.Frequency {
					return a.Frequency > b.Frequency
				}
				return a.Lemma < b.Lemma
			}},
		} {
			view := vocabView{Title: idx.title, Language: work.L2Language, IsRTL: isRTL}
			for lemma, entry := range work.Annotations.Concordance {
				view.Entries = append(view.Entries, vocabEntry{
					Lemma:           lemma,
					Frequency:       entry.Frequency,
					ConcordanceFile: concFiles[lemma],
				})
			}
			sort.Slice(view.Entries, func(i, j int) bool { return idx.less(view.Entries[i], view.Entries[j]) })
			path := filepath.Join(outDir, idx.file)
			if err := r.writeTemplate(path, "vocab.html.tmpl", view); err != nil {
				return emitted, err
			}
			emitted = append(emitted, path)
		}
	}

	r.log.Info("rendered text", "pages", len(work.Pages), "files", len(emitted), "dir", outDir)
	return emitted, nil
}

func (r *Renderer) writeTemplate(path, name string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := r.templates.ExecuteTemplate(f, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// localiseAudio copies every referenced artifact into multimedia/ under
// the output directory and rewrites the references. Artifacts that cannot
// be copied keep their original reference.
func (r *Renderer) localiseAudio(text *domain.Text, outDir string) *domain.Text {
	out := text.Clone()
	mediaDir := filepath.Join(outDir, "multimedia")
	copied := map[string]string{}

	rewrite := func(ref *domain.AudioRef) {
		if ref == nil || ref.FilePath == "" || ref.FilePath == audio.PlaceholderPath {
			return
		}
		if local, ok := copied[ref.FilePath]; ok {
			ref.FilePath = local
			return
		}
		local, err := copyIntoMedia(ref.FilePath, mediaDir)
		if err != nil {
			r.log.Warn("copy audio artifact", "file", ref.FilePath, "error", err)
			return
		}
		copied[ref.FilePath] = local
		ref.FilePath = local
	}

	for _, seg := range out.Segments() {
		rewrite(seg.Annotations.TTS)
		for _, w := range seg.Words() {
			rewrite(w.Annotations.TTS)
		}
	}
	return out
}

func copyIntoMedia(src, mediaDir string) (string, error) {
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Base(src)
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	out, err := os.Create(filepath.Join(mediaDir, name))
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return "multimedia/" + name, nil
}

func segmentViews(page *domain.Page, concFiles map[string]string) []segmentView {
	var out []segmentView
	for s := range page.Segments {
		seg := &page.Segments[s]
		view := segmentView{
			UID:   seg.Annotations.SegmentUID,
			Audio: audioSrc(seg.Annotations.TTS),
		}
		for i := range seg.Elements {
			el := &seg.Elements[i]
			tv := tokenView{IsWord: el.IsWord(), Content: el.Content}
			if el.IsWord() {
				tv.Tooltip = tooltip(el)
				tv.Audio = audioSrc(el.Annotations.TTS)
				if file, ok := concFiles[el.Annotations.Lemma]; ok {
					tv.ConcordanceFile = file
				}
			}
			view.Tokens = append(view.Tokens, tv)
		}
		out = append(out, view)
	}
	return out
}

func tooltip(el *domain.ContentElement) string {
	var parts []string
	if g := el.Annotations.Gloss; g != "" && g != domain.NoGloss {
		parts = append(parts, g)
	}
	if l := el.Annotations.Lemma; l != "" && l != domain.NoLemma && l != el.Content {
		parts = append(parts, l)
	}
	if p := el.Annotations.POS; p != "" && p != domain.NoPOS {
		parts = append(parts, p)
	}
	if ph := el.Annotations.Phonetic; ph != "" && ph != domain.NoAnnotation {
		parts = append(parts, ph)
	}
	return strings.Join(parts, " · ")
}

func audioSrc(ref *domain.AudioRef) string {
	if ref == nil || ref.FilePath == "" || ref.FilePath == audio.PlaceholderPath {
		return ""
	}
	return ref.FilePath
}

func segmentSurface(text *domain.Text, uid int) string {
	for _, seg := range text.Segments() {
		if seg.Annotations.SegmentUID == uid {
			return domain.CollapseWhitespace(seg.ContentString())
		}
	}
	return ""
}

func pageFilename(n int) string {
	return fmt.Sprintf("page_%d.html", n)
}

// concordanceFilenames assigns each lemma a distinct filename-safe
// concordance page name.
func concordanceFilenames(conc map[string]*domain.ConcordanceEntry) map[string]string {
	out := make(map[string]string, len(conc))
	taken := map[string]bool{}

	lemmas := make([]string, 0, len(conc))
	for lemma := range conc {
		lemmas = append(lemmas, lemma)
	}
	sort.Strings(lemmas)

	for _, lemma := range lemmas {
		base := sanitizeFilename(lemma)
		name := "concordance_" + base + ".html"
		for i := 2; taken[name]; i++ {
			name = fmt.Sprintf("concordance_%s_%d.html", base, i)
		}
		taken[name] = true
		out[lemma] = name
	}
	return out
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r > 127:
			// Non-ASCII letters are fine for modern filesystems.
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "lemma"
	}
	return b.String()
}
