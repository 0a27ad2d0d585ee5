package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clara-project/clara-core/internal/adapter/tts"
	"github.com/clara-project/clara-core/internal/domain"
)

// PlaceholderPath marks a Word or segment whose audio could not be
// produced. The renderer shows such elements without a player.
const PlaceholderPath = "placeholder.mp3"

// Repository is the audio store as the annotator needs it.
type Repository interface {
	Get(ctx context.Context, engine, language, voice, text string) (string, error)
	Put(ctx context.Context, engine, language, voice, text, sourceFile string) (string, error)
}

// Triple names the repository partition one scope draws from.
type Triple struct {
	Engine   string
	Language string
	Voice    string
}

// Annotator binds audio artifacts to Words and segments of a text.
type Annotator struct {
	log  *slog.Logger
	repo Repository
	reg  *tts.Registry

	l2           string
	words        domain.AudioStrategy
	segments     domain.AudioStrategy
	humanVoiceID string
}

func NewAnnotator(log *slog.Logger, repo Repository, reg *tts.Registry,
	l2 string, words, segments domain.AudioStrategy, humanVoiceID string) (*Annotator, error) {
	if !words.IsValid() || !segments.IsValid() {
		return nil, fmt.Errorf("audio strategy words=%q segments=%q: %w", words, segments, domain.ErrValidation)
	}
	if (words == domain.AudioHuman || segments == domain.AudioHuman) && humanVoiceID == "" {
		return nil, fmt.Errorf("human audio strategy needs a voice id: %w", domain.ErrValidation)
	}
	return &Annotator{
		log:          log.With("service", "audio"),
		repo:         repo,
		reg:          reg,
		l2:           l2,
		words:        words,
		segments:     segments,
		humanVoiceID: humanVoiceID,
	}, nil
}

// WordTriple returns the (engine, language, voice) partition for word
// audio under the configured strategy.
func (a *Annotator) WordTriple(phonetic bool) Triple {
	return a.triple(a.words, phonetic)
}

// SegmentTriple returns the partition for segment audio.
func (a *Annotator) SegmentTriple(phonetic bool) Triple {
	return a.triple(a.segments, phonetic)
}

func (a *Annotator) triple(strategy domain.AudioStrategy, phonetic bool) Triple {
	if strategy == domain.AudioHuman {
		return Triple{Engine: domain.HumanVoiceEngine, Language: a.l2, Voice: a.humanVoiceID}
	}
	engine, ok := a.reg.EngineFor(a.l2, phonetic)
	if !ok {
		// No synthesiser for the language; keys still resolve against
		// whatever earlier runs recorded under the default engine id.
		return Triple{Engine: "tts", Language: a.l2, Voice: "default"}
	}
	return Triple{Engine: engine.ID(), Language: a.l2, Voice: tts.DefaultVoice(engine, a.l2)}
}

// Annotate returns a copy of the text with a tts AudioRef on every
// speakable segment and Word. Missing artifacts are synthesised where the
// strategy allows; engine failures leave a placeholder reference, while a
// failing repository aborts the operation. The input is not modified.
func (a *Annotator) Annotate(ctx context.Context, text *domain.Text, phonetic bool) (*domain.Text, error) {
	out := text.Clone()
	wordTriple := a.WordTriple(phonetic)
	segTriple := a.SegmentTriple(phonetic)

	// First pass: resolve every key against the repository once.
	paths := map[string]string{}
	var missingWords, missingSegments []string
	for _, page := range out.Pages {
		for s := range page.Segments {
			seg := &page.Segments[s]
			segKey := a.segmentKey(seg, phonetic)
			if domain.IsSpeakable(segKey) {
				if _, seen := paths[scoped(segTriple, segKey)]; !seen {
					path, found, err := a.lookup(ctx, segTriple, segKey)
					if err != nil {
						return nil, err
					}
					paths[scoped(segTriple, segKey)] = path
					if !found {
						missingSegments = append(missingSegments, segKey)
					}
				}
			}
			for i := range seg.Elements {
				el := &seg.Elements[i]
				if !el.IsWord() {
					continue
				}
				wordKey := a.wordKey(el, phonetic)
				if !domain.IsSpeakable(wordKey) {
					continue
				}
				if _, seen := paths[scoped(wordTriple, wordKey)]; seen {
					continue
				}
				path, found, err := a.lookup(ctx, wordTriple, wordKey)
				if err != nil {
					return nil, err
				}
				paths[scoped(wordTriple, wordKey)] = path
				if !found {
					missingWords = append(missingWords, wordKey)
				}
			}
		}
	}

	// Synthesise what the strategy allows. Phonetic words are never sent
	// to a TTS engine.
	if a.words == domain.AudioTTS && !phonetic {
		if err := a.synthesise(ctx, wordTriple, missingWords, paths, phonetic); err != nil {
			return nil, err
		}
	}
	if a.segments == domain.AudioTTS {
		if err := a.synthesise(ctx, segTriple, missingSegments, paths, phonetic); err != nil {
			return nil, err
		}
	}

	// Second pass: attach references.
	for _, page := range out.Pages {
		for s := range page.Segments {
			seg := &page.Segments[s]
			segKey := a.segmentKey(seg, phonetic)
			if domain.IsSpeakable(segKey) {
				seg.Annotations.TTS = ref(segTriple, paths[scoped(segTriple, segKey)])
			}
			for i := range seg.Elements {
				el := &seg.Elements[i]
				if !el.IsWord() {
					continue
				}
				wordKey := a.wordKey(el, phonetic)
				if !domain.IsSpeakable(wordKey) {
					continue
				}
				el.Annotations.TTS = ref(wordTriple, paths[scoped(wordTriple, wordKey)])
			}
		}
	}
	return out, nil
}

func (a *Annotator) wordKey(el *domain.ContentElement, phonetic bool) string {
	if phonetic {
		if el.Annotations.Phonetic == "" || el.Annotations.Phonetic == domain.NoAnnotation {
			return ""
		}
		return domain.WordAudioKey(el.Annotations.Phonetic)
	}
	return domain.WordAudioKey(el.Content)
}

func (a *Annotator) segmentKey(seg *domain.Segment, phonetic bool) string {
	if phonetic {
		return domain.PhoneticSegmentAudioKey(seg.ContentString())
	}
	return domain.SegmentAudioKey(seg.ContentString())
}

// lookup distinguishes an absent artifact from a broken repository: only
// ErrNotFound means missing, anything else aborts the phase.
func (a *Annotator) lookup(ctx context.Context, t Triple, key string) (string, bool, error) {
	path, err := a.repo.Get(ctx, t.Engine, t.Language, t.Voice, key)
	switch {
	case err == nil:
		return path, true, nil
	case errors.Is(err, domain.ErrNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("lookup %q: %w: %w", key, domain.ErrAudioRepository, err)
	}
}

// synthesise fills missing keys via the TTS engine. Artifacts land in a
// per-operation temp dir before the repository takes ownership. Engine
// failures skip the key; a repository write failure aborts.
func (a *Annotator) synthesise(ctx context.Context, t Triple, keys []string, paths map[string]string, phonetic bool) error {
	if len(keys) == 0 {
		return nil
	}
	engine, ok := a.reg.EngineFor(a.l2, phonetic)
	if !ok {
		a.log.Warn("no tts engine for language", "language", a.l2, "missing", len(keys))
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "clara-tts-*")
	if err != nil {
		return fmt.Errorf("create tts temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	for i, key := range keys {
		outPath := filepath.Join(tmpDir, fmt.Sprintf("%d.mp3", i))
		created, err := engine.CreateAudio(ctx, a.l2, t.Voice, key, outPath)
		if err != nil {
			a.log.Warn("tts synthesis failed", "text", key, "error", err)
			continue
		}
		if !created {
			continue
		}
		stored, err := a.repo.Put(ctx, t.Engine, t.Language, t.Voice, key, outPath)
		if err != nil {
			return fmt.Errorf("store artifact %q: %w: %w", key, domain.ErrAudioRepository, err)
		}
		paths[scoped(t, key)] = stored
	}
	return nil
}

func scoped(t Triple, key string) string {
	return t.Engine + "\x00" + t.Voice + "\x00" + key
}

func ref(t Triple, path string) *domain.AudioRef {
	if path == "" {
		path = PlaceholderPath
	}
	return &domain.AudioRef{
		Engine:   t.Engine,
		Language: t.Language,
		Voice:    t.Voice,
		FilePath: path,
	}
}
