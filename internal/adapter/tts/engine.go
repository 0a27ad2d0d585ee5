// Package tts provides speech-synthesis engines for the audio annotator.
package tts

import (
	"context"
)

// LanguageInfo describes one language an engine can speak.
type LanguageInfo struct {
	LanguageID string
	Voices     []string
}

// Engine synthesises speech for one family of voices. CreateAudio reports
// whether an artifact was written to outPath; a false return without error
// means the engine declined the text.
type Engine interface {
	ID() string
	Languages() map[string]LanguageInfo
	Phonetic() bool
	CreateAudio(ctx context.Context, languageID, voiceID, text, outPath string) (bool, error)
}

// Registry selects engines by language and phonetic capability.
type Registry struct {
	engines []Engine
}

func NewRegistry(engines ...Engine) *Registry {
	return &Registry{engines: engines}
}

// EngineFor returns the first engine that declares the language and
// matches the phonetic flag.
func (r *Registry) EngineFor(language string, phonetic bool) (Engine, bool) {
	for _, e := range r.engines {
		if e.Phonetic() != phonetic {
			continue
		}
		if _, ok := e.Languages()[language]; ok {
			return e, true
		}
	}
	return nil, false
}

// ByID returns the registered engine with the given id.
func (r *Registry) ByID(id string) (Engine, bool) {
	for _, e := range r.engines {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// DefaultVoice returns an engine's first declared voice for a language,
// or "default" when the engine does not enumerate voices.
func DefaultVoice(e Engine, language string) string {
	info, ok := e.Languages()[language]
	if !ok || len(info.Voices) == 0 {
		return "default"
	}
	return info.Voices[0]
}
