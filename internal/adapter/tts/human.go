package tts

import (
	"context"

	"github.com/clara-project/clara-core/internal/domain"
)

// Human is the pseudo-engine for recorded human audio. It never
// synthesises; its artifacts enter the repository through the importers.
type Human struct {
	languages map[string]LanguageInfo
}

func NewHuman(languages ...string) *Human {
	m := make(map[string]LanguageInfo, len(languages))
	for _, lang := range languages {
		m[lang] = LanguageInfo{LanguageID: lang}
	}
	return &Human{languages: m}
}

func (h *Human) ID() string                         { return domain.HumanVoiceEngine }
func (h *Human) Languages() map[string]LanguageInfo { return h.languages }
func (h *Human) Phonetic() bool                     { return false }

func (h *Human) CreateAudio(ctx context.Context, languageID, voiceID, text, outPath string) (bool, error) {
	return false, nil
}
