package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/clara-project/clara-core/internal/config"
)

// HTTP is an Engine backed by a speech-synthesis HTTP service. The service
// accepts a JSON body and replies with raw audio bytes.
type HTTP struct {
	id        string
	endpoint  string
	apiKey    string
	phonetic  bool
	languages map[string]LanguageInfo
	client    *http.Client
}

// NewHTTP creates an engine for the configured endpoint serving the given
// languages. Set phonetic for services that accept phonemic input.
func NewHTTP(cfg config.TTSConfig, languages map[string]LanguageInfo, phonetic bool) *HTTP {
	return &HTTP{
		id:        cfg.EngineID,
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		phonetic:  phonetic,
		languages: languages,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (h *HTTP) ID() string                         { return h.id }
func (h *HTTP) Languages() map[string]LanguageInfo { return h.languages }
func (h *HTTP) Phonetic() bool                     { return h.phonetic }

type synthesisRequest struct {
	LanguageID string `json:"language_id"`
	VoiceID    string `json:"voice_id"`
	Text       string `json:"text"`
}

// CreateAudio posts the text for synthesis and writes the returned audio
// to outPath.
func (h *HTTP) CreateAudio(ctx context.Context, languageID, voiceID, text, outPath string) (bool, error) {
	if _, ok := h.languages[languageID]; !ok {
		return false, nil
	}

	body, err := json.Marshal(synthesisRequest{LanguageID: languageID, VoiceID: voiceID, Text: text})
	if err != nil {
		return false, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Token "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call tts service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("tts service %s: %s", resp.Status, string(msg))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return false, fmt.Errorf("create audio dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return false, fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(outPath)
		return false, fmt.Errorf("write audio file: %w", err)
	}
	return true, nil
}
