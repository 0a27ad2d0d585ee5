package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{DSN: "postgres://localhost/clara"},
		LLM: LLMConfig{
			Model:             "claude-sonnet-4-20250514",
			MaxTokens:         4096,
			RequestTimeout:    time.Minute,
			InputRatePerMTok:  3,
			OutputRatePerMTok: 15,
		},
		Annotation: AnnotationConfig{
			MaxAnnotationWords: 250,
			RetryLimit:         5,
			RetryWait:          5 * time.Second,
			HeartbeatInterval:  3 * time.Second,
		},
		Audio:   AudioConfig{BaseDir: "./audio", FFmpegPath: "ffmpeg"},
		Project: ProjectConfig{RootDir: "./projects"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero chunk size", func(c *Config) { c.Annotation.MaxAnnotationWords = 0 }, true},
		{"negative retry limit", func(c *Config) { c.Annotation.RetryLimit = -1 }, true},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, true},
		{"empty project root", func(c *Config) { c.Project.RootDir = "" }, true},
		{"empty audio base", func(c *Config) { c.Audio.BaseDir = "" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
