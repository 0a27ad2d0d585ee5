package config

import (
	"fmt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Annotation.MaxAnnotationWords <= 0 {
		return fmt.Errorf("annotation.max_annotation_words must be > 0 (got %d)", c.Annotation.MaxAnnotationWords)
	}
	if c.Annotation.RetryLimit < 0 {
		return fmt.Errorf("annotation.retry_limit must be >= 0 (got %d)", c.Annotation.RetryLimit)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be > 0 (got %d)", c.LLM.MaxTokens)
	}
	if c.LLM.InputRatePerMTok < 0 || c.LLM.OutputRatePerMTok < 0 {
		return fmt.Errorf("llm token rates must be >= 0")
	}
	if c.Project.RootDir == "" {
		return fmt.Errorf("project.root_dir must not be empty")
	}
	if c.Audio.BaseDir == "" {
		return fmt.Errorf("audio.base_dir must not be empty")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	return nil
}
