package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Annotation AnnotationConfig `yaml:"annotation"`
	TTS        TTSConfig        `yaml:"tts"`
	Audio      AudioConfig      `yaml:"audio"`
	Project    ProjectConfig    `yaml:"project"`
	Render     RenderConfig     `yaml:"render"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings for the audio index.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LLMConfig holds settings for the annotation model.
type LLMConfig struct {
	Model             string        `yaml:"model"                env:"LLM_MODEL"                env-default:"claude-sonnet-4-20250514"`
	APIKey            string        `yaml:"api_key"              env:"LLM_API_KEY"`
	MaxTokens         int           `yaml:"max_tokens"           env:"LLM_MAX_TOKENS"           env-default:"4096"`
	RequestTimeout    time.Duration `yaml:"request_timeout"      env:"LLM_REQUEST_TIMEOUT"      env-default:"120s"`
	InputRatePerMTok  float64       `yaml:"input_rate_per_mtok"  env:"LLM_INPUT_RATE_PER_MTOK"  env-default:"3.0"`
	OutputRatePerMTok float64       `yaml:"output_rate_per_mtok" env:"LLM_OUTPUT_RATE_PER_MTOK" env-default:"15.0"`
}

// AnnotationConfig holds chunking and retry settings for the annotation engine.
type AnnotationConfig struct {
	MaxAnnotationWords int           `yaml:"max_annotation_words" env:"ANNOTATION_MAX_WORDS"      env-default:"250"`
	RetryLimit         int           `yaml:"retry_limit"          env:"ANNOTATION_RETRY_LIMIT"    env-default:"5"`
	RetryWait          time.Duration `yaml:"retry_wait"           env:"ANNOTATION_RETRY_WAIT"     env-default:"5s"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"   env:"ANNOTATION_HEARTBEAT"      env-default:"3s"`
	TemplateDir        string        `yaml:"template_dir"         env:"ANNOTATION_TEMPLATE_DIR"`
}

// TTSConfig holds settings for the speech synthesis adapter.
type TTSConfig struct {
	Endpoint       string        `yaml:"endpoint"        env:"TTS_ENDPOINT"`
	APIKey         string        `yaml:"api_key"         env:"TTS_API_KEY"`
	EngineID       string        `yaml:"engine_id"       env:"TTS_ENGINE_ID"       env-default:"clara_tts"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"TTS_REQUEST_TIMEOUT" env-default:"30s"`
}

// AudioConfig holds settings for the audio repository and importers.
type AudioConfig struct {
	BaseDir    string `yaml:"base_dir"    env:"AUDIO_BASE_DIR"    env-default:"./audio"`
	FFmpegPath string `yaml:"ffmpeg_path" env:"AUDIO_FFMPEG_PATH" env-default:"ffmpeg"`
}

// ProjectConfig holds settings for project storage.
type ProjectConfig struct {
	RootDir string `yaml:"root_dir" env:"PROJECT_ROOT_DIR" env-default:"./projects"`
}

// RenderConfig holds settings for HTML rendering.
type RenderConfig struct {
	SelfContained bool `yaml:"self_contained" env:"RENDER_SELF_CONTAINED" env-default:"false"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
