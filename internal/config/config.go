package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/satriahrh/voicechat/domain/entities"
)

// Provider names accepted per stage
var (
	TranscriptionProviders = []string{"google", "whisper", "mock"}
	GenerationProviders    = []string{"openai", "gemini", "mock"}
	SynthesisProviders     = []string{"elevenlabs", "openai", "mock"}
	SynthesisModes         = []string{"batch", "stream"}
	LogLevels              = []string{"debug", "info", "warn", "error"}
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Auth          AuthConfig          `yaml:"auth"`
	Transcoder    TranscoderConfig    `yaml:"transcoder"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Generation    GenerationConfig    `yaml:"generation"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Session       SessionConfig       `yaml:"session"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Voices        []VoiceConfig       `yaml:"voices"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxMessageSize  int64         `yaml:"max_message_size"` // bytes
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

type TranscoderConfig struct {
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	SourceFormat  string        `yaml:"source_format"`
	MaxConcurrent int           `yaml:"max_concurrent"` // 0 means GOMAXPROCS
	Timeout       time.Duration `yaml:"timeout"`
}

type TranscriptionConfig struct {
	Provider        string        `yaml:"provider"`
	Language        string        `yaml:"language"`
	Timeout         time.Duration `yaml:"timeout"`
	CredentialsFile string        `yaml:"credentials_file"`
	WhisperModel    string        `yaml:"whisper_model"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	BaseURL         string        `yaml:"base_url"`
	MockTranscript  string        `yaml:"mock_transcript"`
}

type GenerationConfig struct {
	Provider             string        `yaml:"provider"`
	Model                string        `yaml:"model"` // empty selects the provider default
	Persona              string        `yaml:"persona"`
	MaxTokens            int           `yaml:"max_tokens"`
	Temperature          float64       `yaml:"temperature"`
	Timeout              time.Duration `yaml:"timeout"`
	EmptyTranscriptReply string        `yaml:"empty_transcript_reply"`
	OpenAIAPIKey         string        `yaml:"openai_api_key"`
	GeminiAPIKey         string        `yaml:"gemini_api_key"`
	BaseURL              string        `yaml:"base_url"`
}

type SynthesisConfig struct {
	Provider         string        `yaml:"provider"`
	Mode             string        `yaml:"mode"`
	Model            string        `yaml:"model"`
	OutputFormat     string        `yaml:"output_format"`
	DefaultVoice     string        `yaml:"default_voice"`
	Stability        float64       `yaml:"stability"`
	Similarity       float64       `yaml:"similarity"`
	ChunkSize        int           `yaml:"chunk_size"`
	Timeout          time.Duration `yaml:"timeout"`
	ElevenLabsAPIKey string        `yaml:"elevenlabs_api_key"`
	OpenAIAPIKey     string        `yaml:"openai_api_key"`
	BaseURL          string        `yaml:"base_url"`
	// SeedVoices fills an empty catalog from the provider's voice list
	SeedVoices bool `yaml:"seed_voices"`
}

type SessionConfig struct {
	QueueDepth        int  `yaml:"queue_depth"`
	StreamAudioChunks bool `yaml:"stream_audio_chunks"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type VoiceConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	VoiceID     string `yaml:"voice_id"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			MaxMessageSize:  10 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Transcoder: TranscoderConfig{
			FFmpegPath:   "ffmpeg",
			SourceFormat: "webm",
			Timeout:      15 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Provider:     "mock",
			Language:     "ru-RU",
			Timeout:      30 * time.Second,
			WhisperModel: "whisper-1",
		},
		Generation: GenerationConfig{
			Provider:             "mock",
			Persona:              "You are a voice assistant.",
			MaxTokens:            300,
			Temperature:          0.9,
			Timeout:              30 * time.Second,
			EmptyTranscriptReply: "Sorry, I didn't catch that. Could you say it again?",
		},
		Synthesis: SynthesisConfig{
			Provider:     "mock",
			Mode:         "batch",
			OutputFormat: "mp3_22050_32",
			Stability:    0.5,
			Similarity:   0.5,
			ChunkSize:    1024,
			Timeout:      30 * time.Second,
		},
		Mongo:   MongoConfig{Database: "voicechat"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads .env into the environment, then the YAML file at path (skipped
// when path is empty), then applies environment overrides and validates the
// result.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst ...*string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			for _, d := range dst {
				*d = v
			}
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("JWT_SECRET", &c.Auth.JWTSecret)
	setString("FFMPEG_PATH", &c.Transcoder.FFmpegPath)
	setString("OPENAI_API_KEY", &c.Generation.OpenAIAPIKey, &c.Transcription.OpenAIAPIKey, &c.Synthesis.OpenAIAPIKey)
	setString("GEMINI_API_KEY", &c.Generation.GeminiAPIKey)
	setString("ELEVENLABS_API_KEY", &c.Synthesis.ElevenLabsAPIKey)
	setString("GOOGLE_APPLICATION_CREDENTIALS", &c.Transcription.CredentialsFile)
	setString("MONGODB_URI", &c.Mongo.URI)
	setString("MONGODB_DATABASE", &c.Mongo.Database)
	setString("TRANSCRIPTION_PROVIDER", &c.Transcription.Provider)
	setString("GENERATION_PROVIDER", &c.Generation.Provider)
	setString("SYNTHESIS_PROVIDER", &c.Synthesis.Provider)
	setString("SYNTHESIS_MODE", &c.Synthesis.Mode)
	return nil
}

// Validate checks that c contains a coherent set of values. It returns a
// joined error listing every failure found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	oneOf := func(field, value string, valid []string) {
		if !slices.Contains(valid, value) {
			add("%s %q is invalid; valid values: %v", field, value, valid)
		}
	}
	positive := func(field string, d time.Duration) {
		if d <= 0 {
			add("%s must be positive, got %s", field, d)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port %d is out of range", c.Server.Port)
	}
	if c.Server.MaxMessageSize <= 0 {
		add("server.max_message_size must be positive")
	}
	oneOf("logging.level", c.Logging.Level, LogLevels)
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		add("auth.jwt_secret is required when auth is enabled")
	}

	if c.Transcoder.FFmpegPath == "" {
		add("transcoder.ffmpeg_path is required")
	}
	if c.Transcoder.MaxConcurrent < 0 {
		add("transcoder.max_concurrent must not be negative")
	}
	positive("transcoder.timeout", c.Transcoder.Timeout)
	if !entities.SupportedContainer(c.Transcoder.SourceFormat) {
		add("transcoder.source_format %q is not a supported container", c.Transcoder.SourceFormat)
	}

	oneOf("transcription.provider", c.Transcription.Provider, TranscriptionProviders)
	positive("transcription.timeout", c.Transcription.Timeout)
	if c.Transcription.Language == "" {
		add("transcription.language is required")
	}
	if c.Transcription.Provider == "whisper" && c.Transcription.OpenAIAPIKey == "" {
		add("transcription.openai_api_key is required for whisper")
	}

	oneOf("generation.provider", c.Generation.Provider, GenerationProviders)
	positive("generation.timeout", c.Generation.Timeout)
	if c.Generation.MaxTokens <= 0 {
		add("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		add("generation.temperature %.2f is out of range [0, 2]", c.Generation.Temperature)
	}
	switch c.Generation.Provider {
	case "openai":
		if c.Generation.OpenAIAPIKey == "" {
			add("generation.openai_api_key is required for openai")
		}
	case "gemini":
		if c.Generation.GeminiAPIKey == "" {
			add("generation.gemini_api_key is required for gemini")
		}
	}

	oneOf("synthesis.provider", c.Synthesis.Provider, SynthesisProviders)
	oneOf("synthesis.mode", c.Synthesis.Mode, SynthesisModes)
	positive("synthesis.timeout", c.Synthesis.Timeout)
	if c.Synthesis.Stability < 0 || c.Synthesis.Stability > 1 {
		add("synthesis.stability %.2f is out of range [0, 1]", c.Synthesis.Stability)
	}
	if c.Synthesis.Similarity < 0 || c.Synthesis.Similarity > 1 {
		add("synthesis.similarity %.2f is out of range [0, 1]", c.Synthesis.Similarity)
	}
	switch c.Synthesis.Provider {
	case "elevenlabs":
		if c.Synthesis.ElevenLabsAPIKey == "" {
			add("synthesis.elevenlabs_api_key is required for elevenlabs")
		}
	case "openai":
		if c.Synthesis.OpenAIAPIKey == "" {
			add("synthesis.openai_api_key is required for openai")
		}
	}

	if c.Session.QueueDepth < 0 {
		add("session.queue_depth must not be negative")
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		add("mongo.database is required when mongo.uri is set")
	}
	seen := make(map[string]int, len(c.Voices))
	for i, v := range c.Voices {
		if v.Name == "" || v.VoiceID == "" {
			add("voices[%d]: name and voice_id are required", i)
			continue
		}
		if prev, ok := seen[v.VoiceID]; ok {
			add("voices[%d].voice_id %q is a duplicate of voices[%d]", i, v.VoiceID, prev)
		}
		seen[v.VoiceID] = i
	}

	return errors.Join(errs...)
}
