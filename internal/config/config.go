package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leofalp/aitasks/providers/ai"
)

// Provider names understood by the factory and the roster.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Cohere    = "cohere"
	Replicate = "replicate"
	Serper    = "serper"
)

const (
	defaultTimeout  = 120 * time.Second
	defaultRecorder = "arecord -q -f S16_LE -r 16000 -c 1 -t raw"
)

// ErrMissingAPIKey is returned by Require when a provider has no key.
var ErrMissingAPIKey = errors.New("missing API key")

// keyVariables lists the accepted key variables per provider, preferred first.
var keyVariables = map[string][]string{
	OpenAI:    {"OPENAI_API_KEY"},
	Anthropic: {"ANTHROPIC_API_KEY"},
	Gemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	Cohere:    {"COHERE_API_KEY", "CO_API_KEY"},
	Replicate: {"REPLICATE_API_TOKEN", "REPLICATE_API_KEY"},
	Serper:    {"SERPER_API_KEY"},
}

// ProviderSettings are the per-provider overrides. Empty fields mean
// "provider default".
type ProviderSettings struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
}

// S3Settings enables uploading artifacts to a bucket when Bucket is set.
type S3Settings struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Config is the process-wide configuration.
type Config struct {
	OutputDir string
	Timeout   time.Duration
	// Recorder is the command line whose stdout is raw 16 kHz mono PCM.
	Recorder   string
	RosterPath string
	S3         S3Settings
	Providers  map[string]ProviderSettings
}

// FromEnv loads the configuration. Malformed numeric values are reported as
// validation errors instead of being ignored.
func FromEnv() (Config, error) {
	cfg := Config{
		OutputDir:  envOr("AITASKS_OUTPUT_DIR", "."),
		Timeout:    defaultTimeout,
		Recorder:   envOr("AITASKS_RECORDER", defaultRecorder),
		RosterPath: os.Getenv("AITASKS_ROSTER"),
		S3: S3Settings{
			Bucket:          os.Getenv("AITASKS_S3_BUCKET"),
			Prefix:          os.Getenv("AITASKS_S3_PREFIX"),
			Region:          os.Getenv("AITASKS_S3_REGION"),
			Endpoint:        os.Getenv("AITASKS_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		Providers: make(map[string]ProviderSettings, len(keyVariables)),
	}

	if v := os.Getenv("AITASKS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ai.NewValidationError("AITASKS_TIMEOUT", "%q is not a positive duration", v)
		}
		cfg.Timeout = d
	}

	for name := range keyVariables {
		settings, err := providerFromEnv(name)
		if err != nil {
			return Config{}, err
		}
		cfg.Providers[name] = settings
	}
	return cfg, nil
}

// Provider returns the settings for name, empty when unknown.
func (c Config) Provider(name string) ProviderSettings {
	if s, ok := c.Providers[name]; ok {
		return s
	}
	return ProviderSettings{Name: name}
}

// Require fails with ErrMissingAPIKey for the first provider without a key.
func (c Config) Require(names ...string) error {
	for _, name := range names {
		if strings.TrimSpace(c.Provider(name).APIKey) == "" {
			vars, ok := keyVariables[name]
			if !ok {
				return fmt.Errorf("%w: unknown provider %q", ErrMissingAPIKey, name)
			}
			return fmt.Errorf("%w: set %s", ErrMissingAPIKey, strings.Join(vars, " or "))
		}
	}
	return nil
}

// ModelOr returns the configured model of provider, or fallback.
func (c Config) ModelOr(provider, fallback string) string {
	if m := c.Provider(provider).Model; m != "" {
		return m
	}
	return fallback
}

// TemperatureOr returns the configured temperature of provider, or fallback.
func (c Config) TemperatureOr(provider string, fallback float32) float32 {
	if t := c.Provider(provider).Temperature; t != nil {
		return *t
	}
	return fallback
}

func providerFromEnv(name string) (ProviderSettings, error) {
	prefix := strings.ToUpper(name)
	settings := ProviderSettings{
		Name:    name,
		BaseURL: os.Getenv(prefix + "_API_BASE_URL"),
		Model:   os.Getenv(prefix + "_MODEL"),
	}
	for _, v := range keyVariables[name] {
		if key := os.Getenv(v); key != "" {
			settings.APIKey = key
			break
		}
	}

	variable := prefix + "_TEMPERATURE"
	if raw := os.Getenv(variable); raw != "" {
		t, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return ProviderSettings{}, ai.NewValidationError(variable, "%q is not a number", raw)
		}
		if t < 0 || t > 2 {
			return ProviderSettings{}, ai.NewValidationError(variable, "%.2f is outside [0, 2]", t)
		}
		temperature := float32(t)
		settings.Temperature = &temperature
	}
	return settings, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
