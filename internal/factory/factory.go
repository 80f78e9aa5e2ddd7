// Package factory builds providers, clients and sinks from the runtime
// configuration so every command wires them the same way.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/client/middleware"
	"github.com/leofalp/aitasks/core/fanout"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/anthropic"
	"github.com/leofalp/aitasks/providers/ai/cohere"
	"github.com/leofalp/aitasks/providers/ai/gemini"
	"github.com/leofalp/aitasks/providers/ai/openai"
	"github.com/leofalp/aitasks/providers/ai/replicate"
	"github.com/leofalp/aitasks/providers/tool/serper"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// Factory creates configured collaborators. The zero value is not usable;
// call New.
type Factory struct {
	cfg        config.Config
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a factory. A nil logger means slog.Default().
func New(cfg config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		cfg:        cfg,
		logger:     logger,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// WithHTTPClient replaces the client shared by every provider.
func (f *Factory) WithHTTPClient(c *http.Client) *Factory {
	f.httpClient = c
	return f
}

// Config returns the configuration the factory was built with.
func (f *Factory) Config() config.Config {
	return f.cfg
}

// HTTPClient returns the shared client, also used for downloads.
func (f *Factory) HTTPClient() *http.Client {
	return f.httpClient
}

// Logger returns the factory logger.
func (f *Factory) Logger() *slog.Logger {
	return f.logger
}

// ChatProvider returns the provider called name with the configured key,
// base URL and HTTP client applied.
func (f *Factory) ChatProvider(name string) (ai.Provider, error) {
	var p ai.Provider
	switch name {
	case config.OpenAI:
		p = openai.New()
	case config.Anthropic:
		p = anthropic.New()
	case config.Gemini:
		p = gemini.New()
	case config.Cohere:
		p = cohere.New()
	default:
		return nil, ai.NewValidationError("provider", "unknown chat provider %q", name)
	}
	return f.apply(p, f.cfg.Provider(name)), nil
}

// OpenAI returns the OpenAI provider, which also serves images,
// transcription and speech.
func (f *Factory) OpenAI() *openai.OpenAIProvider {
	p := openai.New()
	f.apply(p, f.cfg.Provider(config.OpenAI))
	return p
}

// Replicate returns the Replicate image provider.
func (f *Factory) Replicate() *replicate.ReplicateProvider {
	s := f.cfg.Provider(config.Replicate)
	p := replicate.New().WithHttpClient(f.httpClient)
	if s.APIKey != "" {
		p.WithAPIKey(s.APIKey)
	}
	if s.BaseURL != "" {
		p.WithBaseURL(s.BaseURL)
	}
	return p
}

// Serper returns the news search client.
func (f *Factory) Serper() *serper.Client {
	s := f.cfg.Provider(config.Serper)
	c := serper.New().WithHttpClient(f.httpClient)
	if s.APIKey != "" {
		c.WithAPIKey(s.APIKey)
	}
	if s.BaseURL != "" {
		c.WithBaseURL(s.BaseURL)
	}
	return c
}

// Client returns a chat client for the provider with logging and timeout
// middleware installed. The configured model override is applied before opts,
// so callers can still pin a model.
func (f *Factory) Client(provider string, opts ...func(*client.ClientOptions)) (*client.Client, error) {
	p, err := f.ChatProvider(provider)
	if err != nil {
		return nil, err
	}
	return client.New(p, f.clientOptions(provider, opts)...)
}

// ClientFor wraps an already built provider the same way Client does.
func (f *Factory) ClientFor(provider ai.Provider, name string, opts ...func(*client.ClientOptions)) (*client.Client, error) {
	return client.New(provider, f.clientOptions(name, opts)...)
}

func (f *Factory) clientOptions(provider string, opts []func(*client.ClientOptions)) []func(*client.ClientOptions) {
	settings := f.cfg.Provider(provider)
	var all []func(*client.ClientOptions)
	if f.cfg.Timeout > 0 {
		all = append(all, client.WithMiddleware(middleware.NewTimeoutMiddleware(f.cfg.Timeout)))
	}
	all = append(all, client.WithMiddleware(
		middleware.NewLoggingMiddleware(f.logger.With("provider", provider), middleware.ParseLogLevel(os.Getenv("AITASKS_LLM_LOG"))),
	))
	if settings.Model != "" {
		all = append(all, client.WithModel(settings.Model))
	}
	if settings.Temperature != nil {
		all = append(all, client.WithTemperature(*settings.Temperature))
	}
	return append(all, opts...)
}

// Targets builds one fan-out target per roster entry. Every provider in the
// roster must have a key.
func (f *Factory) Targets(roster config.Roster) ([]fanout.Target, error) {
	if err := f.cfg.Require(roster.Providers()...); err != nil {
		return nil, err
	}

	targets := make([]fanout.Target, 0, len(roster.Models))
	for _, entry := range roster.Models {
		opts := []func(*client.ClientOptions){client.WithModel(entry.Model)}
		if entry.Temperature != nil {
			opts = append(opts, client.WithTemperature(*entry.Temperature))
		}
		if entry.MaxTokens > 0 {
			opts = append(opts, client.WithMaxOutputTokens(entry.MaxTokens))
		}
		c, err := f.Client(entry.Provider, opts...)
		if err != nil {
			return nil, fmt.Errorf("roster entry %s: %w", entry.Name, err)
		}
		targets = append(targets, fanout.Target{Name: entry.Name, Client: c})
	}
	return targets, nil
}

// Sink returns the S3 sink when a bucket is configured, otherwise a file
// sink rooted at dir (the configured output directory when empty).
func (f *Factory) Sink(ctx context.Context, dir string) (artifact.Sink, error) {
	if s3 := f.cfg.S3; s3.Bucket != "" {
		return artifact.NewS3SinkFromConfig(ctx, artifact.S3Config{
			Bucket:          s3.Bucket,
			Prefix:          s3.Prefix,
			Region:          s3.Region,
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
		})
	}
	if dir == "" {
		dir = f.cfg.OutputDir
	}
	return artifact.NewFileSink(dir)
}

func (f *Factory) apply(p ai.Provider, s config.ProviderSettings) ai.Provider {
	p.WithHttpClient(f.httpClient)
	if s.APIKey != "" {
		p.WithAPIKey(s.APIKey)
	}
	if s.BaseURL != "" {
		p.WithBaseURL(s.BaseURL)
	}
	return p
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
