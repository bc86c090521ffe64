package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"

	"github.com/pavelanni/interviewer/internal/model"
)

// Config holds the settings for an OpenAI-compatible endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float32
	Timeout        time.Duration // per call; 0 disables
	MaxConcurrency int           // concurrent calls; 0 means unlimited
	JSONMode       bool          // request JSON object responses
	SpeechModel    string
	DefaultVoice   string
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api *openai.Client
	cfg Config
	sem *semaphore.Weighted
}

// New creates a new LLM client.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(openai.TTSModel1)
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = string(openai.VoiceAlloy)
	}
	c := &Client{
		api: openai.NewClientWithConfig(config),
		cfg: cfg,
	}
	if cfg.MaxConcurrency > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrency))
	}
	return c, nil
}

// Complete sends a rendered prompt as a single user message and returns the
// raw text of the first choice. Every failure wraps model.ErrProvider.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.acquire(ctx); err != nil {
		return "", err
	}
	defer c.release()

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.cfg.Temperature,
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: LLM API call: %w", model.ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: LLM returned no choices", model.ErrProvider)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw, "total_tokens", resp.Usage.TotalTokens)
	return raw, nil
}

// Speak synthesizes text to MP3 audio. An empty voice selects the configured
// default. The caller must close the returned reader, which also frees the
// concurrency slot held while the audio streams.
func (c *Client) Speak(ctx context.Context, text, voice string) (io.ReadCloser, error) {
	if voice == "" {
		voice = c.cfg.DefaultVoice
	}
	ctx, cancel := c.withTimeout(ctx)

	if err := c.acquire(ctx); err != nil {
		cancel()
		return nil, err
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		c.release()
		cancel()
		return nil, fmt.Errorf("%w: speech API call: %w", model.ErrProvider, err)
	}
	return &cancelReader{ReadCloser: resp.ReadCloser, cancel: cancel, release: c.release}, nil
}

// Ping checks that the endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: list models: %w", model.ErrProvider, err)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) acquire(ctx context.Context) error {
	if c.sem == nil {
		return nil
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: waiting for LLM slot: %w", model.ErrProvider, err)
	}
	return nil
}

func (c *Client) release() {
	if c.sem != nil {
		c.sem.Release(1)
	}
}

// cancelReader releases the call's context and concurrency slot once the
// body is closed. Later calls to Close only close the body.
type cancelReader struct {
	io.ReadCloser
	cancel  context.CancelFunc
	release func()
	once    sync.Once
}

func (r *cancelReader) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(func() {
		r.cancel()
		r.release()
	})
	return err
}
