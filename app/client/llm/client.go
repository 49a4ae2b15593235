package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quietspot/app/config"
	"quietspot/app/util/mylog"

	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/sony/gobreaker/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	maxGenerateDuration = 30 * time.Second
	breakerName         = "llm"
)

var (
	ErrDisabled      = errors.New("language model is not configured")
	ErrEmptyResponse = errors.New("language model returned no choices")
)

type Options struct {
	MaxTokens   int
	Temperature float64
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// CooldownPeriod is how long the breaker stays open before probing again.
	CooldownPeriod time.Duration
}

// Client is the generative collaborator. A client without a model is valid
// and fails every call with ErrDisabled.
type Client struct {
	model llms.Model
	opts  Options
	cb    *gobreaker.CircuitBreaker[string]
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	opts := Options{
		MaxTokens:        cfg.LLM.MaxTokens,
		Temperature:      cfg.LLM.Temperature,
		FailureThreshold: cfg.LLM.FailureThreshold,
		CooldownPeriod:   cfg.LLM.CooldownPeriod,
	}

	if cfg.LLM.Token == "" {
		slog.Warn("LLM token is not configured, generative features are disabled")
		return NewWithModel(nil, opts), nil
	}

	model, err := openai.New(
		openai.WithToken(cfg.LLM.Token),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithModel(cfg.LLM.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: maxGenerateDuration,
		}),
		openai.WithCallback(LogCallbackHandler{}),
	)
	if err != nil {
		return nil, oops.In("llm").With("base_url", cfg.LLM.BaseURL).Wrapf(err, "failed to create model")
	}

	return NewWithModel(model, opts), nil
}

func NewWithModel(model llms.Model, opts Options) *Client {
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	if opts.CooldownPeriod == 0 {
		opts.CooldownPeriod = time.Minute
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.CooldownPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrEmptyResponse)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				mylog.TelegramKey, to == gobreaker.StateOpen,
			)
		},
	})

	return &Client{
		model: model,
		opts:  opts,
		cb:    cb,
	}
}

func (c *Client) Enabled() bool {
	return c.model != nil
}

// Generate sends a single user prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.call(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
}

// Converse sends a system prompt followed by one user message.
func (c *Client) Converse(ctx context.Context, system, user string) (string, error) {
	return c.call(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	})
}

func (c *Client) call(ctx context.Context, messages []llms.MessageContent) (string, error) {
	if c.model == nil {
		return "", ErrDisabled
	}

	result, err := c.cb.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, maxGenerateDuration)
		defer cancel()

		options := []llms.CallOption{llms.WithTemperature(c.opts.Temperature)}
		if c.opts.MaxTokens > 0 {
			options = append(options, llms.WithMaxTokens(c.opts.MaxTokens))
		}

		resp, err := c.model.GenerateContent(ctx, messages, options...)
		if err != nil {
			return "", err
		}

		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}

		return strings.TrimSpace(resp.Choices[0].Content), nil
	})
	if err != nil {
		return "", oops.In("llm").With("breaker_state", c.cb.State().String()).Wrapf(err, "failed to generate content")
	}

	return result, nil
}

// IsTransient reports whether retrying later may succeed: timeouts, an open
// breaker, or an upstream failure. A disabled client or an empty answer is
// permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDisabled) || errors.Is(err, ErrEmptyResponse) {
		return false
	}

	return true
}

// IsBreakerOpen reports whether the call was rejected without reaching the model.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
