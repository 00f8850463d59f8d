package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/deckscan/deckscan/internal/llm"
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey        string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL       string        // default https://api.openai.com/v1
	Model         string        // extraction and insight model
	ScoringModel  string        // deck scoring model; defaults to Model
	Temperature   float32       // 0..2; extraction wants 0
	Timeout       time.Duration // per-request http client timeout
	MaxInputChars int           // deck text budget before truncation; <= 0 disables
	Retry         llm.RetryConfig
}

// Client talks to an OpenAI-compatible chat/completions endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.ScoringModel == "" {
		cfg.ScoringModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.Retry == (llm.RetryConfig{}) {
		cfg.Retry = llm.DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
}
