package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
	"github.com/deckscan/deckscan/internal/llm"
)

const extractMaxTokens = 800

// ExtractRecord implements llm.DeckExtractor using text-only chat/completions.
func (c *Client) ExtractRecord(ctx context.Context, req llm.ExtractRequest) (entity.PitchDeckRecord, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	text, truncated := llm.TruncateDeckText(req.DeckText, c.cfg.MaxInputChars)
	prompt := llm.BuildExtractionPrompt(text)

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"filename", req.FilenameHint,
		"text_len", len(req.DeckText),
		"truncated", truncated,
	)

	content, err := c.complete(ctx, rid, c.cfg.Model, prompt, extractMaxTokens)
	if err != nil {
		c.logger.Error("llm.extract.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.PitchDeckRecord{}, nil, err
	}

	obj, err := llm.DecodeModelJSON(content)
	if err != nil {
		c.logger.Error("llm.extract.malformed",
			"req_id", rid, "error", err, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.PitchDeckRecord{}, []byte(content), err
	}

	rawJSON, err := json.Marshal(obj)
	if err != nil {
		return entity.PitchDeckRecord{}, []byte(content), common.NewAppError("INTERNAL", "re-encode model response", err)
	}
	if err := llm.ValidateRecordJSON(rawJSON); err != nil {
		c.logger.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.PitchDeckRecord{}, rawJSON, err
	}

	rec := llm.NormalizeRecord(obj)
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"startup", rec.StartupName,
		"industry", rec.Industry,
		"stage", rec.FundingStage,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, rawJSON, nil
}

// complete sends one chat completion and returns the message content.
// Remote failures come back already classified per the extraction taxonomy.
func (c *Client) complete(ctx context.Context, rid, model, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"model":           model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      maxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}

	raw, err := c.completeWithRetry(ctx, rid, body)
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", common.NewAppError("MALFORMED_EXTRACTION",
			fmt.Sprintf("decode completion envelope: %v", err), common.ErrMalformedExtraction)
	}
	if len(cc.Choices) == 0 {
		return "", common.NewAppError("MALFORMED_EXTRACTION",
			"no choices in completion response", common.ErrMalformedExtraction)
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

// completeWithRetry posts the completion body, retrying transient failures
// with exponential backoff. Auth and quota failures return immediately; the
// batch layer aborts the whole run on those.
func (c *Client) completeWithRetry(ctx context.Context, rid string, body map[string]any) ([]byte, error) {
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	var lastErr error

	for attempt := 0; attempt <= c.cfg.Retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := llm.SendJSON(ctx, c.http, c.endpoint(), body, headers, c.logger)
		if err == nil {
			return raw, nil
		}
		// A cancelled batch must surface as a context error, not as an
		// availability failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, common.NewAppError("EXTRACT_AUTH",
				fmt.Sprintf("completion endpoint rejected credentials (status %d)", status), common.ErrExtractionAuth)
		case status == http.StatusTooManyRequests && isQuotaExceeded(raw):
			return nil, common.NewAppError("EXTRACT_QUOTA",
				"completion quota exhausted", common.ErrExtractionQuota)
		case status != 0 && !llm.ShouldRetryStatus(status):
			return nil, common.NewAppError("EXTRACT_UNAVAILABLE",
				fmt.Sprintf("completion endpoint failed (status %d)", status), common.ErrExtractionUnavailable)
		}

		lastErr = err
		if attempt == c.cfg.Retry.MaxRetries {
			break
		}
		backoff := c.cfg.Retry.Backoff(attempt)
		c.logger.Warn("llm.complete.retry",
			"req_id", rid,
			"attempt", attempt+1,
			"max_retries", c.cfg.Retry.MaxRetries,
			"status", status,
			"backoff_ms", backoff.Milliseconds(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, common.NewAppError("EXTRACT_UNAVAILABLE",
		fmt.Sprintf("completion endpoint unavailable after %d attempts: %v", c.cfg.Retry.MaxRetries+1, lastErr),
		common.ErrExtractionUnavailable)
}

// isQuotaExceeded distinguishes an exhausted-quota 429 from plain rate
// limiting, which shares the status code.
func isQuotaExceeded(raw []byte) bool {
	var body struct {
		Error struct {
			Code string `json:"code"`
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	return body.Error.Code == "insufficient_quota" || body.Error.Type == "insufficient_quota"
}
