package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/llm"
)

const yabscoreAnswer = `{
	"Startup Name": "Yabscore",
	"Founding Year": "2019",
	"Founders": ["IK Ezekwelu", "Dapo Arowa"],
	"Industry": "Sporttech",
	"Niche": "Mobile sports betting",
	"USP": "First fully mobile sports-betting platform",
	"Funding Stage": null,
	"Current Revenue": "$3.1k",
	"Market": {"TAM": "$95B", "SAM": "$2.2B", "SOM": "$193M"},
	"Amount Raised": "$10m"
}`

func chatResponse(content string) []byte {
	bs, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return bs
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gpt-3.5-turbo",
		Retry: llm.RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     4 * time.Millisecond,
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractRecordHappyPath(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model          string         `json:"model"`
			Temperature    float64        `json:"temperature"`
			ResponseFormat map[string]any `json:"response_format"`
			Messages       []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-3.5-turbo", body.Model)
		assert.Equal(t, float64(0), body.Temperature)
		assert.Equal(t, "json_object", body.ResponseFormat["type"])
		if assert.Len(t, body.Messages, 1) {
			assert.Contains(t, body.Messages[0].Content, "----- Slide 1 -----\nYabscore")
		}

		_, _ = w.Write(chatResponse(yabscoreAnswer))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	rec, raw, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{
		DeckText:     "----- Slide 1 -----\nYabscore\n",
		FilenameHint: "yabscore.pdf",
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Yabscore", rec.StartupName)
	require.NotNil(t, rec.FoundingYear)
	assert.Equal(t, "2019", *rec.FoundingYear)
	assert.Equal(t, []string{"IK Ezekwelu", "Dapo Arowa"}, rec.Founders)
	require.NotNil(t, rec.Market.SOM)
	assert.Equal(t, "$193M", *rec.Market.SOM)
	assert.Equal(t, "$10m", rec.AmountRaised)
	assert.NotEmpty(t, raw)
}

func TestExtractRecordRecoversFencedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse("```json\n"+yabscoreAnswer+"\n```"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	rec, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.NoError(t, err)
	assert.Equal(t, "Yabscore", rec.StartupName)
}

func TestExtractRecordAuthErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "code": "invalid_api_key"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionAuth))
	assert.True(t, common.IsRunFatal(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractRecordQuotaErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "You exceeded your current quota", "type": "insufficient_quota", "code": "insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionQuota))
	assert.True(t, common.IsRunFatal(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractRecordRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "code": "rate_limit_exceeded"}}`))
			return
		}
		_, _ = w.Write(chatResponse(yabscoreAnswer))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	rec, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.NoError(t, err)
	assert.Equal(t, "Yabscore", rec.StartupName)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractRecordExhaustsRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionUnavailable))
	assert.False(t, common.IsRunFatal(err))
	// initial attempt + MaxRetries
	assert.Equal(t, int32(3), calls.Load())
}

func TestExtractRecordBadRequestFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "context length exceeded"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractRecordMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse("I could not find any structured data in this deck."))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedExtraction))
	assert.False(t, common.IsRunFatal(err))
}

func TestExtractRecordSchemaViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse(`{"Founders": {"lead": "Alice"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: "deck"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedExtraction))
}

func TestExtractRecordCancelledContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(chatResponse(yabscoreAnswer))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(t, srv.URL)
	_, _, err := c.ExtractRecord(ctx, llm.ExtractRequest{DeckText: "deck"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(0), calls.Load())
}

func TestExtractRecordTruncatesLongDecks(t *testing.T) {
	var promptLen atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) == 1 {
			promptLen.Store(int64(len(body.Messages[0].Content)))
		}
		_, _ = w.Write(chatResponse(yabscoreAnswer))
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		MaxInputChars: 1000,
		Retry:         llm.RetryConfig{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	long := make([]byte, 50000)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err := c.ExtractRecord(context.Background(), llm.ExtractRequest{DeckText: string(long)})

	require.NoError(t, err)
	// prompt = fixed scaffolding + at most MaxInputChars of deck text
	fixed := len(llm.BuildExtractionPrompt(""))
	assert.LessOrEqual(t, promptLen.Load(), int64(fixed+1000))
}

func TestScoreDeck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "gpt-4", body.Model)

		_, _ = w.Write(chatResponse(`{
			"sections": [
				{"name": "Team", "score": 7, "reason": "experienced founders"},
				{"name": "Financials", "score": 2, "reason": "no real numbers"}
			],
			"total_score": 65,
			"summary": "Strong traction, weak financials."
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		Model:        "gpt-3.5-turbo",
		ScoringModel: "gpt-4",
		Retry:        llm.RetryConfig{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	report, err := c.ScoreDeck(context.Background(), "deck text")

	require.NoError(t, err)
	assert.Equal(t, 65, report.TotalScore)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "Team", report.Sections[0].Name)
	assert.Equal(t, 7, report.Sections[0].Score)
	assert.Equal(t, "Strong traction, weak financials.", report.Summary)
}

func TestGenerateInsights(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse(`{
			"Pitch Score": 68,
			"Red Flags": ["No clear monetization strategy"],
			"Suggested Questions": ["Who is your paying customer?"],
			"Summary Insight": "Strong team, unclear go-to-market."
		}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	report, err := c.GenerateInsights(context.Background(), "deck text")

	require.NoError(t, err)
	assert.Equal(t, 68, report.PitchScore)
	assert.Equal(t, []string{"No clear monetization strategy"}, report.RedFlags)
	assert.Equal(t, []string{"Who is your paying customer?"}, report.SuggestedQuestions)
	assert.Equal(t, "Strong team, unclear go-to-market.", report.SummaryInsight)
}

func TestGenerateInsightsEmptyListsStayNonNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse(`{"Pitch Score": 90, "Summary Insight": "solid"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	report, err := c.GenerateInsights(context.Background(), "deck text")

	require.NoError(t, err)
	assert.NotNil(t, report.RedFlags)
	assert.NotNil(t, report.SuggestedQuestions)
	assert.Empty(t, report.RedFlags)
}

func TestIdentifyKeySlides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(chatResponse(`{"TeamPage": 2, "MarketPage": null, "TractionPage": 99}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	slides, err := c.IdentifyKeySlides(context.Background(), []string{"intro", "our team", "ask"})

	require.NoError(t, err)
	require.NotNil(t, slides.TeamPage)
	assert.Equal(t, 2, *slides.TeamPage)
	assert.Nil(t, slides.MarketPage)
	// out-of-range page references are dropped
	assert.Nil(t, slides.TractionPage)
}
