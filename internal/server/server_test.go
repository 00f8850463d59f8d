package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckscan/deckscan/constants"
	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
	"github.com/deckscan/deckscan/internal/export"
	"github.com/deckscan/deckscan/internal/llm"
	"github.com/deckscan/deckscan/internal/pipeline"
	"github.com/deckscan/deckscan/internal/repository"
)

type fakeTexts struct {
	err error
}

func (f *fakeTexts) ExtractText(ctx context.Context, filename string, _ []byte) (entity.RawDeckText, error) {
	if f.err != nil {
		return entity.RawDeckText{}, f.err
	}
	return entity.RawDeckText{
		Filename:  filename,
		Text:      "----- Slide 1 -----\n" + filename + "\n",
		PageTexts: []string{filename, "our team"},
		Pages:     2,
	}, nil
}

type fakeModel struct {
	errFor map[string]error
	record func(filename string) entity.PitchDeckRecord
}

func (f *fakeModel) ExtractRecord(_ context.Context, req llm.ExtractRequest) (entity.PitchDeckRecord, []byte, error) {
	if err := f.errFor[req.FilenameHint]; err != nil {
		return entity.PitchDeckRecord{}, nil, err
	}
	if f.record != nil {
		return f.record(req.FilenameHint), []byte("{}"), nil
	}
	rec := entity.EmptyRecord()
	rec.StartupName = strings.TrimSuffix(req.FilenameHint, ".pdf")
	rec.Industry = "Fintech"
	return rec, []byte("{}"), nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) ScoreDeck(context.Context, string) (entity.ScoreReport, error) {
	return entity.ScoreReport{TotalScore: 72, Summary: "solid"}, nil
}

func (fakeAnalyzer) GenerateInsights(context.Context, string) (entity.InsightReport, error) {
	return entity.InsightReport{
		PitchScore:         68,
		RedFlags:           []string{"no monetization"},
		SuggestedQuestions: []string{},
		SummaryInsight:     "promising",
	}, nil
}

func (fakeAnalyzer) IdentifyKeySlides(context.Context, []string) (entity.KeySlides, error) {
	two := 2
	return entity.KeySlides{TeamPage: &two}, nil
}

func newTestServer(t *testing.T, texts *fakeTexts, model *fakeModel) (*httptest.Server, repository.DeckStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	proc := pipeline.NewProcessor(texts, model, fakeAnalyzer{}, store, logger)
	exporter := export.NewService(store, logger)

	srv := New(proc, exporter, common.ServerConfig{RequestTimeout: 10 * time.Second}, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func uploadDeck(t *testing.T, ts *httptest.Server, filename string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/v1/decks", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "healthy", body["status"])

	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUploadDeckHappyPath(t *testing.T) {
	ts, store := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp := uploadDeck(t, ts, "yabscore.pdf")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	deck := decodeBody[entity.Deck](t, resp)
	assert.Equal(t, "yabscore.pdf", deck.Filename)
	assert.Equal(t, constants.DeckStatusProcessed, deck.Status)
	assert.Equal(t, "yabscore", deck.Record.StartupName)

	stored, err := store.Get(context.Background(), "yabscore.pdf")
	require.NoError(t, err)
	assert.Equal(t, deck.ID, stored.ID)
}

func TestUploadDeckMissingFileField(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp, err := http.Post(ts.URL+"/api/v1/decks", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestUploadDeckRejectsNonPDF(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp := uploadDeck(t, ts, "notes.txt")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUploadUnreadableDocument(t *testing.T) {
	texts := &fakeTexts{err: common.NewAppError("UNREADABLE_DOCUMENT",
		"not a readable pdf: bad.pdf", common.ErrUnreadableDocument)}
	ts, store := newTestServer(t, texts, &fakeModel{})

	resp := uploadDeck(t, ts, "bad.pdf")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "UNREADABLE_DOCUMENT", body.Error.Code)
	require.NotNil(t, body.Deck)
	assert.Equal(t, constants.DeckStatusFailed, body.Deck.Status)

	// failed decks still occupy their row
	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUploadMalformedExtractionKeepsRow(t *testing.T) {
	model := &fakeModel{errFor: map[string]error{
		"noisy.pdf": common.NewAppError("MALFORMED_EXTRACTION",
			"response is not a JSON object", common.ErrMalformedExtraction),
	}}
	ts, _ := newTestServer(t, &fakeTexts{}, model)

	resp := uploadDeck(t, ts, "noisy.pdf")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "MALFORMED_EXTRACTION", body.Error.Code)
	require.NotNil(t, body.Deck)
	assert.Equal(t, constants.DeckStatusFailed, body.Deck.Status)

	// the failed deck shows up in the listing with its error flag
	listResp, err := http.Get(ts.URL + "/api/v1/decks")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)
	list := decodeBody[listResponse](t, listResp)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, constants.DeckStatusFailed, list.Decks[0].Status)
	assert.NotEmpty(t, list.Decks[0].FailReason)
}

func TestUploadAuthErrorIsBadGateway(t *testing.T) {
	model := &fakeModel{errFor: map[string]error{
		"x.pdf": common.NewAppError("EXTRACT_AUTH", "invalid API key", common.ErrExtractionAuth),
	}}
	ts, store := newTestServer(t, &fakeTexts{}, model)

	resp := uploadDeck(t, ts, "x.pdf")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "EXTRACT_AUTH", body.Error.Code)
	assert.Nil(t, body.Deck) // run-fatal errors leave no placeholder

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetDeckNotFound(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp, err := http.Get(ts.URL + "/api/v1/decks/missing.pdf")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestGetDeckEscapedFilename(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp := uploadDeck(t, ts, "my deck.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	getResp, err := http.Get(ts.URL + "/api/v1/decks/my%20deck.pdf")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	deck := decodeBody[entity.Deck](t, getResp)
	assert.Equal(t, "my deck.pdf", deck.Filename)
}

func TestListDecksFilters(t *testing.T) {
	model := &fakeModel{record: func(filename string) entity.PitchDeckRecord {
		rec := entity.EmptyRecord()
		rec.StartupName = strings.TrimSuffix(filename, ".pdf")
		if filename == "crypto.pdf" {
			rec.Industry = "Blockchain"
		} else {
			rec.Industry = "Healthtech"
		}
		return rec
	}}
	ts, _ := newTestServer(t, &fakeTexts{}, model)

	for _, name := range []string{"crypto.pdf", "clinic.pdf"} {
		resp := uploadDeck(t, ts, name)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()
	}

	// synonym "crypto" canonicalizes onto the Blockchain taxonomy entry
	resp, err := http.Get(ts.URL + "/api/v1/decks?industry=crypto")
	require.NoError(t, err)
	list := decodeBody[listResponse](t, resp)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "crypto.pdf", list.Decks[0].Filename)

	resp, err = http.Get(ts.URL + "/api/v1/decks?year_from=abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/v1/decks?status=weird")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestReExtractEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp := uploadDeck(t, ts, "deck.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decodeBody[entity.Deck](t, resp)

	reResp, err := http.Post(ts.URL+"/api/v1/decks/deck.pdf/reextract", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, reResp.StatusCode)
	again := decodeBody[entity.Deck](t, reResp)
	assert.Equal(t, first.ID, again.ID)

	missing, err := http.Post(ts.URL+"/api/v1/decks/missing.pdf/reextract", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	_ = missing.Body.Close()
}

func TestAnalysisEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp := uploadDeck(t, ts, "deck.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	scoreResp, err := http.Post(ts.URL+"/api/v1/decks/deck.pdf/score", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, scoreResp.StatusCode)
	score := decodeBody[entity.ScoreReport](t, scoreResp)
	assert.Equal(t, 72, score.TotalScore)

	insightResp, err := http.Post(ts.URL+"/api/v1/decks/deck.pdf/insights", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, insightResp.StatusCode)
	insights := decodeBody[entity.InsightReport](t, insightResp)
	assert.Equal(t, []string{"no monetization"}, insights.RedFlags)

	slidesResp, err := http.Post(ts.URL+"/api/v1/decks/deck.pdf/keyslides", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, slidesResp.StatusCode)
	slides := decodeBody[entity.KeySlides](t, slidesResp)
	require.NotNil(t, slides.TeamPage)
	assert.Equal(t, 2, *slides.TeamPage)
}

func TestExportCSVEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp := uploadDeck(t, ts, "deck.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	csvResp, err := http.Get(ts.URL + "/api/v1/export?format=csv")
	require.NoError(t, err)
	defer func() { _ = csvResp.Body.Close() }()
	assert.Equal(t, http.StatusOK, csvResp.StatusCode)
	assert.Equal(t, "text/csv", csvResp.Header.Get("Content-Type"))
	assert.Contains(t, csvResp.Header.Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(csvResp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, "deck", rows[1][0])
}

func TestExportUnknownFormat(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp, err := http.Get(ts.URL + "/api/v1/export?format=pdf")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestClearDecks(t *testing.T) {
	ts, store := newTestServer(t, &fakeTexts{}, &fakeModel{})

	resp := uploadDeck(t, ts, "deck.pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/decks", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
	_ = delResp.Body.Close()

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
