package climatechat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/climatechat/cache"
	"github.com/verdantiq/climatechat/canned"
	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/feedback"
	"github.com/verdantiq/climatechat/intent"
	"github.com/verdantiq/climatechat/language"
	"github.com/verdantiq/climatechat/llm"
	"github.com/verdantiq/climatechat/orchestrator"
	"github.com/verdantiq/climatechat/router"
	"github.com/verdantiq/climatechat/schema"
	"github.com/verdantiq/climatechat/translate"
)

type fakeClassifier struct {
	result  intent.Result
	history []schema.Turn
}

func (f *fakeClassifier) Classify(ctx context.Context, query string, history []schema.Turn) (intent.Result, error) {
	f.history = history
	return f.result, nil
}

type fakeRetriever struct{ calls int }

func (f *fakeRetriever) Type() string { return "fake" }

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]schema.SearchResult, error) {
	f.calls++
	return []schema.SearchResult{
		{Document: schema.Document{ID: "d1", Title: "Warming", Content: "CO2 warms the planet.", URL: "https://kb/d1"}, Score: 0.9},
	}, nil
}

type fakeProvider struct{ reply string }

func (f *fakeProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return f.reply, nil
}

func (f *fakeProvider) Chat(ctx context.Context, system string, messages []llm.Message) (string, error) {
	return f.reply, nil
}

func (f *fakeProvider) GetProviderType() string { return "fake" }

func newTestServer(t *testing.T) (*Server, *fakeRetriever) {
	t.Helper()
	cfg := config.Default()
	table := language.NewDefaultTable()
	nova := &fakeProvider{reply: "CO2 traps heat [1]."}
	cohere := &fakeProvider{reply: "Answer [1]."}
	svc := translate.NewService(table, nova, cohere)
	ret := &fakeRetriever{}
	rc, err := cache.NewResponseCache(context.Background(), config.CacheConfig{
		L1: &config.L1CacheConfig{Enable: true, MaxEntries: 32, TTLSeconds: 60},
	})
	require.NoError(t, err)

	client := &Client{
		Cfg:      cfg,
		Table:    table,
		Sessions: NewMemSessionStore(),
		Feedback: feedback.NewMemoryStore(0),
		Orchestrator: &orchestrator.Orchestrator{
			Cfg:        cfg,
			Router:     router.New(table),
			Classifier: &fakeClassifier{result: intent.Result{Category: intent.CategoryOnTopic, RewrittenQueryEnglish: "what causes warming"}},
			Canned:     canned.NewDispatcher(svc),
			Translate:  svc,
			Retriever:  ret,
			Nova:       nova,
			Cohere:     cohere,
			Cache:      rc,
		},
	}
	return NewServer(client), ret
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv.Handler(), "/api/v1/chat/query", `{"query":"what causes warming","language":"en"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "CO2 traps heat [1].", resp.Response)
	assert.Equal(t, "en", resp.LanguageUsed)
	assert.False(t, resp.FromCache)
	assert.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "https://kb/d1", resp.Citations[0].URL)
}

func TestQueryCacheIdempotence(t *testing.T) {
	srv, ret := newTestServer(t)
	body := `{"query":"what causes warming","language":"en"}`

	first := postJSON(t, srv.Handler(), "/api/v1/chat/query", body)
	require.Equal(t, http.StatusOK, first.Code)
	second := postJSON(t, srv.Handler(), "/api/v1/chat/query", body)
	require.Equal(t, http.StatusOK, second.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.FromCache)
	assert.Equal(t, 1, ret.calls)

	third := postJSON(t, srv.Handler(), "/api/v1/chat/query", `{"query":"what causes warming","language":"en","skip_cache":true}`)
	require.Equal(t, http.StatusOK, third.Code)
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &resp))
	assert.False(t, resp.FromCache)
	assert.Equal(t, 2, ret.calls)
}

func TestQueryValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.Handler(), "/api/v1/chat/query", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.Handler(), "/api/v1/chat/query", `{"language":"en"}`).Code)
}

func TestLanguagesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/languages/supported", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CommandA []languageInfo `json:"command_a_languages"`
		Nova     []languageInfo `json:"nova_languages"`
		Default  string         `json:"default_language"`
		Total    int            `json:"total_supported"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "en", resp.Default)
	assert.GreaterOrEqual(t, resp.Total, 20)
	assert.Equal(t, resp.Total, len(resp.CommandA)+len(resp.Nova))
	codes := make([]string, 0, len(resp.Nova))
	for _, e := range resp.Nova {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, "en")
}

func TestFeedbackEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv.Handler(), "/api/v1/feedback/submit",
		`{"message_id":"m1","feedback_type":"thumbs_up","categories":["helpful"],"comment":"clear answer","language_code":"en"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		Success     bool   `json:"success"`
		FeedbackID  string `json:"feedback_id"`
		PIIDetected bool   `json:"pii_detected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.FeedbackID)
	assert.False(t, resp.PIIDetected)

	rec = postJSON(t, srv.Handler(), "/api/v1/feedback/submit", `{"feedback_type":"amazing"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := postJSON(t, h, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)

	rec = postJSON(t, h, "/api/v1/chat/query", `{"query":"what causes warming","language":"en","session_id":"`+sess.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)
	var stored Session
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &stored))
	assert.Len(t, stored.Messages, 2)
	assert.Equal(t, "user", stored.Messages[0].Role)
	assert.Equal(t, "assistant", stored.Messages[1].Role)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+sess.ID, nil)
	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	goneRec := httptest.NewRecorder()
	h.ServeHTTP(goneRec, req)
	assert.Equal(t, http.StatusNotFound, goneRec.Code)
}

func TestUnknownSessionRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv.Handler(), "/api/v1/chat/query", `{"query":"hi","language":"en","session_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamEndpointEmitsStagesAndResult(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv.Handler(), "/api/v1/chat/stream", `{"query":"what causes warming","language":"en"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"progress"`)
	assert.Contains(t, body, `"stage":"route"`)
	assert.Contains(t, body, `"stage":"retrieve"`)
	assert.Contains(t, body, `"type":"complete"`)
	assert.Contains(t, body, "CO2 traps heat")
}

func TestInlineConversationHistoryReachesClassifier(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"query":"and what about methane","language":"en","conversation_history":[` +
		`{"role":"user","content":"what causes warming"},` +
		`{"role":"assistant","content":"CO2 traps heat."}]}`
	rec := postJSON(t, srv.Handler(), "/api/v1/chat/query", body)
	require.Equal(t, http.StatusOK, rec.Code)

	fc := srv.client.Orchestrator.Classifier.(*fakeClassifier)
	require.Len(t, fc.history, 2)
	assert.Equal(t, "user", fc.history[0].Role)
	assert.Equal(t, "what causes warming", fc.history[0].Content)
	assert.Equal(t, "assistant", fc.history[1].Role)
}

func TestStreamFlagOnQueryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postJSON(t, srv.Handler(), "/api/v1/chat/query", `{"query":"what causes warming","language":"en","stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"progress"`)
	assert.Contains(t, body, `"type":"complete"`)
	assert.Contains(t, body, "CO2 traps heat")
}

func TestStrictModeRejectsUnknownLanguage(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.client.Orchestrator.Router = router.New(srv.client.Table, router.WithStrict())
	rec := postJSON(t, srv.Handler(), "/api/v1/chat/query", `{"query":"hola","language":"xx"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_language")
}
