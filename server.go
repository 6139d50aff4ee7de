package climatechat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/feedback"
	"github.com/verdantiq/climatechat/language"
	"github.com/verdantiq/climatechat/orchestrator"
	"github.com/verdantiq/climatechat/router"
	"github.com/verdantiq/climatechat/schema"
)

const defaultMaxBodyBytes = 1 << 20

// Server exposes the chat pipeline over HTTP.
type Server struct {
	client  *Client
	limiter *rate.Limiter
	maxBody int64
	httpSrv *http.Server
}

// NewServer builds the HTTP server around an assembled client.
func NewServer(client *Client) *Server {
	cfg := client.Cfg.Server
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	var limiter *rate.Limiter
	if cfg.RateLimitPerSec > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitPerSec)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), burst)
	}
	s := &Server{client: client, limiter: limiter, maxBody: maxBody}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat/query", s.handleQuery)
	mux.HandleFunc("POST /api/v1/chat/stream", s.handleStream)
	mux.HandleFunc("POST /api/v1/feedback/submit", s.handleFeedback)
	mux.HandleFunc("GET /api/v1/languages/supported", s.handleLanguages)
	mux.HandleFunc("POST /api/v1/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := s.middleware(mux)
	if cfg.RequestTimeoutMs > 0 {
		// Chat endpoints manage their own lifetime through the pipeline's
		// per-stage timeouts, and SSE needs an unbuffered writer; everything
		// else gets the request timeout.
		timeout := time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
		plain := http.TimeoutHandler(handler, timeout, `{"error":{"code":"timeout","message":"request timed out"}}`)
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/v1/chat/") {
				s.middleware(mux).ServeHTTP(w, r)
				return
			}
			plain.ServeHTTP(w, r)
		})
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout stays zero: the SSE endpoint holds its connection
		// open for the full pipeline run.
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	logger.Infof("server: listening on %s", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugf("server: %s %s request_id=%s took=%s", r.Method, r.URL.Path, reqID, time.Since(start))
	})
}

type queryRequest struct {
	Query               string        `json:"query"`
	Language            string        `json:"language,omitempty"`
	ConversationHistory []schema.Turn `json:"conversation_history,omitempty"`
	SessionID           string        `json:"session_id,omitempty"`
	Stream              bool          `json:"stream,omitempty"`
	SkipCache           bool          `json:"skip_cache,omitempty"`
}

type queryResponse struct {
	Success            bool              `json:"success"`
	Response           string            `json:"response"`
	Citations          []schema.Citation `json:"citations,omitempty"`
	FaithfulnessScore  float64           `json:"faithfulness_score"`
	ProcessingTime     float64           `json:"processing_time"`
	ModelUsed          string            `json:"model_used"`
	LanguageUsed       string            `json:"language_used"`
	UsedFallbackSearch bool              `json:"used_fallback_search"`
	FromCache          bool              `json:"from_cache"`
	RequestID          string            `json:"request_id"`
	SessionID          string            `json:"session_id,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, history, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	if req.Stream {
		s.streamTurn(w, r, req, history)
		return
	}
	start := time.Now()
	result, err := s.client.Orchestrator.Run(r.Context(), &orchestrator.Request{
		Query:        req.Query,
		LanguageCode: req.Language,
		History:      history,
		SkipCache:    req.SkipCache,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	s.recordTurn(req, result)
	writeJSON(w, http.StatusOK, toQueryResponse(result, req, requestID(w), time.Since(start)))
}

// handleStream runs the same pipeline but emits Server-Sent Events: one
// "progress" frame per pipeline transition, then a final "complete" frame
// (or an "error" frame). Every frame carries a matching "type" field.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, history, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	s.streamTurn(w, r, req, history)
}

func (s *Server) streamTurn(w http.ResponseWriter, r *http.Request, req *queryRequest, history []schema.Turn) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	start := time.Now()
	result, err := s.client.Orchestrator.Run(r.Context(), &orchestrator.Request{
		Query:        req.Query,
		LanguageCode: req.Language,
		History:      history,
		SkipCache:    req.SkipCache,
		Progress: func(stage orchestrator.Stage) {
			writeSSE(w, "progress", map[string]string{"type": "progress", "stage": string(stage)})
			flusher.Flush()
		},
	})
	if err != nil {
		stage := orchestrator.Stage("unknown")
		var pe *orchestrator.PipelineError
		if errors.As(err, &pe) {
			stage = pe.Stage
		}
		writeSSE(w, "error", map[string]string{"type": "error", "stage": string(stage), "message": publicErrorMessage(err)})
		flusher.Flush()
		return
	}
	s.recordTurn(req, result)
	writeSSE(w, "complete", struct {
		Type string `json:"type"`
		queryResponse
	}{Type: "complete", queryResponse: toQueryResponse(result, req, requestID(w), time.Since(start))})
	flusher.Flush()
}

type feedbackRequest struct {
	SessionID    string   `json:"session_id,omitempty"`
	MessageID    string   `json:"message_id,omitempty"`
	FeedbackType string   `json:"feedback_type"`
	Categories   []string `json:"categories,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	LanguageCode string   `json:"language_code,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	rec := feedback.Record{
		SessionID:  req.SessionID,
		MessageID:  req.MessageID,
		Rating:     feedback.Rating(req.FeedbackType),
		Categories: req.Categories,
		Comment:    req.Comment,
		Language:   req.LanguageCode,
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_feedback", err.Error())
		return
	}
	if err := s.client.Feedback.Save(r.Context(), &rec); err != nil {
		logger.Errorf("server: save feedback failed: %v", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "could not store feedback")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":      true,
		"feedback_id":  rec.ID,
		"pii_detected": rec.PIIDetected,
		"request_id":   requestID(w),
	})
}

type languageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func languageInfos(entries []language.Entry) []languageInfo {
	out := make([]languageInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, languageInfo{Code: e.Code, Name: e.DisplayName})
	}
	return out
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"command_a_languages": languageInfos(s.client.Table.ByClass(language.CommandA)),
		"nova_languages":      languageInfos(s.client.Table.ByClass(language.NovaDefault)),
		"default_language":    s.client.Table.Default().Code,
		"total_supported":     s.client.Table.Len(),
	})
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, _ *http.Request) {
	sess := s.client.Sessions.Create()
	if max := s.client.Cfg.Session.MaxCount; max > 0 {
		if err := s.client.Sessions.Clean(max); err != nil {
			logger.Warnf("server: session clean failed: %v", err)
		}
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.client.Sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "no such session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if !s.client.Sessions.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session_not_found", "no such session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*queryRequest, []schema.Turn, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return nil, nil, false
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return nil, nil, false
	}
	var history []schema.Turn
	if req.SessionID != "" {
		sess, ok := s.client.Sessions.Get(req.SessionID)
		if !ok {
			writeError(w, http.StatusNotFound, "session_not_found", "no such session")
			return nil, nil, false
		}
		history = sess.Turns()
	}
	// Inline history from the client counts too; it follows any stored
	// session turns.
	history = append(history, req.ConversationHistory...)
	return &req, history, true
}

func (s *Server) recordTurn(req *queryRequest, result *schema.PipelineResult) {
	if req.SessionID == "" {
		return
	}
	now := time.Now()
	s.client.Sessions.AddMessage(req.SessionID, ChatMessage{Role: "user", Content: req.Query, Language: req.Language, Timestamp: now})
	s.client.Sessions.AddMessage(req.SessionID, ChatMessage{Role: "assistant", Content: result.ResponseText, Language: result.LanguageUsed, Timestamp: now})
}

func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var unknownLang *router.UnknownLanguageError
	if errors.As(err, &unknownLang) {
		writeError(w, http.StatusBadRequest, "unknown_language", unknownLang.Error())
		return
	}
	var pe *orchestrator.PipelineError
	if errors.As(err, &pe) {
		logger.Errorf("server: pipeline stage %s failed, request_id=%s, err: %v", pe.Stage, requestID(w), pe.Err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("%s_failed", pe.Stage), publicErrorMessage(err))
		return
	}
	logger.Errorf("server: pipeline failed, request_id=%s, err: %v", requestID(w), err)
	writeError(w, http.StatusInternalServerError, "internal_error", "the assistant could not answer right now")
}

// publicErrorMessage keeps backend details out of user-facing errors.
func publicErrorMessage(err error) string {
	var pe *orchestrator.PipelineError
	if errors.As(err, &pe) {
		switch pe.Stage {
		case orchestrator.StageRetrieve:
			return "could not search the knowledge base, please try again"
		case orchestrator.StageGenerate:
			return "could not generate an answer, please try again"
		}
	}
	return "the assistant could not answer right now"
}

func toQueryResponse(result *schema.PipelineResult, req *queryRequest, reqID string, elapsed time.Duration) queryResponse {
	return queryResponse{
		Success:            true,
		Response:           result.ResponseText,
		Citations:          result.Citations,
		FaithfulnessScore:  result.FaithfulnessScore,
		ProcessingTime:     elapsed.Seconds(),
		ModelUsed:          result.ModelUsed,
		LanguageUsed:       result.LanguageUsed,
		UsedFallbackSearch: result.UsedFallbackSearch,
		FromCache:          result.FromCache,
		RequestID:          reqID,
		SessionID:          req.SessionID,
	}
}

// requestID reads the ID the middleware stamped on the response headers.
func requestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-Id")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("server: encode response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}

func writeSSE(w http.ResponseWriter, event string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw)
}
