package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sagarsarangi/startup-check/internal/pipeline"
	"github.com/sagarsarangi/startup-check/internal/store"
	"github.com/sagarsarangi/startup-check/internal/telemetry"
	"github.com/sagarsarangi/startup-check/models"
	"github.com/sagarsarangi/startup-check/provider"
)

const handlerCompletion = `{
  "overallScore": 7, "marketPotential": 8, "innovation": 6, "feasibility": 7,
  "strengths": ["a"], "concerns": ["b"], "recommendations": ["c"],
  "radarChart": [
    {"subject": "Market Size", "score": 8},
    {"subject": "Competition", "score": 5},
    {"subject": "Innovation", "score": 6},
    {"subject": "Scalability", "score": 7},
    {"subject": "Technical Feasibility", "score": 7},
    {"subject": "Market Timing", "score": 8}
  ],
  "competitorScores": [
    {"name": "A Very Long Competitor Brand Name LLC", "score": 8},
    {"name": "Initech", "score": 7},
    {"name": "Umbrella", "score": 5}
  ],
  "marketInsights": {
    "marketSize": {"value": "$1B", "source": "s", "detail": "d"},
    "growthRate": {"value": "10%", "trend": "t", "source": "s"},
    "fundingActivity": {"value": "$10M", "last5Years": "l", "topInvestors": "i"}
  }
}`

type stubProvider struct {
	text string
	err  error
}

func (s *stubProvider) Complete(ctx context.Context, prompt string) (provider.Completion, error) {
	if s.err != nil {
		return provider.Completion{}, s.err
	}
	return provider.Completion{Text: s.text}, nil
}

func setupHandler(t *testing.T, p provider.Provider) (*AnalysesHandler, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	ctrl := pipeline.New(p, st, telemetry.New(prometheus.NewRegistry()))
	return &AnalysesHandler{Controller: ctrl, Store: st}, st
}

func newRequest(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("session_id", "s1")
	return ctx, rec
}

func TestSubmitCreatesAnalysis(t *testing.T) {
	h, st := setupHandler(t, &stubProvider{text: handlerCompletion})

	ctx, rec := newRequest(t, http.MethodPost, "/api/analyses",
		`{"name":"Acme","category":"SaaS","description":"B2B analytics"}`)
	if err := h.submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/analyses/latest" {
		t.Fatalf("location header: got %q", loc)
	}

	var resp analysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Input.Name != "Acme" {
		t.Fatalf("input echoed wrong: %+v", resp.Input)
	}
	if resp.Result.OverallScore != 7 {
		t.Fatalf("result: %+v", resp.Result)
	}

	if _, err := st.Load(context.Background(), "s1"); err != nil {
		t.Fatalf("pair not persisted: %v", err)
	}
}

func TestSubmitRejectsEmptyField(t *testing.T) {
	h, _ := setupHandler(t, &stubProvider{text: handlerCompletion})

	ctx, _ := newRequest(t, http.MethodPost, "/api/analyses",
		`{"name":"Acme","category":"","description":"d"}`)
	err := h.submit(ctx)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", httpErr.Code)
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		provider   *stubProvider
		wantStatus int
		wantKind   pipeline.ErrorKind
	}{
		{"missing credential", &stubProvider{err: provider.ErrMissingCredential}, http.StatusServiceUnavailable, pipeline.KindMissingCredential},
		{"upstream error", &stubProvider{err: &provider.TransportError{Status: 500, Body: "boom"}}, http.StatusBadGateway, pipeline.KindTransportFailure},
		{"empty reply", &stubProvider{err: provider.ErrEmptyResponse}, http.StatusBadGateway, pipeline.KindEmptyResponse},
		{"refusal text", &stubProvider{text: "I cannot help with that."}, http.StatusBadGateway, pipeline.KindParseFailure},
		{"schema violation", &stubProvider{text: `{"overallScore": 7}`}, http.StatusBadGateway, pipeline.KindSchemaFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := setupHandler(t, tc.provider)

			ctx, rec := newRequest(t, http.MethodPost, "/api/analyses",
				`{"name":"Acme","category":"SaaS","description":"d"}`)
			if err := h.submit(ctx); err != nil {
				t.Fatalf("submit: %v", err)
			}
			if rec.Code != tc.wantStatus {
				t.Fatalf("status: got %d, want %d", rec.Code, tc.wantStatus)
			}

			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Kind != tc.wantKind {
				t.Fatalf("kind: got %s, want %s", resp.Kind, tc.wantKind)
			}
			if resp.Input == nil || resp.Input.Name != "Acme" {
				t.Fatalf("failed submit must echo the input back: %+v", resp.Input)
			}
			if strings.Contains(resp.Error, "boom") {
				t.Fatalf("upstream detail leaked into the response: %q", resp.Error)
			}
		})
	}
}

func TestLatestAbsent(t *testing.T) {
	h, _ := setupHandler(t, &stubProvider{text: handlerCompletion})

	ctx, _ := newRequest(t, http.MethodGet, "/api/analyses/latest", "")
	err := h.latest(ctx)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", httpErr.Code)
	}
}

func TestLatestTruncatesCompetitorNames(t *testing.T) {
	h, st := setupHandler(t, &stubProvider{text: handlerCompletion})

	ctx, _ := newRequest(t, http.MethodPost, "/api/analyses",
		`{"name":"Acme","category":"SaaS","description":"d"}`)
	if err := h.submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, rec := newRequest(t, http.MethodGet, "/api/analyses/latest", "")
	if err := h.latest(ctx); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp analysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, c := range resp.Result.CompetitorScore {
		if utf8.RuneCountInString(c.Name) > displayNameLimit {
			t.Fatalf("competitor name not truncated: %q", c.Name)
		}
	}

	// storage keeps the full name
	pair, err := st.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pair.Result.CompetitorScore[0].Name != "A Very Long Competitor Brand Name LLC" {
		t.Fatalf("stored name was truncated: %q", pair.Result.CompetitorScore[0].Name)
	}
}

func TestStatusLifecycle(t *testing.T) {
	h, _ := setupHandler(t, &stubProvider{err: provider.ErrEmptyResponse})

	ctx, rec := newRequest(t, http.MethodGet, "/api/analyses/status", "")
	if err := h.status(ctx); err != nil {
		t.Fatalf("status: %v", err)
	}
	var st pipeline.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.State != pipeline.StateIdle {
		t.Fatalf("fresh session: got %s, want %s", st.State, pipeline.StateIdle)
	}

	ctx, _ = newRequest(t, http.MethodPost, "/api/analyses",
		`{"name":"Acme","category":"SaaS","description":"d"}`)
	if err := h.submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, rec = newRequest(t, http.MethodGet, "/api/analyses/status", "")
	if err := h.status(ctx); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.State != pipeline.StateFailed {
		t.Fatalf("after failure: got %s, want %s", st.State, pipeline.StateFailed)
	}
	if st.LastInput.Name != "Acme" {
		t.Fatalf("failed run must keep the input: %+v", st.LastInput)
	}
}

func TestClearRemovesPair(t *testing.T) {
	h, st := setupHandler(t, &stubProvider{text: handlerCompletion})

	ctx, _ := newRequest(t, http.MethodPost, "/api/analyses",
		`{"name":"Acme","category":"SaaS","description":"d"}`)
	if err := h.submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, rec := newRequest(t, http.MethodDelete, "/api/analyses/latest", "")
	if err := h.clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, err := st.Load(context.Background(), "s1"); !errors.Is(err, models.ErrNoAnalysis) {
		t.Fatalf("pair should be gone, got %v", err)
	}
}

func TestWithSessionIssuesCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/analyses/status", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	var captured string
	next := func(c echo.Context) error {
		captured, _ = c.Get("session_id").(string)
		return nil
	}
	if err := withSession(next)(ctx); err != nil {
		t.Fatalf("withSession: %v", err)
	}
	if captured == "" {
		t.Fatalf("expected a session id to be set")
	}

	found := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookie {
			found = true
			if cookie.Value != captured {
				t.Fatalf("cookie value mismatch: %q vs %q", cookie.Value, captured)
			}
			if !cookie.HttpOnly {
				t.Fatalf("session cookie must be HttpOnly")
			}
		}
	}
	if !found {
		t.Fatalf("expected %s cookie to be issued", sessionCookie)
	}
}

func TestWithSessionReusesCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/analyses/status", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "existing-id"})
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	var captured string
	next := func(c echo.Context) error {
		captured, _ = c.Get("session_id").(string)
		return nil
	}
	if err := withSession(next)(ctx); err != nil {
		t.Fatalf("withSession: %v", err)
	}
	if captured != "existing-id" {
		t.Fatalf("expected existing session to be reused, got %q", captured)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no new cookie should be issued")
	}
}
