package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brandreach/outreach-platform/internal/middleware"
	"github.com/brandreach/outreach-platform/internal/model"
	"github.com/brandreach/outreach-platform/internal/outreach"
	"github.com/brandreach/outreach-platform/internal/service"
	"github.com/brandreach/outreach-platform/pkg/logger"
)

const testSecret = "test-secret"

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	server   *httptest.Server
	threads  *service.ThreadService
	outreach *service.OutreachService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := &logger.Logger{Logger: zap.NewNop()}

	threads := service.NewThreadService(nil, log)
	outreachSvc := service.NewOutreachService(threads, nil, outreach.DefaultPolicy, log)
	outreachSvc.WithClock(func() time.Time { return testNow })

	threadHandler := NewThreadHandler(threads, log)
	outreachHandler := NewOutreachHandler(outreachSvc, log)
	draftHandler := NewDraftHandler(service.NewDraftService(nil, log), log)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(testSecret))
		r.Post("/outreach", outreachHandler.Compose)
		r.Post("/outreach/draft", draftHandler.Draft)
		r.Get("/influencers/{id}/eligibility", outreachHandler.Eligibility)
		r.Route("/threads", func(r chi.Router) {
			r.Get("/", threadHandler.List)
			r.Get("/{id}", threadHandler.Get)
			r.Get("/{id}/messages", threadHandler.Messages)
		})
		r.With(middleware.RequireScope(middleware.ScopeRelay)).
			Post("/replies", outreachHandler.RecordReply)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testEnv{server: server, threads: threads, outreach: outreachSvc}
}

func signToken(t *testing.T, brandID string, scopes ...string) string {
	t.Helper()
	claims := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		BrandID: brandID,
		Scopes:  scopes,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestComposeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/outreach", "", &model.ComposeRequest{
		InfluencerIDs: []string{"inf-a"},
		Body:          "hello",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestComposeFirstContact(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "brand-1")

	resp := env.do(t, http.MethodPost, "/api/v1/outreach", token, &model.ComposeRequest{
		InfluencerIDs: []string{"inf-a", "inf-b"},
		Subject:       "Collab",
		Body:          "hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[model.ComposeResponse](t, resp)
	require.Equal(t, []string{"inf-a", "inf-b"}, result.Sent)
	require.Empty(t, result.Skipped)
	require.Empty(t, result.Failed)
}

func TestComposeValidation(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "brand-1")

	tests := []struct {
		name string
		req  model.ComposeRequest
	}{
		{"no recipients", model.ComposeRequest{Body: "hello"}},
		{"empty body", model.ComposeRequest{InfluencerIDs: []string{"inf-a"}}},
		{"duplicate recipients", model.ComposeRequest{InfluencerIDs: []string{"inf-a", "inf-a"}, Body: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/v1/outreach", token, &tt.req)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestComposeAllBlockedReturns422(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "brand-1")

	first := env.do(t, http.MethodPost, "/api/v1/outreach", token, &model.ComposeRequest{
		InfluencerIDs: []string{"inf-a"},
		Body:          "hello",
	})
	require.Equal(t, http.StatusOK, first.StatusCode)

	// Immediate follow-up is inside the 48h cooldown.
	second := env.do(t, http.MethodPost, "/api/v1/outreach", token, &model.ComposeRequest{
		InfluencerIDs: []string{"inf-a"},
		Body:          "hello again",
	})
	require.Equal(t, http.StatusUnprocessableEntity, second.StatusCode)

	body := decode[map[string]json.RawMessage](t, second)
	var reason string
	require.NoError(t, json.Unmarshal(body["error"], &reason))
	require.Contains(t, reason, "2-day rule")
}

func TestEligibilityEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "brand-1")

	resp := env.do(t, http.MethodGet, "/api/v1/influencers/inf-a/eligibility", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[model.Eligibility](t, resp)
	require.Equal(t, model.StatusAllowed, result.Status)
	require.Equal(t, "First message allowed.", result.Reason)

	send := env.do(t, http.MethodPost, "/api/v1/outreach", token, &model.ComposeRequest{
		InfluencerIDs: []string{"inf-a"},
		Body:          "hello",
	})
	require.Equal(t, http.StatusOK, send.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/influencers/inf-a/eligibility", token, nil)
	result = decode[model.Eligibility](t, resp)
	require.Equal(t, model.StatusCooldown, result.Status)
	require.NotNil(t, result.RetryAfter)
	require.Equal(t, testNow.Add(48*time.Hour), result.RetryAfter.UTC())
}

func TestRecordReplyRequiresRelayScope(t *testing.T) {
	env := newTestEnv(t)

	req := &model.RecordReplyRequest{
		BrandID:      "brand-1",
		InfluencerID: "inf-a",
		Body:         "interested!",
	}

	noScope := env.do(t, http.MethodPost, "/api/v1/replies", signToken(t, "brand-1"), req)
	require.Equal(t, http.StatusForbidden, noScope.StatusCode)

	withScope := env.do(t, http.MethodPost, "/api/v1/replies", signToken(t, "", middleware.ScopeRelay), req)
	require.Equal(t, http.StatusCreated, withScope.StatusCode)

	msg := decode[model.Message](t, withScope)
	require.Equal(t, model.DirectionIncoming, msg.Direction)
}

func TestReplyUnlocksBlockedThread(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "brand-1")
	relayToken := signToken(t, "", middleware.ScopeRelay)

	// Exhaust the two unanswered sends.
	ctxReq := &model.ComposeRequest{InfluencerIDs: []string{"inf-a"}, Body: "one"}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/outreach", token, ctxReq).StatusCode)
	env.outreach.WithClock(func() time.Time { return testNow.Add(48 * time.Hour) })
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/outreach", token, ctxReq).StatusCode)

	blocked := env.do(t, http.MethodGet, "/api/v1/influencers/inf-a/eligibility", token, nil)
	require.Equal(t, model.StatusBlocked, decode[model.Eligibility](t, blocked).Status)

	reply := env.do(t, http.MethodPost, "/api/v1/replies", relayToken, &model.RecordReplyRequest{
		BrandID:      "brand-1",
		InfluencerID: "inf-a",
		Body:         "yes, let's talk",
	})
	require.Equal(t, http.StatusCreated, reply.StatusCode)

	unlocked := env.do(t, http.MethodGet, "/api/v1/influencers/inf-a/eligibility", token, nil)
	require.Equal(t, model.StatusAllowed, decode[model.Eligibility](t, unlocked).Status)
}

func TestThreadEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "brand-1")

	send := env.do(t, http.MethodPost, "/api/v1/outreach", token, &model.ComposeRequest{
		InfluencerIDs: []string{"inf-a"},
		Body:          "hello",
	})
	require.Equal(t, http.StatusOK, send.StatusCode)

	list := env.do(t, http.MethodGet, "/api/v1/threads", token, nil)
	require.Equal(t, http.StatusOK, list.StatusCode)
	threads := decode[model.ListThreadsResponse](t, list)
	require.Equal(t, 1, threads.Total)
	threadID := threads.Threads[0].ID

	msgs := env.do(t, http.MethodGet, "/api/v1/threads/"+threadID+"/messages", token, nil)
	require.Equal(t, http.StatusOK, msgs.StatusCode)
	history := decode[model.ListMessagesResponse](t, msgs)
	require.Equal(t, 1, history.Total)
	require.Equal(t, model.DirectionOutgoing, history.Messages[0].Direction)

	// Another brand cannot see the thread.
	other := env.do(t, http.MethodGet, "/api/v1/threads/"+threadID+"/messages", signToken(t, "brand-2"), nil)
	require.Equal(t, http.StatusNotFound, other.StatusCode)

	// Malformed thread IDs are rejected before lookup.
	bad := env.do(t, http.MethodGet, "/api/v1/threads/not-a-uuid/messages", token, nil)
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestDraftUnavailable(t *testing.T) {
	env := newTestEnv(t)
	token := signToken(t, "brand-1")

	resp := env.do(t, http.MethodPost, "/api/v1/outreach/draft", token, &model.DraftRequest{Brief: "fitness"})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	missing := env.do(t, http.MethodPost, "/api/v1/outreach/draft", token, &model.DraftRequest{})
	require.Equal(t, http.StatusBadRequest, missing.StatusCode)
}
