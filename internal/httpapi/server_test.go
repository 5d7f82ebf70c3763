package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/auth"
	"horse.fit/newsdesk/internal/moderation"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/orchestrator"
)

const adminToken = "admin-secret-token"

type fakeStats struct {
	stats news.QueueStats
	err   error
}

func (f fakeStats) Stats(context.Context) (news.QueueStats, error) {
	return f.stats, f.err
}

type fakeCycles struct {
	triggered int
	pending   bool
	last      *orchestrator.CycleReport
	running   bool
}

func (f *fakeCycles) Trigger() bool {
	if f.pending {
		return false
	}
	f.pending = true
	f.triggered++
	return true
}

func (f *fakeCycles) Last() (orchestrator.CycleReport, bool) {
	if f.last == nil {
		return orchestrator.CycleReport{}, false
	}
	return *f.last, true
}

func (f *fakeCycles) Running() bool {
	return f.running
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) Ping(context.Context) error {
	return f.err
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()

	hash, err := auth.HashToken(adminToken)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	return NewServer(deps, zerolog.Nop(), Options{AdminTokenHash: hash})
}

func doRequest(t *testing.T, s *Server, method, path, token string) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, body
}

func TestHealthIsPublic(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{Health: fakeHealth{}})
	rec, body := doRequest(t, s, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK || body.Status != "success" {
		t.Fatalf("unexpected health response: %d %+v", rec.Code, body)
	}
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{Health: fakeHealth{err: errors.New("connection refused")}})
	rec, body := doRequest(t, s, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable || body.Status != "fail" {
		t.Fatalf("unexpected health response: %d %+v", rec.Code, body)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{Stats: fakeStats{}})
	cases := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "wrong", token: "not-the-token"},
	}
	for _, tc := range cases {
		rec, body := doRequest(t, s, http.MethodGet, "/api/v1/stats", tc.token)
		if rec.Code != http.StatusUnauthorized || body.Status != "fail" {
			t.Fatalf("%s: expected 401 fail, got %d %+v", tc.name, rec.Code, body)
		}
	}
}

func TestStatsIncludesQueueAndLastCycle(t *testing.T) {
	t.Parallel()

	cycles := &fakeCycles{
		running: true,
		last:    &orchestrator.CycleReport{ID: "cycle-1", Mode: "normal", Scraped: 4},
	}
	s := newTestServer(t, Deps{
		Stats:  fakeStats{stats: news.QueueStats{Raw: 10, InQueue: 2}},
		Cycles: cycles,
	})

	rec, body := doRequest(t, s, http.MethodGet, "/api/v1/stats", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	raw, err := json.Marshal(body.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	var got statsResponse
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if got.Queue.Raw != 10 || got.Queue.InQueue != 2 {
		t.Fatalf("unexpected queue stats: %+v", got.Queue)
	}
	if !got.Running || got.LastCycle == nil || got.LastCycle.ID != "cycle-1" || got.LastCycle.Scraped != 4 {
		t.Fatalf("unexpected cycle info: %+v", got)
	}
}

func TestStatsFailureIsInternalError(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{Stats: fakeStats{err: errors.New("boom")}})
	rec, body := doRequest(t, s, http.MethodGet, "/api/v1/stats", adminToken)
	if rec.Code != http.StatusInternalServerError || body.Status != "error" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
}

func TestLocksListsHeldPosts(t *testing.T) {
	t.Parallel()

	locks := moderation.NewLockManager()
	locks.Acquire(9, 100)
	locks.Acquire(3, 200)
	s := newTestServer(t, Deps{Locks: locks})

	rec, body := doRequest(t, s, http.MethodGet, "/api/v1/locks", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	data, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data: %#v", body.Data)
	}
	list, ok := data["locks"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected two locks, got %#v", data["locks"])
	}
	first := list[0].(map[string]any)
	if first["post_id"] != float64(3) || first["holder"] != float64(200) {
		t.Fatalf("expected locks sorted by post id, got %#v", list)
	}
}

func TestTriggerCycle(t *testing.T) {
	t.Parallel()

	cycles := &fakeCycles{}
	s := newTestServer(t, Deps{Cycles: cycles})

	rec, body := doRequest(t, s, http.MethodPost, "/api/v1/cycles", adminToken)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if data := body.Data.(map[string]any); data["triggered"] != true {
		t.Fatalf("expected trigger to be accepted, got %#v", data)
	}

	_, body = doRequest(t, s, http.MethodPost, "/api/v1/cycles", adminToken)
	if data := body.Data.(map[string]any); data["triggered"] != false {
		t.Fatalf("expected second trigger to coalesce, got %#v", data)
	}
	if cycles.triggered != 1 {
		t.Fatalf("expected one trigger, got %d", cycles.triggered)
	}
}

func TestUnknownRouteReturnsJSONFail(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{})
	rec, body := doRequest(t, s, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || body.Status != "fail" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
}
