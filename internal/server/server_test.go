package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/nodereview/internal/analysis"
	"github.com/dshills/nodereview/internal/config"
	"github.com/dshills/nodereview/internal/inflight"
	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
)

type stubReviewer struct {
	env   review.Envelope
	calls atomic.Int32
	block chan struct{}
}

func (s *stubReviewer) ReviewFile(context.Context, string, string) review.Envelope {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return s.env
}

type stubChecker struct {
	findings []lint.Finding
}

func (s *stubChecker) Check(context.Context, string) []lint.Finding {
	return s.findings
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(rv *stubReviewer, ck *stubChecker) (*Server, *httptest.Server) {
	reg := inflight.NewRegistry()
	a := analysis.New(rv, ck, reg, []string{".js"}, quiet())
	s := New(rv, ck, a, reg, quiet())
	return s, httptest.NewServer(s.Handler())
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func successEnvelope() review.Envelope {
	return review.Succeeded(review.Result{Summary: "ok", Score: 9, Issues: []review.Issue{}, PositiveFeedback: []string{}}, review.Metadata{Provider: "fake"})
}

func TestReviewEndpoint(t *testing.T) {
	_, ts := newTestServer(&stubReviewer{env: successEnvelope()}, &stubChecker{})
	defer ts.Close()

	resp := post(t, ts.URL+"/api/review", `{"prompt":"const a = 1;"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var env review.Envelope
	decode(t, resp, &env)
	if !env.Success || env.Data.Score != 9 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestReviewEndpoint_FailureEnvelope(t *testing.T) {
	s, ts := newTestServer(&stubReviewer{env: review.Failed("provider down")}, &stubChecker{})
	defer ts.Close()

	resp := post(t, ts.URL+"/api/review", `{"prompt":"x()"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	decode(t, resp, &body)
	if body["success"] != false || body["error"] != "provider down" || body["fallback_score"] != float64(0) {
		t.Errorf("body = %v", body)
	}
	if st := s.Metrics().GetStats(); st.Reviews != 1 || st.ReviewsFailed != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestReviewEndpoint_BadRequests(t *testing.T) {
	_, ts := newTestServer(&stubReviewer{env: successEnvelope()}, &stubChecker{})
	defer ts.Close()

	resp := post(t, ts.URL+"/api/review", `{"prompt":`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/review")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", resp.StatusCode)
	}
}

func TestReviewEndpoint_InFlightConflict(t *testing.T) {
	block := make(chan struct{})
	rv := &stubReviewer{env: successEnvelope(), block: block}
	s, ts := newTestServer(rv, &stubChecker{})
	defer ts.Close()

	first := make(chan int, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/review", "application/json", strings.NewReader(`{"prompt":"same"}`))
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.registry.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first request never acquired its key")
		}
		time.Sleep(time.Millisecond)
	}

	resp := post(t, ts.URL+"/api/review", `{"prompt":"same"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", resp.StatusCode)
	}

	other := post(t, ts.URL+"/api/codecheck/node", `{"code":"same"}`)
	other.Body.Close()
	if other.StatusCode != http.StatusOK {
		t.Errorf("check of same code should not conflict with review, got %d", other.StatusCode)
	}

	close(block)
	if code := <-first; code != http.StatusOK {
		t.Errorf("first status = %d", code)
	}
	if s.registry.Len() != 0 {
		t.Error("key should be released after the request")
	}
	if st := s.Metrics().GetStats(); st.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", st.Rejected)
	}
}

func TestCheckEndpoint(t *testing.T) {
	dup := lint.Finding{RuleID: "no-empty", Severity: 2, Line: 1, Column: 8, Message: "Empty block statement."}
	ck := &stubChecker{findings: []lint.Finding{dup, dup, {Message: "Parsing error"}}}
	_, ts := newTestServer(&stubReviewer{}, ck)
	defer ts.Close()

	var raw checkResponse
	decode(t, post(t, ts.URL+"/api/codecheck/node", `{"code":"if (a) {}"}`), &raw)
	if len(raw.Response) != 3 {
		t.Errorf("raw findings = %d, want 3", len(raw.Response))
	}

	var normalized checkResponse
	decode(t, post(t, ts.URL+"/api/codecheck/node?normalize=true", `{"code":"if (a) {}"}`), &normalized)
	if len(normalized.Response) != 1 || normalized.Response[0].RuleID != "no-empty" {
		t.Errorf("normalized = %+v", normalized.Response)
	}
}

func TestCheckEndpoint_EmptyIsArray(t *testing.T) {
	_, ts := newTestServer(&stubReviewer{}, &stubChecker{findings: []lint.Finding{}})
	defer ts.Close()

	resp := post(t, ts.URL+"/api/codecheck/node", `{"code":""}`)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != `{"response":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	_, ts := newTestServer(&stubReviewer{env: successEnvelope()}, &stubChecker{findings: []lint.Finding{}})
	defer ts.Close()

	resp := post(t, ts.URL+"/api/analyze", `{"path":"src/app.js","code":"let a = 1;"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var v analysis.View
	decode(t, resp, &v)
	if v.Path != "src/app.js" || v.ReviewState != analysis.StateDone || v.CheckState != analysis.StateDone {
		t.Errorf("view = %+v", v)
	}

	resp = post(t, ts.URL+"/api/analyze", `{"path":"README.md","code":"# hi"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unsupported status = %d, want 422", resp.StatusCode)
	}

	resp = post(t, ts.URL+"/api/analyze", `{"code":"x"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing path status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(&stubReviewer{env: successEnvelope()}, &stubChecker{})
	defer ts.Close()

	post(t, ts.URL+"/api/review", `{"prompt":"a"}`).Body.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var st Stats
	decode(t, resp, &st)
	if st.Status != "ok" || st.Reviews != 1 || st.InFlight != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := New(&stubReviewer{env: successEnvelope()}, &stubChecker{}, nil, nil, quiet())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, config.ServerConfig{}) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
