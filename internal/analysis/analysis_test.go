package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/nodereview/internal/inflight"
	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
	"github.com/dshills/nodereview/internal/source"
)

type fakeReviewer struct {
	env   review.Envelope
	calls atomic.Int32
	block chan struct{}
}

func (f *fakeReviewer) ReviewFile(context.Context, string, string) review.Envelope {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.env
}

type fakeChecker struct {
	findings []lint.Finding
	calls    atomic.Int32
}

func (f *fakeChecker) Check(context.Context, string) []lint.Finding {
	f.calls.Add(1)
	return f.findings
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func success(score int) review.Envelope {
	return review.Succeeded(review.Result{Score: score, Issues: []review.Issue{}}, review.Metadata{Provider: "fake"})
}

func TestAnalyze_Success(t *testing.T) {
	dup := lint.Finding{RuleID: "no-unused-vars", Line: 1, Column: 5, Message: "unused"}
	rv := &fakeReviewer{env: success(8)}
	ck := &fakeChecker{findings: []lint.Finding{dup, dup, {Message: "Parsing error"}}}
	a := New(rv, ck, nil, []string{".js"}, quiet())

	v, err := a.Analyze(context.Background(), source.NewFile("src/app.js", "let x;"), false)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if v.ReviewState != StateDone || v.CheckState != StateDone || !v.Complete() {
		t.Errorf("states = %s/%s", v.ReviewState, v.CheckState)
	}
	if v.Review == nil || v.Review.Score() != 8 {
		t.Errorf("Review = %+v", v.Review)
	}
	if len(v.Findings) != 1 {
		t.Errorf("Findings should be normalized, got %d", len(v.Findings))
	}
	if stored, ok := a.View("src/app.js"); !ok || stored.ReviewState != StateDone {
		t.Errorf("stored view = %+v, %v", stored, ok)
	}
}

func TestAnalyze_ReviewFailure(t *testing.T) {
	rv := &fakeReviewer{env: review.Failed("provider down")}
	a := New(rv, &fakeChecker{}, nil, []string{".js"}, quiet())

	v, err := a.Analyze(context.Background(), source.NewFile("a.js", "x()"), false)
	if err != nil {
		t.Fatal(err)
	}
	if v.ReviewState != StateFailed || v.CheckState != StateDone {
		t.Errorf("states = %s/%s", v.ReviewState, v.CheckState)
	}
	if v.Review.Score() != 0 || v.Findings == nil {
		t.Errorf("view = %+v", v)
	}

	// A failed review is retried on the next request without force.
	rv.env = success(6)
	v, _ = a.Analyze(context.Background(), source.NewFile("a.js", "x()"), false)
	if v.ReviewState != StateDone || rv.calls.Load() != 2 {
		t.Errorf("retry: state = %s, calls = %d", v.ReviewState, rv.calls.Load())
	}
}

type panickyReviewer struct{}

func (panickyReviewer) ReviewFile(context.Context, string, string) review.Envelope {
	panic("boom")
}

func TestAnalyze_ReviewPanicBecomesFailure(t *testing.T) {
	reg := inflight.NewRegistry()
	a := New(panickyReviewer{}, &fakeChecker{}, reg, []string{".js"}, quiet())

	v, err := a.Analyze(context.Background(), source.NewFile("p.js", "x()"), false)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if v.ReviewState != StateFailed || v.CheckState != StateDone {
		t.Errorf("states = %s/%s", v.ReviewState, v.CheckState)
	}
	if v.Review == nil || v.Review.Success || !strings.Contains(v.Review.Error, "boom") {
		t.Errorf("Review = %+v", v.Review)
	}
	if v.Review.Score() != 0 {
		t.Errorf("Score = %d, want fallback 0", v.Review.Score())
	}
	// The in-flight slot must be released after the panic.
	release, ok := reg.TryAcquire(inflight.Key{Subject: "p.js", Kind: inflight.KindReview})
	if !ok {
		t.Fatal("review slot still held after panic")
	}
	release()
}

func TestView_UnknownPathIsIdle(t *testing.T) {
	a := New(&fakeReviewer{env: success(5)}, &fakeChecker{}, nil, []string{".js"}, quiet())

	v, ok := a.View("lib/never.js")
	if ok {
		t.Error("ok = true for a path never analyzed")
	}
	if v.ReviewState != StateIdle || v.CheckState != StateIdle {
		t.Errorf("states = %s/%s, want idle", v.ReviewState, v.CheckState)
	}
	if v.Path != "lib/never.js" || v.Name != "never.js" || v.Findings == nil || v.Review != nil {
		t.Errorf("view = %+v", v)
	}
	if v.Complete() {
		t.Error("idle view must not be complete")
	}
}

func TestAnalyze_Unsupported(t *testing.T) {
	rv := &fakeReviewer{env: success(9)}
	ck := &fakeChecker{}
	a := New(rv, ck, nil, []string{".js"}, quiet())

	for _, name := range []string{"README.md", "main.go", "Dockerfile"} {
		_, err := a.Analyze(context.Background(), source.NewFile(name, "x"), false)
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: err = %v, want ErrUnsupported", name, err)
		}
	}
	if rv.calls.Load() != 0 || ck.calls.Load() != 0 {
		t.Error("nothing should be dispatched for unsupported files")
	}
}

func TestAnalyze_DoneNotRetriggered(t *testing.T) {
	rv := &fakeReviewer{env: success(9)}
	ck := &fakeChecker{}
	a := New(rv, ck, nil, []string{".js"}, quiet())
	f := source.NewFile("a.js", "x()")

	a.Analyze(context.Background(), f, false)
	a.Analyze(context.Background(), f, false)
	if rv.calls.Load() != 1 || ck.calls.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", rv.calls.Load(), ck.calls.Load())
	}

	a.Analyze(context.Background(), f, true)
	if rv.calls.Load() != 2 {
		t.Errorf("force should re-run, calls = %d", rv.calls.Load())
	}
}

func TestAnalyze_InFlight(t *testing.T) {
	block := make(chan struct{})
	rv := &fakeReviewer{env: success(7), block: block}
	reg := inflight.NewRegistry()
	a := New(rv, &fakeChecker{}, reg, []string{".js"}, quiet())
	f := source.NewFile("slow.js", "x()")

	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(context.Background(), f, false)
		done <- err
	}()

	fetching := func() bool {
		v, ok := a.View("slow.js")
		return ok && v.ReviewState == StateFetching
	}
	deadline := time.Now().Add(2 * time.Second)
	for !fetching() {
		if time.Now().After(deadline) {
			t.Fatal("first analysis never started fetching")
		}
		time.Sleep(time.Millisecond)
	}

	if !reg.Active(inflight.Key{Subject: "slow.js", Kind: inflight.KindReview}) {
		t.Error("review key should be held while fetching")
	}
	if _, err := a.Analyze(context.Background(), f, true); !errors.Is(err, ErrInFlight) {
		t.Errorf("err = %v, want ErrInFlight", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("registry should be empty, has %v", reg.Snapshot())
	}
	if rv.calls.Load() != 1 {
		t.Errorf("reviewer calls = %d, want 1", rv.calls.Load())
	}
}

func TestViewsAndReset(t *testing.T) {
	a := New(&fakeReviewer{env: success(5)}, &fakeChecker{}, nil, []string{".js"}, quiet())
	a.Analyze(context.Background(), source.NewFile("b.js", "b"), false)
	a.Analyze(context.Background(), source.NewFile("a.js", "a"), false)

	views := a.Views()
	if len(views) != 2 || views[0].Path != "a.js" {
		t.Errorf("Views = %+v", views)
	}
	a.Reset()
	if len(a.Views()) != 0 {
		t.Error("Reset should clear views")
	}
}
