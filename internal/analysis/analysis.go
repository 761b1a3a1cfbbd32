package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dshills/nodereview/internal/inflight"
	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/review"
	"github.com/dshills/nodereview/internal/source"
)

// State is the lifecycle of one half (review or check) of an analysis.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

var (
	// ErrUnsupported is returned for files outside the supported languages.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrInFlight is returned when the file is already being analyzed.
	ErrInFlight = errors.New("analysis already in progress")
)

// ReviewService produces a review envelope for a named source file.
type ReviewService interface {
	ReviewFile(ctx context.Context, name, source string) review.Envelope
}

// CheckService produces raw lint findings. It must not fail.
type CheckService interface {
	Check(ctx context.Context, source string) []lint.Finding
}

// View is what a caller displays for one file.
type View struct {
	Path        string           `json:"path"`
	Name        string           `json:"name"`
	ReviewState State            `json:"reviewState"`
	CheckState  State            `json:"checkState"`
	Review      *review.Envelope `json:"review,omitempty"`
	Findings    []lint.Finding   `json:"findings"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Complete reports whether both halves reached a terminal state.
func (v View) Complete() bool {
	terminal := func(s State) bool { return s == StateDone || s == StateFailed }
	return terminal(v.ReviewState) && terminal(v.CheckState)
}

// Analyzer runs the review and the static check for a file and keeps the
// latest View per path in memory.
type Analyzer struct {
	reviewer   ReviewService
	checker    CheckService
	registry   *inflight.Registry
	extensions []string
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	views map[string]View
}

// New creates an Analyzer. registry may be shared with other entry points
// so that the same file is never reviewed twice at once.
func New(r ReviewService, c CheckService, registry *inflight.Registry, extensions []string, logger *slog.Logger) *Analyzer {
	if registry == nil {
		registry = inflight.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		reviewer:   r,
		checker:    c,
		registry:   registry,
		extensions: extensions,
		logger:     logger,
		now:        time.Now,
		views:      make(map[string]View),
	}
}

// Analyze reviews and checks f concurrently. A file whose review already
// succeeded is returned from memory unless force is set.
func (a *Analyzer) Analyze(ctx context.Context, f source.File, force bool) (View, error) {
	if !source.Supported(f.Name, a.extensions) {
		return View{}, ErrUnsupported
	}

	a.mu.Lock()
	if v, ok := a.views[f.Path]; ok && !force && v.ReviewState == StateDone && v.CheckState == StateDone {
		a.mu.Unlock()
		return v, nil
	}
	a.mu.Unlock()

	releaseReview, ok := a.registry.TryAcquire(inflight.Key{Subject: f.Path, Kind: inflight.KindReview})
	if !ok {
		return View{}, ErrInFlight
	}
	defer releaseReview()
	releaseCheck, ok := a.registry.TryAcquire(inflight.Key{Subject: f.Path, Kind: inflight.KindCheck})
	if !ok {
		return View{}, ErrInFlight
	}
	defer releaseCheck()

	a.store(View{
		Path:        f.Path,
		Name:        f.Name,
		ReviewState: StateFetching,
		CheckState:  StateFetching,
		Findings:    []lint.Finding{},
		UpdatedAt:   a.now(),
	})
	a.logger.Debug("analysis started", "path", f.Path)

	var (
		wg       sync.WaitGroup
		env      review.Envelope
		findings []lint.Finding
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() {
			if p := recover(); p != nil {
				a.logger.Error("review panicked", "path", f.Path, "panic", p)
				env = review.Failed(fmt.Sprintf("internal error: %v", p))
			}
		}()
		env = a.reviewer.ReviewFile(ctx, f.Path, f.Content)
	}()
	go func() {
		defer wg.Done()
		defer func() {
			if p := recover(); p != nil {
				a.logger.Error("check panicked", "path", f.Path, "panic", p)
				findings = nil
			}
		}()
		findings = a.checker.Check(ctx, f.Content)
	}()
	wg.Wait()

	v := View{
		Path:        f.Path,
		Name:        f.Name,
		ReviewState: StateDone,
		CheckState:  StateDone,
		Review:      &env,
		Findings:    lint.Normalize(findings),
		UpdatedAt:   a.now(),
	}
	if !env.Success {
		v.ReviewState = StateFailed
	}
	a.store(v)
	a.logger.Info("analysis finished", "path", f.Path, "review", v.ReviewState, "score", env.Score(), "findings", len(v.Findings))
	return v, nil
}

// View returns the stored view for path. A path never analyzed yields an
// idle view and false.
func (a *Analyzer) View(path string) (View, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.views[path]; ok {
		return v, true
	}
	return View{
		Path:        path,
		Name:        filepath.Base(path),
		ReviewState: StateIdle,
		CheckState:  StateIdle,
		Findings:    []lint.Finding{},
	}, false
}

// Views returns all stored views ordered by path.
func (a *Analyzer) Views() []View {
	a.mu.Lock()
	out := make([]View, 0, len(a.views))
	for _, v := range a.views {
		out = append(out, v)
	}
	a.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Reset forgets every stored view.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.views = make(map[string]View)
	a.mu.Unlock()
}

func (a *Analyzer) store(v View) {
	a.mu.Lock()
	a.views[v.Path] = v
	a.mu.Unlock()
}
