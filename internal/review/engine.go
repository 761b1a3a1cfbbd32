package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/nodereview/internal/cache"
	"github.com/dshills/nodereview/internal/config"
	"github.com/dshills/nodereview/internal/providers"
	"github.com/dshills/nodereview/internal/redact"
)

// Options tunes a Reviewer. The zero value sends source untruncated and
// unredacted with provider defaults.
type Options struct {
	MaxInputChars    int
	MaxTokens        int
	Temperature      float64
	FrequencyPenalty float64
	RedactSecrets    bool
	RedactPaths      []string
}

// OptionsFromConfig extracts reviewer options from cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		MaxInputChars:    cfg.Review.MaxInputChars,
		MaxTokens:        cfg.Provider.MaxTokens,
		Temperature:      cfg.Provider.Temperature,
		FrequencyPenalty: cfg.Provider.FrequencyPenalty,
		RedactSecrets:    cfg.Privacy.RedactSecrets,
		RedactPaths:      cfg.Privacy.RedactPaths,
	}
}

// Reviewer runs source code through completion, sanitizing and validation.
// It is safe for concurrent use.
type Reviewer struct {
	completer providers.Completer
	initErr   error
	cache     *cache.Cache
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewReviewer creates a Reviewer around an existing completer. cache may be
// nil and logger defaults to slog.Default().
func NewReviewer(c providers.Completer, opts Options, rc *cache.Cache, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{completer: c, cache: rc, opts: opts, logger: logger, now: time.Now}
}

// FromConfig builds a Reviewer for cfg. A provider configuration problem does
// not fail construction: every Review reports it as a failure envelope, and
// Err exposes it to callers that prefer to stop at startup.
func FromConfig(cfg config.Config, rc *cache.Cache, logger *slog.Logger) *Reviewer {
	c, err := providers.New(cfg.Provider)
	r := NewReviewer(c, OptionsFromConfig(cfg), rc, logger)
	r.initErr = err
	return r
}

// Err returns the provider construction error, if any.
func (r *Reviewer) Err() error {
	return r.initErr
}

// Review reviews an unnamed piece of source code. It never returns an error:
// every failure is folded into a failure Envelope.
func (r *Reviewer) Review(ctx context.Context, source string) Envelope {
	return r.ReviewFile(ctx, "", source)
}

// ReviewFile is Review with a file name used for path redaction policy and
// as a label in the prompt.
func (r *Reviewer) ReviewFile(ctx context.Context, name, source string) (env Envelope) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("review panicked", "file", name, "panic", p)
			env = Failed(fmt.Sprintf("internal error: %v", p))
		}
	}()

	res, md, err := r.run(ctx, name, source)
	if err != nil {
		r.logger.Warn("review failed", "file", name, "error", err)
		return Failed(describe(err))
	}
	return Succeeded(res, md)
}

func (r *Reviewer) run(ctx context.Context, name, source string) (Result, Metadata, error) {
	start := r.now()
	if r.initErr != nil {
		return Result{}, Metadata{}, r.initErr
	}
	if r.completer == nil {
		return Result{}, Metadata{}, &providers.ConfigError{Message: "no review provider configured"}
	}
	if strings.TrimSpace(source) == "" {
		return Result{}, Metadata{}, errEmptySource
	}

	md := Metadata{
		Provider:   r.completer.Name(),
		Model:      r.completer.Model(),
		InputChars: utf8.RuneCountInString(source),
	}

	text := source
	if limit := r.opts.MaxInputChars; limit > 0 && md.InputChars > limit {
		text = string([]rune(text)[:limit])
		md.Truncated = true
		r.logger.Debug("source truncated", "file", name, "chars", md.InputChars, "limit", limit)
	}
	if r.opts.RedactSecrets {
		text, md.Redactions = redact.Content(text, name, r.opts.RedactPaths)
	}

	key := cache.Key(md.Provider, md.Model, text)
	if res, ok := r.cached(key, &md); ok {
		md.Timestamp = r.now().UTC()
		md.DurationMs = r.now().Sub(start).Milliseconds()
		return res, md, nil
	}

	resp, err := r.completer.Complete(ctx, providers.Request{
		SystemPrompt:     SystemPrompt(),
		UserPrompt:       BuildUserPrompt(text, name, md.Truncated),
		MaxTokens:        r.opts.MaxTokens,
		Temperature:      r.opts.Temperature,
		FrequencyPenalty: r.opts.FrequencyPenalty,
		JSON:             true,
	})
	if err != nil {
		return Result{}, Metadata{}, err
	}
	if resp.Model != "" {
		md.Model = resp.Model
	}
	md.TokensUsed = resp.TokensUsed

	clean := Sanitize(resp.Content)
	res, err := Parse(clean)
	if err != nil {
		return Result{}, Metadata{}, err
	}

	if r.cache != nil {
		if err := r.cache.Put(key, cache.Entry{Provider: md.Provider, Model: md.Model, Response: clean}); err != nil {
			r.logger.Warn("cache write failed", "error", err)
		}
	}

	md.Timestamp = r.now().UTC()
	md.DurationMs = r.now().Sub(start).Milliseconds()
	return res, md, nil
}

// cached returns a hit only if the stored text still validates.
func (r *Reviewer) cached(key string, md *Metadata) (Result, bool) {
	if r.cache == nil {
		return Result{}, false
	}
	entry, ok := r.cache.Get(key)
	if !ok {
		return Result{}, false
	}
	res, err := Parse(entry.Response)
	if err != nil {
		r.logger.Warn("discarding invalid cache entry", "key", key, "error", err)
		return Result{}, false
	}
	md.Cached = true
	if entry.Model != "" {
		md.Model = entry.Model
	}
	return res, true
}

var errEmptySource = errors.New("no source code to review")

// describe turns a pipeline error into the message carried by a failure
// envelope.
func describe(err error) string {
	var (
		cfgErr  *providers.ConfigError
		provErr *providers.ProviderError
		parse   *ParseError
		invalid *ValidationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "review provider misconfigured: " + cfgErr.Message
	case errors.As(err, &provErr):
		return "review request failed: " + provErr.Error()
	case errors.As(err, &parse):
		return "review response was not valid JSON: " + parse.Err.Error()
	case errors.As(err, &invalid):
		return invalid.Error()
	default:
		return err.Error()
	}
}
