// Package assets loads the panorama and models of a listing as one batch and reports completion
// exactly once.
//
// Fetching and decoding run on goroutines. Their results are handed back through a channel and only
// applied by Poll, so callbacks always run on the goroutine that owns the scene (the frame loop).
package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"walkthrough/internal/logger"
	"walkthrough/internal/scene"
)

// Kind is the type of a pending load.
type Kind int

const (
	KindPanorama Kind = iota
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindPanorama:
		return "panorama"
	case KindModel:
		return "model"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is what a completed batch hands to its callbacks. Models are in request order.
type Result struct {
	Panorama *scene.Texture
	Models   []*scene.Node
}

var (
	// ErrBatchInFlight is returned when loads are requested for a batch that already has a
	// completion callback and has not resolved yet. Loads of two listings never share a batch.
	ErrBatchInFlight = errors.New("assets: batch already in flight")
	// ErrDuplicatePanorama is returned when a batch requests a second panorama.
	ErrDuplicatePanorama = errors.New("assets: batch already has a panorama")
)

// RetryPolicy controls how often a failing fetch is attempted before its batch fails.
// MaxTries of 0 or 1 means a single attempt.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	// Timeout bounds a single asset including its retries; zero means no limit.
	Timeout time.Duration
}

// NoRetry fails a batch on the first fetch error.
var NoRetry = RetryPolicy{MaxTries: 1}

// Fetcher fetches and decodes one asset. Implementations must be safe for concurrent use.
type Fetcher interface {
	FetchPanorama(ctx context.Context, url string) (*scene.Texture, error)
	FetchModel(ctx context.Context, url string) (*scene.Node, error)
}

type resolution struct {
	gen     uint64
	kind    Kind
	slot    int
	url     string
	texture *scene.Texture
	model   *scene.Node
	err     error
}

type batch struct {
	gen         uint64
	total       int
	resolved    int
	sealed      bool
	hasPanorama bool
	result      Result
	complete    []func(Result)
	failed      []func(error)
	err         error
	done        bool
}

// Loader aggregates asset loads into batches. All methods except the fetch goroutines it starts
// must be called from one goroutine.
type Loader struct {
	fetcher Fetcher
	log     *logger.Logger
	retry   RetryPolicy
	results chan resolution
	batch   *batch
	gen     uint64
}

// NewLoader returns a Loader fetching through f.
func NewLoader(f Fetcher, retry RetryPolicy, log *logger.Logger) *Loader {
	return &Loader{
		fetcher: f,
		log:     log,
		retry:   retry,
		results: make(chan resolution, 64),
	}
}

func (l *Loader) current() *batch {
	if l.batch == nil {
		l.gen++
		l.batch = &batch{gen: l.gen}
	}
	return l.batch
}

// Request adds a load to the current batch, starting a batch if none is active, and starts fetching.
func (l *Loader) Request(kind Kind, url string) error {
	if l.batch != nil && l.batch.sealed {
		return ErrBatchInFlight
	}
	b := l.current()
	slot := 0
	switch kind {
	case KindPanorama:
		if b.hasPanorama {
			return ErrDuplicatePanorama
		}
		b.hasPanorama = true
	case KindModel:
		slot = len(b.result.Models)
		b.result.Models = append(b.result.Models, nil)
	default:
		return fmt.Errorf("assets: unknown kind %v", kind)
	}
	b.total++
	go l.fetch(b.gen, kind, slot, url)
	return nil
}

// OnBatchComplete registers fn to run once every load of the current batch has resolved, and seals
// the batch against further requests. A batch with no loads completes on the next Poll.
func (l *Loader) OnBatchComplete(fn func(Result)) {
	b := l.current()
	b.sealed = true
	b.complete = append(b.complete, fn)
}

// OnBatchFailed registers fn to run once, with the first error, if a load of the current batch fails.
// Completion callbacks of a failed batch never run.
func (l *Loader) OnBatchFailed(fn func(error)) {
	b := l.current()
	b.failed = append(b.failed, fn)
}

// Progress returns the resolved fraction of the current batch, or 0 without one.
func (l *Loader) Progress() float64 {
	b := l.batch
	if b == nil || b.total == 0 {
		return 0
	}
	return float64(b.resolved) / float64(b.total)
}

// Busy reports whether a batch is active.
func (l *Loader) Busy() bool {
	return l.batch != nil
}

// Poll applies every resolution received so far and fires callbacks of a batch that is done.
// It never blocks.
func (l *Loader) Poll() {
	for {
		select {
		case r := <-l.results:
			l.resolve(r)
		default:
			l.finish()
			return
		}
	}
}

// Wait polls until the current batch completes or fails, or ctx is done. It returns the batch
// error, if any. Without an active batch it returns nil immediately.
func (l *Loader) Wait(ctx context.Context) error {
	b := l.batch
	if b == nil {
		return nil
	}
	for {
		l.Poll()
		if b.done {
			return b.err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-l.results:
			l.resolve(r)
		}
	}
}

func (l *Loader) resolve(r resolution) {
	b := l.batch
	if b == nil || r.gen != b.gen {
		// Left over from a batch that already failed.
		return
	}
	if r.err != nil {
		l.fail(b, fmt.Errorf("assets: %s %s: %w", r.kind, r.url, r.err))
		return
	}
	switch r.kind {
	case KindPanorama:
		b.result.Panorama = r.texture
	case KindModel:
		b.result.Models[r.slot] = r.model
	}
	b.resolved++
	l.log.Logf("loading %.2f: %s", float64(b.resolved)/float64(b.total), r.url)
	l.finish()
}

func (l *Loader) finish() {
	b := l.batch
	if b == nil || !b.sealed || b.resolved < b.total {
		return
	}
	l.batch = nil
	b.done = true
	l.log.Logf("batch %d complete: %d assets", b.gen, b.total)
	for _, fn := range b.complete {
		fn(b.result)
	}
}

func (l *Loader) fail(b *batch, err error) {
	l.batch = nil
	b.done = true
	b.err = err
	l.log.Logf("batch %d failed: %v", b.gen, err)
	for _, fn := range b.failed {
		fn(err)
	}
}

func (l *Loader) fetch(gen uint64, kind Kind, slot int, url string) {
	ctx := context.Background()
	if l.retry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.retry.Timeout)
		defer cancel()
	}
	r := resolution{gen: gen, kind: kind, slot: slot, url: url}
	op := func() (resolution, error) {
		out := r
		var err error
		switch kind {
		case KindPanorama:
			out.texture, err = l.fetcher.FetchPanorama(ctx, url)
		case KindModel:
			out.model, err = l.fetcher.FetchModel(ctx, url)
		}
		if err != nil && permanent(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}
	eb := backoff.NewExponentialBackOff()
	if l.retry.InitialInterval > 0 {
		eb.InitialInterval = l.retry.InitialInterval
	}
	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(max(l.retry.MaxTries, 1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.log.Logf("retrying %s in %s: %v", url, next.Round(time.Millisecond), err)
		}),
	)
	if err != nil {
		r.err = err
		l.results <- r
		return
	}
	l.results <- out
}
