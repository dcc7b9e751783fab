package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkthrough/internal/logger"
	"walkthrough/internal/scene"
)

// fakeFetcher resolves each URL once its gate (if any) is released.
type fakeFetcher struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	errs     map[string]error
	failures map[string]int
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		gates:    make(map[string]chan struct{}),
		errs:     make(map[string]error),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) gate(urls ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range urls {
		f.gates[u] = make(chan struct{})
	}
}

func (f *fakeFetcher) release(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gates[url])
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) wait(ctx context.Context, url string) error {
	f.mu.Lock()
	f.calls[url]++
	g := f.gates[url]
	err := f.errs[url]
	if f.failures[url] > 0 {
		f.failures[url]--
		err = errors.New("transient")
	}
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeFetcher) FetchPanorama(ctx context.Context, url string) (*scene.Texture, error) {
	if err := f.wait(ctx, url); err != nil {
		return nil, err
	}
	return &scene.Texture{Name: url}, nil
}

func (f *fakeFetcher) FetchModel(ctx context.Context, url string) (*scene.Node, error) {
	if err := f.wait(ctx, url); err != nil {
		return nil, err
	}
	return scene.NewGroup(url), nil
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// pollUntil polls l on the test goroutine until cond holds.
func pollUntil(t *testing.T, l *Loader, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		l.Poll()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestEmptyBatchCompletesOnce(t *testing.T) {
	l := NewLoader(newFakeFetcher(), NoRetry, logger.Discard())
	calls := 0
	l.OnBatchComplete(func(r Result) {
		calls++
		assert.Nil(t, r.Panorama)
		assert.Empty(t, r.Models)
	})
	assert.Equal(t, 0.0, l.Progress())
	l.Poll()
	l.Poll()
	assert.Equal(t, 1, calls)
	assert.False(t, l.Busy())
}

func TestBatchCompletesOnceAfterAllResolved(t *testing.T) {
	f := newFakeFetcher()
	f.gate("pano.hdr", "a.glb", "b.glb")
	l := NewLoader(f, NoRetry, logger.Discard())
	require.NoError(t, l.Request(KindPanorama, "pano.hdr"))
	require.NoError(t, l.Request(KindModel, "a.glb"))
	require.NoError(t, l.Request(KindModel, "b.glb"))

	var got []Result
	l.OnBatchComplete(func(r Result) { got = append(got, r) })
	l.OnBatchComplete(func(r Result) { got = append(got, r) })

	f.release("a.glb")
	f.release("pano.hdr")
	pollUntil(t, l, func() bool { return l.Progress() >= 2.0/3.0 })
	assert.Empty(t, got)

	f.release("b.glb")
	require.NoError(t, l.Wait(waitCtx(t)))
	l.Poll()
	require.Len(t, got, 2, "each callback runs exactly once")
	assert.Equal(t, "pano.hdr", got[0].Panorama.Name)
	assert.Len(t, got[0].Models, 2)
}

func TestModelsKeepRequestOrder(t *testing.T) {
	urls := []string{"m0.glb", "m1.glb", "m2.glb"}
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		t.Run(fmt.Sprint(perm), func(t *testing.T) {
			f := newFakeFetcher()
			f.gate(urls...)
			l := NewLoader(f, NoRetry, logger.Discard())
			for _, u := range urls {
				require.NoError(t, l.Request(KindModel, u))
			}
			var result *Result
			l.OnBatchComplete(func(r Result) { result = &r })

			for i, idx := range perm {
				f.release(urls[idx])
				want := float64(i+1) / float64(len(urls))
				pollUntil(t, l, func() bool { return result != nil || l.Progress() >= want })
			}
			require.NotNil(t, result)
			require.Len(t, result.Models, 3)
			for i, m := range result.Models {
				assert.Equal(t, urls[i], m.Name)
			}
		})
	}
}

func TestRequestOnSealedBatch(t *testing.T) {
	f := newFakeFetcher()
	f.gate("a.glb")
	l := NewLoader(f, NoRetry, logger.Discard())
	require.NoError(t, l.Request(KindModel, "a.glb"))
	l.OnBatchComplete(func(Result) {})

	assert.ErrorIs(t, l.Request(KindModel, "other.glb"), ErrBatchInFlight)

	f.release("a.glb")
	require.NoError(t, l.Wait(waitCtx(t)))
	assert.NoError(t, l.Request(KindModel, "next.glb"), "a retired batch does not block the next one")
}

func TestDuplicatePanorama(t *testing.T) {
	l := NewLoader(newFakeFetcher(), NoRetry, logger.Discard())
	require.NoError(t, l.Request(KindPanorama, "a.hdr"))
	assert.ErrorIs(t, l.Request(KindPanorama, "b.hdr"), ErrDuplicatePanorama)
}

func TestFailureSurfacedOnce(t *testing.T) {
	f := newFakeFetcher()
	f.errs["broken.glb"] = errors.New("boom")
	f.gate("slow.glb")
	l := NewLoader(f, NoRetry, logger.Discard())
	require.NoError(t, l.Request(KindModel, "slow.glb"))
	require.NoError(t, l.Request(KindModel, "broken.glb"))

	completed, failed := 0, 0
	var failure error
	l.OnBatchComplete(func(Result) { completed++ })
	l.OnBatchFailed(func(err error) {
		failed++
		failure = err
	})

	err := l.Wait(waitCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.glb")
	assert.False(t, l.Busy())

	// The slow load resolves after the failure and is discarded.
	f.release("slow.glb")
	pollUntil(t, l, func() bool { return f.callCount("slow.glb") == 1 })
	time.Sleep(10 * time.Millisecond)
	l.Poll()

	assert.Equal(t, 0, completed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, err, failure)
}

func TestRetryRecoversTransientErrors(t *testing.T) {
	f := newFakeFetcher()
	f.failures["flaky.glb"] = 2
	l := NewLoader(f, RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond}, logger.Discard())
	require.NoError(t, l.Request(KindModel, "flaky.glb"))
	done := false
	l.OnBatchComplete(func(Result) { done = true })

	require.NoError(t, l.Wait(waitCtx(t)))
	assert.True(t, done)
	assert.Equal(t, 3, f.callCount("flaky.glb"))
}

func TestRetryGivesUp(t *testing.T) {
	f := newFakeFetcher()
	f.failures["flaky.glb"] = 5
	l := NewLoader(f, RetryPolicy{MaxTries: 2, InitialInterval: time.Millisecond}, logger.Discard())
	require.NoError(t, l.Request(KindModel, "flaky.glb"))
	l.OnBatchComplete(func(Result) { t.Error("completion must not run") })

	assert.Error(t, l.Wait(waitCtx(t)))
	assert.Equal(t, 2, f.callCount("flaky.glb"))
}

func TestPermanentErrorsAreNotRetried(t *testing.T) {
	f := newFakeFetcher()
	f.errs["missing.glb"] = fmt.Errorf("open: %w", fs.ErrNotExist)
	l := NewLoader(f, RetryPolicy{MaxTries: 5, InitialInterval: time.Millisecond}, logger.Discard())
	require.NoError(t, l.Request(KindModel, "missing.glb"))
	l.OnBatchComplete(func(Result) {})

	err := l.Wait(waitCtx(t))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 1, f.callCount("missing.glb"))
}

func TestProgress(t *testing.T) {
	f := newFakeFetcher()
	f.gate("a.glb", "b.glb")
	l := NewLoader(f, NoRetry, logger.Discard())
	require.NoError(t, l.Request(KindModel, "a.glb"))
	require.NoError(t, l.Request(KindModel, "b.glb"))
	l.OnBatchComplete(func(Result) {})
	assert.Equal(t, 0.0, l.Progress())

	f.release("b.glb")
	pollUntil(t, l, func() bool { return l.Progress() == 0.5 })

	f.release("a.glb")
	require.NoError(t, l.Wait(waitCtx(t)))
	assert.Equal(t, 0.0, l.Progress(), "no batch once retired")
}

func TestWaitWithoutBatch(t *testing.T) {
	l := NewLoader(newFakeFetcher(), NoRetry, logger.Discard())
	assert.NoError(t, l.Wait(context.Background()))
}
