package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-price-scraper/pkg/httpclient"
	"github.com/shouni/go-price-scraper/pkg/types"
)

// ======================================================================
// モック (Mock) の定義
// ======================================================================

// stubGetter はURLごとに本文・エラー・遅延を返すテスト用の PageGetter です。
type stubGetter struct {
	bodies map[string]string
	errs   map[string]error
	delays map[string]time.Duration

	mu       sync.Mutex
	inFlight int
	peak     int
	calls    atomic.Int32
}

func (s *stubGetter) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	s.calls.Add(1)

	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if d, ok := s.delays[url]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	return []byte(s.bodies[url]), nil
}

func fetchers(getter PageGetter, opts ...Option) map[string]Fetcher {
	return map[string]Fetcher{
		"parallel":   NewParallelFetcher(getter, opts...),
		"sequential": NewSequentialFetcher(getter, opts...),
	}
}

// ======================================================================
// テスト関数
// ======================================================================

func TestFetch_PreservesInputOrder(t *testing.T) {
	// 先頭のURLほど遅く完了させ、完了順と入力順を逆にする
	getter := &stubGetter{
		bodies: map[string]string{"a": "page-a", "b": "page-b", "c": "page-c"},
		delays: map[string]time.Duration{"a": 60 * time.Millisecond, "b": 30 * time.Millisecond},
	}

	for name, f := range fetchers(getter) {
		t.Run(name, func(t *testing.T) {
			results := f.Fetch(context.Background(), []string{"a", "b", "c"})
			require.Len(t, results, 3)
			for i, want := range []string{"a", "b", "c"} {
				assert.Equal(t, want, results[i].URL)
				assert.Equal(t, "page-"+want, results[i].Body)
				assert.True(t, results[i].OK())
			}
		})
	}
}

func TestFetch_FailureIsIsolated(t *testing.T) {
	cause := errors.New("connection refused")
	getter := &stubGetter{
		bodies: map[string]string{"a": "page-a", "c": "page-c"},
		errs:   map[string]error{"b": cause},
	}

	for name, f := range fetchers(getter) {
		t.Run(name, func(t *testing.T) {
			results := f.Fetch(context.Background(), []string{"a", "b", "c"})
			require.Len(t, results, 3)

			assert.True(t, results[0].OK())
			assert.True(t, results[2].OK())

			var fetchErr *types.FetchError
			require.ErrorAs(t, results[1].Err, &fetchErr)
			assert.Equal(t, "b", fetchErr.URL)
			assert.ErrorIs(t, results[1].Err, cause)
			assert.Empty(t, results[1].Body)
		})
	}
}

func TestFetch_DuplicatesFetchedIndependently(t *testing.T) {
	getter := &stubGetter{bodies: map[string]string{"a": "page-a"}}

	results := NewParallelFetcher(getter).Fetch(context.Background(), []string{"a", "a", "a"})
	require.Len(t, results, 3)
	assert.Equal(t, int32(3), getter.calls.Load())
	for _, r := range results {
		assert.Equal(t, "page-a", r.Body)
	}
}

func TestFetch_EmptyInput(t *testing.T) {
	for name, f := range fetchers(&stubGetter{}) {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, f.Fetch(context.Background(), nil))
		})
	}
}

func TestFetch_PerURLTimeout(t *testing.T) {
	getter := &stubGetter{
		bodies: map[string]string{"fast": "ok"},
		delays: map[string]time.Duration{"slow": time.Second},
	}

	for name, f := range fetchers(getter, WithTimeout(50*time.Millisecond)) {
		t.Run(name, func(t *testing.T) {
			results := f.Fetch(context.Background(), []string{"slow", "fast"})
			require.Len(t, results, 2)
			assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
			assert.True(t, results[1].OK())
			assert.Equal(t, "ok", results[1].Body)
		})
	}
}

func TestParallelFetch_UnboundedByDefault(t *testing.T) {
	urls := make([]string, 8)
	delays := make(map[string]time.Duration, len(urls))
	for i := range urls {
		urls[i] = fmt.Sprintf("u%d", i)
		delays[urls[i]] = 100 * time.Millisecond
	}
	getter := &stubGetter{delays: delays}

	NewParallelFetcher(getter).Fetch(context.Background(), urls)
	assert.Greater(t, getter.peak, 2)
}

func TestParallelFetch_MaxConcurrency(t *testing.T) {
	urls := make([]string, 8)
	delays := make(map[string]time.Duration, len(urls))
	for i := range urls {
		urls[i] = fmt.Sprintf("u%d", i)
		delays[urls[i]] = 20 * time.Millisecond
	}
	getter := &stubGetter{delays: delays}

	results := NewParallelFetcher(getter, WithMaxConcurrency(2)).Fetch(context.Background(), urls)
	require.Len(t, results, len(urls))
	assert.LessOrEqual(t, getter.peak, 2)
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
		assert.True(t, r.OK())
	}
}

func TestParallelFetch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	getter := &stubGetter{delays: map[string]time.Duration{"a": time.Second, "b": time.Second}}
	results := NewParallelFetcher(getter, WithMaxConcurrency(1)).Fetch(ctx, []string{"a", "b"})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestParallelFetch_WithHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprintf(w, "<html>%s</html>", r.URL.Path)
	}))
	defer server.Close()

	urls := []string{server.URL + "/one", server.URL + "/missing", server.URL + "/two"}
	results := NewParallelFetcher(httpclient.New(time.Second)).Fetch(context.Background(), urls)
	require.Len(t, results, 3)

	assert.Equal(t, "<html>/one</html>", results[0].Body)
	assert.Equal(t, "<html>/two</html>", results[2].Body)
	assert.Equal(t, http.StatusNotFound, httpclient.StatusCode(results[1].Err))
	assert.Contains(t, results[1].Err.Error(), urls[1])
}
