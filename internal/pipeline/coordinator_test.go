package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shouni/go-price-scraper/internal/metrics"
	"github.com/shouni/go-price-scraper/pkg/extract"
	"github.com/shouni/go-price-scraper/pkg/fetcher"
	"github.com/shouni/go-price-scraper/pkg/httpclient"
	"github.com/shouni/go-price-scraper/pkg/types"
)

// ======================================================================
// モック (Mock) の定義
// ======================================================================

// MockFetcher は fetcher.Fetcher をモックします。
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, urls []string) []types.FetchResult {
	args := m.Called(ctx, urls)
	return args.Get(0).([]types.FetchResult)
}

// MockExtractor は extract.PageExtractor をモックします。
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(page string) types.PageOutcome {
	args := m.Called(page)
	return args.Get(0).(types.PageOutcome)
}

const (
	pageA = `<img class="s-item__image-img" alt="Widget A"><span class="s-item__price">$10.00</span>
<img class="s-item__image-img" alt="Widget B"><span class="s-item__price">1 234,56 $</span>`
	pageB = `<img class="s-item__image-img" alt="Widget C"><span class="s-item__price">EUR 7,50</span>
<img class="s-item__image-img" alt="Broken"><span class="s-item__price">call for price</span>`
)

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/a":
			_, _ = w.Write([]byte(pageA))
		case "/b":
			_, _ = w.Write([]byte(pageB))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	extractor, err := extract.NewExtractor()
	require.NoError(t, err)
	c, err := New(fetcher.NewParallelFetcher(httpclient.New(time.Second)), extractor, opts...)
	require.NoError(t, err)
	return c
}

// ======================================================================
// テスト関数
// ======================================================================

func TestNew_RequiresCollaborators(t *testing.T) {
	extractor, err := extract.NewExtractor()
	require.NoError(t, err)

	_, err = New(nil, extractor)
	assert.Error(t, err)

	_, err = New(new(MockFetcher), nil)
	assert.Error(t, err)
}

func TestRun_EndToEnd(t *testing.T) {
	server := newListingServer(t)
	recorder := metrics.NewRecorder()
	c := newCoordinator(t, WithRecorder(recorder))

	result, err := c.Run(context.Background(), []string{server.URL + "/a", server.URL + "/b"})
	require.NoError(t, err)

	assert.Equal(t, []types.Item{
		{Name: "Widget A", Price: 10, Currency: "$"},
		{Name: "Widget B", Price: 1234.56, Currency: "$"},
		{Name: "Widget C", Price: 7.5, Currency: "EUR"},
	}, result.Items)
	assert.Equal(t, 2, result.Pages)
	assert.Empty(t, result.FailedURLs)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, DiagnosticParse, result.Diagnostics[0].Kind)
	assert.Equal(t, server.URL+"/b", result.Diagnostics[0].URL)
	assert.Equal(t, 1, result.Skipped())

	expected := `
# HELP price_scraper_items_total 抽出されたアイテムの数
# TYPE price_scraper_items_total counter
price_scraper_items_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "price_scraper_items_total"))
}

func TestRun_PartialFailure(t *testing.T) {
	server := newListingServer(t)
	core, logs := observer.New(zap.WarnLevel)
	c := newCoordinator(t, WithLogger(zap.New(core)))

	missing := server.URL + "/missing"
	result, err := c.Run(context.Background(), []string{missing, server.URL + "/a"})
	require.NoError(t, err)

	assert.Len(t, result.Items, 2)
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, []string{missing}, result.FailedURLs)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, DiagnosticFetch, result.Diagnostics[0].Kind)
	var fetchErr *types.FetchError
	require.ErrorAs(t, result.Diagnostics[0].Err, &fetchErr)
	assert.Equal(t, missing, fetchErr.URL)
	assert.Equal(t, http.StatusNotFound, httpclient.StatusCode(fetchErr))

	assert.Equal(t, 1, logs.FilterField(zap.String("url", missing)).Len())
}

func TestRun_AllFailedIsExhausted(t *testing.T) {
	urls := []string{"https://a.example", "https://b.example"}
	mockFetcher := new(MockFetcher)
	mockFetcher.On("Fetch", mock.Anything, urls).Return([]types.FetchResult{
		{URL: urls[0], Err: &types.FetchError{URL: urls[0], Err: errors.New("dns")}},
		{URL: urls[1], Err: &types.FetchError{URL: urls[1], Err: context.DeadlineExceeded}},
	}).Once()
	mockExtractor := new(MockExtractor)

	c, err := New(mockFetcher, mockExtractor)
	require.NoError(t, err)

	result, err := c.Run(context.Background(), urls)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPipelineExhausted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var exhausted *PipelineExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Total)
	assert.Len(t, exhausted.Failures, 2)

	mockFetcher.AssertExpectations(t)
	mockExtractor.AssertNotCalled(t, "Extract", mock.Anything)
}

func TestRun_NoURLs(t *testing.T) {
	mockFetcher := new(MockFetcher)
	c, err := New(mockFetcher, new(MockExtractor))
	require.NoError(t, err)

	_, err = c.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoURLs)
	assert.NotErrorIs(t, err, ErrPipelineExhausted)
	mockFetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestRun_FailurePolicy(t *testing.T) {
	urls := []string{"u1", "u2", "u3"}
	fetched := []types.FetchResult{
		{URL: "u1", Body: "p1"},
		{URL: "u2", Err: &types.FetchError{URL: "u2", Err: errors.New("x")}},
		{URL: "u3", Err: &types.FetchError{URL: "u3", Err: errors.New("y")}},
	}

	tests := []struct {
		name      string
		policy    FailurePolicy
		wantAbort bool
	}{
		{"default tolerates partial failure", nil, false},
		{"ratio threshold aborts", AbortAboveRatio(0.5), true},
		{"ratio threshold tolerates", AbortAboveRatio(0.7), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFetcher := new(MockFetcher)
			mockFetcher.On("Fetch", mock.Anything, urls).Return(fetched)
			mockExtractor := new(MockExtractor)
			mockExtractor.On("Extract", "p1").Return(types.PageOutcome{Items: []types.Item{{Name: "n", Price: 1, Currency: "$"}}})

			c, err := New(mockFetcher, mockExtractor, WithFailurePolicy(tt.policy))
			require.NoError(t, err)

			result, err := c.Run(context.Background(), urls)
			if tt.wantAbort {
				assert.ErrorIs(t, err, ErrPipelineExhausted)
				mockExtractor.AssertNotCalled(t, "Extract", mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Items, 1)
			assert.Equal(t, []string{"u2", "u3"}, result.FailedURLs)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	server := newListingServer(t)
	c := newCoordinator(t)
	urls := []string{server.URL + "/b", server.URL + "/a", server.URL + "/b"}

	first, err := c.Run(context.Background(), urls)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Run(context.Background(), urls)
		require.NoError(t, err)
		assert.Equal(t, first.Items, again.Items)
	}
	assert.Equal(t, "Widget C", first.Items[0].Name)
	assert.Equal(t, "Widget A", first.Items[1].Name)
	assert.Len(t, first.Items, 4)
}

func TestAbortWhenAllFailed(t *testing.T) {
	assert.True(t, AbortWhenAllFailed(2, 2))
	assert.False(t, AbortWhenAllFailed(2, 1))
	assert.False(t, AbortWhenAllFailed(0, 0))
}
