package fetcher

import (
	"context"

	"github.com/shouni/go-price-scraper/pkg/types"
)

// SequentialFetcher は、URLを1件ずつ順番に取得する Fetcher の実装です。
// 結果の形式は ParallelFetcher と同じです。
type SequentialFetcher struct {
	getter PageGetter
	opts   options
}

// NewSequentialFetcher は SequentialFetcher を初期化します。
func NewSequentialFetcher(getter PageGetter, opts ...Option) *SequentialFetcher {
	return &SequentialFetcher{
		getter: getter,
		opts:   newOptions(opts),
	}
}

// Fetch は Fetcher インターフェースのメソッドを実装します。
// 1件が失敗しても残りのURLの取得は続けます。
func (f *SequentialFetcher) Fetch(ctx context.Context, urls []string) []types.FetchResult {
	results := make([]types.FetchResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, fetchOne(ctx, f.getter, f.opts, u))
	}
	return results
}
