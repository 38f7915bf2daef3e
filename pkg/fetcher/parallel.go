package fetcher

import (
	"context"
	"sync"

	"github.com/shouni/go-price-scraper/pkg/types"
)

// ParallelFetcher は Fetcher インターフェースを実装する並列処理構造体です。
// URLごとにゴルーチンを起動し、すべての完了を待ってから結果を返します。
type ParallelFetcher struct {
	getter PageGetter
	opts   options
}

// NewParallelFetcher は ParallelFetcher を初期化します。
// 依存性として PageGetter を受け取ります。
func NewParallelFetcher(getter PageGetter, opts ...Option) *ParallelFetcher {
	return &ParallelFetcher{
		getter: getter,
		opts:   newOptions(opts),
	}
}

// Fetch は Fetcher インターフェースのメソッドを実装します。
// 結果は完了順ではなく入力のインデックス順に格納されます。
func (f *ParallelFetcher) Fetch(ctx context.Context, urls []string) []types.FetchResult {
	var wg sync.WaitGroup
	results := make([]types.FetchResult, len(urls))

	// 上限が指定された場合のみ、バッファ付きチャネルをセマフォとして使用する
	var semaphore chan struct{}
	if f.opts.maxConcurrency > 0 {
		semaphore = make(chan struct{}, f.opts.maxConcurrency)
	}

	for i, url := range urls {
		wg.Add(1)

		go func(i int, u string) {
			defer wg.Done()

			if semaphore != nil {
				select {
				case semaphore <- struct{}{}:
					// スロットを確保した
					defer func() { <-semaphore }()
				case <-ctx.Done():
					results[i] = types.FetchResult{URL: u, Err: &types.FetchError{URL: u, Err: ctx.Err()}}
					return
				}
			}

			// 各ゴルーチンは自分のインデックスにだけ書き込む
			results[i] = fetchOne(ctx, f.getter, f.opts, u)
		}(i, url)
	}

	wg.Wait()
	return results
}
