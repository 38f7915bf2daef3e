package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shouni/go-price-scraper/pkg/types"
)

const (
	// DefaultFetchTimeout は、1つのURLの取得に許容するデフォルトの時間です。
	DefaultFetchTimeout = 10 * time.Second
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// PageGetter は、1つのURLに対してGETを行い本文を返す機能のインターフェースです。
// *httpclient.Client がこれを満たします。
type PageGetter interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Fetcher は、URLのリストを取得し、入力と同じ順序の結果を返すインターフェースです。
// 個々のURLの失敗は FetchResult.Err に記録され、他のURLの取得は中断されません。
type Fetcher interface {
	Fetch(ctx context.Context, urls []string) []types.FetchResult
}

var (
	_ Fetcher = (*ParallelFetcher)(nil)
	_ Fetcher = (*SequentialFetcher)(nil)
)

// Option は Fetcher の設定を行うための関数型です。
type Option func(*options)

type options struct {
	timeout        time.Duration
	maxConcurrency int
	logger         *zap.Logger
}

func newOptions(opts []Option) options {
	o := options{
		timeout: DefaultFetchTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTimeout はURLごとのタイムアウトを設定します。0以下の場合は親コンテキストの期限だけが適用されます。
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithMaxConcurrency は同時実行数の上限を設定します。0以下の場合は上限なしです。
// SequentialFetcher では無視されます。
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// fetchOne は1つのURLを、独立したタイムアウト付きで取得します。
func fetchOne(ctx context.Context, getter PageGetter, o options, url string) types.FetchResult {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	body, err := getter.FetchBytes(ctx, url)
	result := types.FetchResult{URL: url, Elapsed: time.Since(start)}

	if err != nil {
		result.Err = &types.FetchError{URL: url, Err: err}
		o.logger.Debug("取得に失敗しました", zap.String("url", url), zap.Duration("elapsed", result.Elapsed), zap.Error(err))
		return result
	}

	result.Body = string(body)
	o.logger.Debug("取得しました", zap.String("url", url), zap.Duration("elapsed", result.Elapsed), zap.Int("bytes", len(body)))
	return result
}
