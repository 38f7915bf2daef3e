package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shouni/go-price-scraper/pkg/extract"
	"github.com/shouni/go-price-scraper/pkg/fetcher"
	"github.com/shouni/go-price-scraper/pkg/types"
)

// DiagnosticKind は診断情報の種類です。
type DiagnosticKind string

const (
	DiagnosticFetch DiagnosticKind = "fetch" // URLの取得に失敗した
	DiagnosticParse DiagnosticKind = "parse" // ペアの検証に失敗した
)

// Diagnostic は、実行全体を失敗させない個別の問題を表します。
type Diagnostic struct {
	Kind DiagnosticKind
	URL  string
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %v", d.Kind, d.URL, d.Err)
}

// Result は1回の実行結果です。Items はページの入力順、ページ内では文書順に並びます。
type Result struct {
	Items       []types.Item
	Diagnostics []Diagnostic
	FailedURLs  []string
	Pages       int // 取得に成功したページ数
}

// Skipped は parse 種別の診断情報の数を返します。
func (r *Result) Skipped() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == DiagnosticParse {
			n++
		}
	}
	return n
}

// Recorder は取得・抽出の結果を計測する機能のインターフェースです。
// *metrics.Recorder がこれを満たします。
type Recorder interface {
	ObserveFetch(res types.FetchResult)
	ObservePage(outcome types.PageOutcome)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(types.FetchResult) {}
func (nopRecorder) ObservePage(types.PageOutcome)  {}

// Coordinator は Fetcher と PageExtractor をつなぎ、URLのリストからアイテムを集めます。
// 実行をまたいだ状態は持ちません。
type Coordinator struct {
	fetcher   fetcher.Fetcher
	extractor extract.PageExtractor
	policy    FailurePolicy
	recorder  Recorder
	logger    *zap.Logger
}

// Option は Coordinator の設定を行うための関数型です。
type Option func(*Coordinator)

// WithFailurePolicy は打ち切りの判定方法を設定します。
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(c *Coordinator) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(recorder Recorder) Option {
	return func(c *Coordinator) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New は Coordinator を初期化します。
func New(f fetcher.Fetcher, e extract.PageExtractor, opts ...Option) (*Coordinator, error) {
	if f == nil {
		return nil, errors.New("pipeline.New: Fetcher が nil です")
	}
	if e == nil {
		return nil, errors.New("pipeline.New: PageExtractor が nil です")
	}

	c := &Coordinator{
		fetcher:   f,
		extractor: e,
		policy:    AbortWhenAllFailed,
		recorder:  nopRecorder{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run はすべてのURLを取得し、成功したページからアイテムを抽出します。
//
// 一部のURLの失敗は Diagnostics と FailedURLs に記録されるだけで、処理は続きます。
// FailurePolicy が打ち切りを判定した場合 (既定ではすべて失敗した場合) は、
// 抽出を行わずに *PipelineExhaustedError を返します。
func (c *Coordinator) Run(ctx context.Context, urls []string) (*Result, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	// 1. 取得 (Fetcher は1回だけ呼び出す)
	c.logger.Info("取得を開始します", zap.Int("urls", len(urls)))
	fetched := c.fetcher.Fetch(ctx, urls)

	result := &Result{Items: []types.Item{}}
	var failures []error
	for _, res := range fetched {
		c.recorder.ObserveFetch(res)
		if res.OK() {
			continue
		}
		failures = append(failures, res.Err)
		result.FailedURLs = append(result.FailedURLs, res.URL)
		result.Diagnostics = append(result.Diagnostics, Diagnostic{Kind: DiagnosticFetch, URL: res.URL, Err: res.Err})
		c.logger.Warn("URLの取得に失敗しました", zap.String("url", res.URL), zap.Error(res.Err))
	}

	// 2. 打ち切り判定
	if c.policy(len(urls), len(failures)) {
		return nil, &PipelineExhaustedError{Total: len(urls), Failures: failures}
	}

	// 3. 成功したページを入力順に抽出
	for _, res := range fetched {
		if !res.OK() {
			continue
		}
		result.Pages++

		outcome := c.extractor.Extract(res.Body)
		c.recorder.ObservePage(outcome)

		for _, skipped := range outcome.Skipped {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{Kind: DiagnosticParse, URL: res.URL, Err: skipped})
			c.logger.Warn("ペアをスキップしました",
				zap.String("url", res.URL),
				zap.Int("index", skipped.Index),
				zap.String("reason", skipped.Reason),
			)
		}

		result.Items = append(result.Items, outcome.Items...)
	}

	c.logger.Info("抽出が完了しました",
		zap.Int("items", len(result.Items)),
		zap.Int("pages", result.Pages),
		zap.Int("failed", len(result.FailedURLs)),
	)
	return result, nil
}
