package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/shouni/go-price-scraper/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 10 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ

	// サイトからのブロックを避けるためのUser-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

	maxErrorBodyLen = 1024
)

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError は2xx以外のステータスコードを示すカスタムエラー型です。
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("HTTPステータスコードエラー: %d, ボディなし", e.StatusCode)
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen] + "..."
	}
	return fmt.Sprintf("HTTPステータスコードエラー: %d, ボディ: %s", e.StatusCode, body)
}

// Retryable は、5xx と 429 の場合に true を返します。
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client はHTTP GETリクエストと、オプトインのリトライを管理します。
// 複数のゴルーチンから同時に利用できますが、生成後に設定を変更してはいけません。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
	userAgent   string
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMaxRetries は最大リトライ回数を設定します。0 の場合はリトライしません。
func WithMaxRetries(max uint64) ClientOption {
	return func(c *Client) {
		c.retryConfig.MaxRetries = max
	}
}

// WithRetryConfig はリトライ設定全体を差し替えます。
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// WithUserAgent はリクエストに付与するUser-Agentを設定します。空文字列の場合は既定値を使います。
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New は、新しいClientを生成します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retry.DefaultConfig(),
		userAgent:   DefaultUserAgent,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// FetchBytes はURLに GET リクエストを送り、UTF-8 に変換したレスポンスボディを返します。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	op := func() error {
		var fetchErr error
		body, fetchErr = c.doFetch(ctx, url)
		return fetchErr
	}

	// 呼び出し元のコンテキストが終了していれば、試行ごとのタイムアウトでもリトライしない
	shouldRetry := func(err error) bool {
		return ctx.Err() == nil && isRetryableError(err)
	}

	err := retry.Do(
		ctx,
		c.retryConfig,
		fmt.Sprintf("URL(%s)のフェッチ", url),
		op,
		shouldRetry,
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// doFetch は実際の一度のHTTP GETリクエストを実行します。
func (c *Client) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("GETリクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	if resp.ContentLength > MaxBodySize {
		return nil, fmt.Errorf("レスポンスボディが最大サイズ (%dバイト) を超えました", MaxBodySize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}
	return toUTF8(body, resp.Header.Get("Content-Type"))
}

// toUTF8 は Content-Type と <meta charset> から文字コードを判定し、UTF-8 に変換します。
// 宣言がなく判定が windows-1252 へのフォールバックになった場合は UTF-8 とみなします。
func toUTF8(body []byte, contentType string) ([]byte, error) {
	_, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && name == "windows-1252") {
		return body, nil
	}
	reader, err := charset.NewReaderLabel(name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("文字コード(%s)の変換に失敗しました: %w", name, err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("文字コード(%s)の変換に失敗しました: %w", name, err)
	}
	return decoded, nil
}

// checkResponse は2xx以外のステータスを *StatusError に変換します。
// ボディは読み込みますが、閉じる責務は呼び出し元にあります。
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen+1))
	if readErr != nil {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: bodyBytes}
}

// StatusCode はエラーチェーン中の *StatusError からステータスコードを取り出します。
// 該当しない場合は 0 を返します。
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// isRetryableError はエラーがリトライ対象かどうかを判定します。
// retry.ShouldRetryFunc 型のシグネチャを満たします。
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// キャンセルは再試行しない。DeadlineExceeded は http.Client.Timeout による
	// 1回の試行のタイムアウトでも返るため、リトライ対象に含める
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	// その他のネットワークエラーはリトライ対象
	return true
}
