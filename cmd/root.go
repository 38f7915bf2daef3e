package cmd

import (
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-price-scraper/internal/config"
	"github.com/shouni/go-price-scraper/internal/obs"
	"github.com/shouni/go-price-scraper/pkg/fetcher"
	"github.com/shouni/go-price-scraper/pkg/httpclient"
	"github.com/shouni/go-price-scraper/pkg/retry"
	"github.com/shouni/go-price-scraper/pkg/writer"
)

// --- グローバル定数 ---

const (
	appName           = "price-scraper"
	defaultTimeoutSec = 10 // 秒 (URLごと)
	defaultMaxRetries = 0  // リトライしない
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec     int    // --timeout URLごとのタイムアウト
	MaxRetries     int    // --max-retries リトライ回数
	Concurrency    int    // --concurrency 最大同時実行数 (0 は上限なし)
	Sequential     bool   // --sequential URLを1件ずつ取得する
	SiteConfigFile string // --site-config セレクターなどの設定ファイル (YAML)
	MetricsFile    string // --metrics-file メトリクスの書き出し先
}

var Flags AppFlags // アプリケーション固有フラグにアクセスするためのグローバル変数

var (
	globalFetcher fetcher.Fetcher
	globalConfig  *config.Config
	globalLogger  = zap.NewNop()

	// 起動時に一度だけ計算される既定の保存先
	defaultSavePath string
)

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(&Flags.TimeoutSec, "timeout", defaultTimeoutSec,
		"URLごとのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxRetries, "max-retries", defaultMaxRetries,
		"一時的なエラー (5xx, 429, ネットワークエラー) のリトライ最大回数。0 の場合はリトライしません")
	rootCmd.PersistentFlags().IntVar(&Flags.Concurrency, "concurrency", 0,
		"最大同時実行数。0 の場合は上限なし")
	rootCmd.PersistentFlags().BoolVar(&Flags.Sequential, "sequential", false,
		"URLを1件ずつ順番に取得します")
	rootCmd.PersistentFlags().StringVar(&Flags.SiteConfigFile, "site-config", "",
		"セレクターと User-Agent を定義した YAML ファイル")
	rootCmd.PersistentFlags().StringVar(&Flags.MetricsFile, "metrics-file", "",
		"実行後にメトリクスを Prometheus テキスト形式で書き出すファイル")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	logger, err := obs.NewLogger(clibase.Flags.Verbose)
	if err != nil {
		return err
	}
	globalLogger = logger

	cfg, err := config.Load(Flags.SiteConfigFile)
	if err != nil {
		return err
	}
	globalConfig = cfg

	if Flags.TimeoutSec < 0 || Flags.MaxRetries < 0 || Flags.Concurrency < 0 {
		return fmt.Errorf("--timeout, --max-retries, --concurrency に負の値は指定できません")
	}
	timeout := time.Duration(Flags.TimeoutSec) * time.Second

	logger.Debug("HTTPクライアントを設定しました",
		zap.Duration("timeout", timeout),
		zap.Int("max_retries", Flags.MaxRetries),
		zap.Int("concurrency", Flags.Concurrency),
		zap.Bool("sequential", Flags.Sequential),
	)

	// 共有フェッチャーの初期化
	client := httpclient.New(
		timeout,
		httpclient.WithMaxRetries(uint64(Flags.MaxRetries)),
		httpclient.WithUserAgent(cfg.UserAgent),
	)
	globalFetcher = newFetcher(client, fetchBudget(timeout, Flags.MaxRetries), Flags.Concurrency, Flags.Sequential, logger)

	return nil
}

// fetchBudget は1つのURLに許容する全体の時間を返します。
// --timeout は1回の試行に適用されるため、リトライ回数分の試行とバックオフ待ちを加算します。
// timeout が0の場合は0 (親コンテキストの期限のみ) を返します。
func fetchBudget(timeout time.Duration, maxRetries int) time.Duration {
	if timeout <= 0 || maxRetries <= 0 {
		return timeout
	}
	retries := time.Duration(maxRetries)
	return timeout*(retries+1) + retry.MaxBackoffInterval*retries
}

// newFetcher はフラグに応じて並列または逐次の Fetcher を生成します。
func newFetcher(getter fetcher.PageGetter, timeout time.Duration, concurrency int, sequential bool, logger *zap.Logger) fetcher.Fetcher {
	opts := []fetcher.Option{
		fetcher.WithTimeout(timeout),
		fetcher.WithMaxConcurrency(concurrency),
		fetcher.WithLogger(logger),
	}
	if sequential {
		return fetcher.NewSequentialFetcher(getter, opts...)
	}
	return fetcher.NewParallelFetcher(getter, opts...)
}

// GetGlobalFetcher は、初期化されたフェッチャーを返す関数 (DIの代わり)
func GetGlobalFetcher() fetcher.Fetcher {
	return globalFetcher
}

// --- エントリポイント ---

// Execute は、ルートコマンドを実行するメイン関数です。clibaseのExecuteを使用する。
func Execute() {
	defaultSavePath = writer.DefaultPath(time.Now())

	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		scrapeCmd,
	)
	_ = globalLogger.Sync()
}
