package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-price-scraper/internal/config"
	"github.com/shouni/go-price-scraper/internal/metrics"
	"github.com/shouni/go-price-scraper/internal/pipeline"
	"github.com/shouni/go-price-scraper/pkg/extract"
	"github.com/shouni/go-price-scraper/pkg/fetcher"
	"github.com/shouni/go-price-scraper/pkg/writer"
)

// コマンドラインフラグ変数を定義
var (
	inputURLs []string // --urls フラグで受け取るURLリスト
	modeName  string   // --mode フラグで受け取る解析モード
	filePath  string   // --file-path フラグで受け取る保存先
)

// scrapeJob は1回の scrape 実行に必要な値をまとめたものです。
type scrapeJob struct {
	urls        []string
	mode        string
	path        string
	metricsFile string
	fetcher     fetcher.Fetcher
	config      *config.Config
	logger      *zap.Logger
	out         io.Writer
}

// runScrape は、取得・抽出・保存を実行するメインロジックです。
func runScrape(ctx context.Context, job scrapeJob) (*pipeline.Result, error) {
	// 1. モードと保存形式の検証 (ネットワークアクセスの前に行う)
	mode, err := pipeline.ParseMode(job.mode)
	if err != nil {
		return nil, err
	}
	tableWriter, err := writer.ForPath(job.path)
	if err != nil {
		return nil, err
	}

	urls, err := normalizeURLs(job.urls)
	if err != nil {
		return nil, err
	}

	// 2. 依存性の初期化 (Extractor -> Coordinator)
	extractor, err := extract.NewExtractor(
		extract.WithSelectors(job.config.Selectors),
		extract.WithLogger(job.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}

	recorder := metrics.NewRecorder()
	coordinator, err := pipeline.New(job.fetcher, extractor,
		pipeline.WithLogger(job.logger),
		pipeline.WithRecorder(recorder),
	)
	if err != nil {
		return nil, err
	}

	// 3. モードごとの処理
	var result *pipeline.Result
	switch mode {
	case pipeline.ModeList:
		result, err = coordinator.Run(ctx, urls)
	default:
		return nil, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedMode, mode)
	}

	if job.metricsFile != "" {
		if merr := recorder.WriteToFile(job.metricsFile); merr != nil {
			job.logger.Warn("メトリクスを書き出せませんでした", zap.Error(merr))
		}
	}
	if err != nil {
		return nil, err
	}

	// 4. 保存
	if err := tableWriter.Write(job.path, result.Items); err != nil {
		return nil, fmt.Errorf("結果の保存に失敗しました: %w", err)
	}

	printSummary(job.out, result, job.path)
	return result, nil
}

// printSummary は実行結果の概要を出力します。
func printSummary(w io.Writer, result *pipeline.Result, path string) {
	fmt.Fprintln(w, "--- スクレイピング結果 ---")
	fmt.Fprintf(w, "取得成功ページ: %d 件\n", result.Pages)
	fmt.Fprintf(w, "抽出アイテム: %d 件\n", len(result.Items))
	fmt.Fprintf(w, "スキップしたペア: %d 件\n", result.Skipped())
	if len(result.FailedURLs) > 0 {
		fmt.Fprintf(w, "取得に失敗したURL: %d 件\n", len(result.FailedURLs))
		for _, u := range result.FailedURLs {
			fmt.Fprintf(w, "  ❌ %s\n", u)
		}
	}
	fmt.Fprintf(w, "保存先: %s\n", path)
}

// normalizeURLs は空行を除き、スキームを補完します。
func normalizeURLs(raw []string) ([]string, error) {
	urls := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		u, err := ensureScheme(r)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, pipeline.ErrNoURLs
	}
	return urls, nil
}

// readURLs は r からURLを一行ずつ読み込みます。空行は無視します。
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("標準入力の読み取りエラー: %w", err)
	}
	return urls, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "一覧ページから商品名と価格を抽出して保存します",
	Long: `--urls フラグでURLリストを受け取るか、標準入力からURLを一行ずつ読み込み、
すべてのページを並列で取得して商品名・価格・通貨を抽出します。
結果は --file-path の拡張子 (.csv / .xlsx) に応じた形式で保存されます。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 共有フェッチャーの取得
		f := GetGlobalFetcher()
		if f == nil {
			return fmt.Errorf("フェッチャーの取得に失敗しました")
		}

		// 2. 処理対象URLのリストを決定
		urls := inputURLs
		if len(urls) == 0 {
			globalLogger.Info("URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)...")
			var err error
			if urls, err = readURLs(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		path := filePath
		if path == "" {
			path = defaultSavePath
		}

		// 3. Ctrl+C で実行中のリクエストを中断する
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		_, err := runScrape(ctx, scrapeJob{
			urls:        urls,
			mode:        modeName,
			path:        path,
			metricsFile: Flags.MetricsFile,
			fetcher:     f,
			config:      globalConfig,
			logger:      globalLogger,
			out:         cmd.OutOrStdout(),
		})
		return err
	},
}

func init() {
	scrapeCmd.Flags().StringSliceVarP(&inputURLs, "urls", "u", nil,
		"取得対象のURLリスト (カンマ区切り、または複数回指定)")
	scrapeCmd.Flags().StringVarP(&modeName, "mode", "m", string(pipeline.DefaultMode),
		"解析モード (list)")
	scrapeCmd.Flags().StringVarP(&filePath, "file-path", "f", "",
		"保存先 (.csv / .xlsx)。省略時は ./saved_documents/<起動時刻>.xlsx")
}
