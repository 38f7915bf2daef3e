package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shouni/go-price-scraper/pkg/types"
)

const namespace = "price_scraper"

// Recorder は1回の実行で発生した取得・抽出の件数を prometheus のコレクターとして保持します。
// 各メソッドは複数のゴルーチンから同時に呼び出せます。
type Recorder struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	items         prometheus.Counter
	skipped       prometheus.Counter
	unpaired      prometheus.Counter
}

// NewRecorder は専用のレジストリを持つ Recorder を生成します。
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "取得したURLの数 (result=ok|error)",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "URLごとの取得時間",
			Buckets:   prometheus.DefBuckets,
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "抽出されたアイテムの数",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_pairs_total",
			Help:      "検証に失敗してスキップされたペアの数",
		}),
		unpaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unpaired_nodes_total",
			Help:      "ペアにならなかった名前/価格ノードの数",
		}),
	}
	r.registry.MustRegister(r.fetches, r.fetchDuration, r.items, r.skipped, r.unpaired)
	return r
}

// ObserveFetch は1件の取得結果を記録します。
func (r *Recorder) ObserveFetch(res types.FetchResult) {
	result := "ok"
	if !res.OK() {
		result = "error"
	}
	r.fetches.WithLabelValues(result).Inc()
	r.fetchDuration.Observe(res.Elapsed.Seconds())
}

// ObservePage は1ページ分の抽出結果を記録します。
func (r *Recorder) ObservePage(outcome types.PageOutcome) {
	r.items.Add(float64(len(outcome.Items)))
	r.skipped.Add(float64(len(outcome.Skipped)))
	r.unpaired.Add(float64(outcome.Unpaired))
}

// Registry は内部のレジストリを返します。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteToFile は現在の値を Prometheus のテキスト形式でファイルに書き出します。
// node_exporter の textfile collector から読み込める形式です。
func (r *Recorder) WriteToFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("メトリクスの書き出しに失敗しました (%s): %w", path, err)
	}
	return nil
}
