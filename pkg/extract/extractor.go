package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
	"go.uber.org/zap"

	"github.com/shouni/go-price-scraper/pkg/types"
)

// Extractor は、一覧ページのHTMLから名前/価格ペアを取り出し、Item に変換します。
// 状態を持たないため、複数のゴルーチンから同時に利用できます。
type Extractor struct {
	selectors Selectors
	logger    *zap.Logger
}

// Option は Extractor の設定を行うための関数型です。
type Option func(*Extractor)

// WithSelectors はセレクターを差し替えます。空のフィールドは既定値で補われます。
func WithSelectors(s Selectors) Option {
	return func(e *Extractor) {
		e.selectors = s.WithDefaults()
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		selectors: DefaultSelectors(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.selectors.Validate(); err != nil {
		return nil, fmt.Errorf("extract.NewExtractor: %w", err)
	}
	return e, nil
}

// Extract は1ページ分のマークアップを解析します。
//
// i 番目の名前ノードと i 番目の価格ノードを位置でペアにします。
// 数が異なる場合は少ない方に合わせ、余ったノード数を Unpaired に記録します。
// 不正なペアはスキップして Skipped に記録し、残りのペアの処理を続けます。
func (e *Extractor) Extract(page string) (outcome types.PageOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = types.PageOutcome{
				Skipped: []*types.MalformedItemError{{Index: -1, Reason: fmt.Sprintf("予期しないパニック: %v", r)}},
			}
		}
	}()

	// 1. goquery.Document に変換
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return types.PageOutcome{
			Skipped: []*types.MalformedItemError{{Index: -1, Reason: fmt.Sprintf("HTML解析に失敗しました: %v", err)}},
		}
	}

	// 2. 名前ノードと価格ノードをそれぞれ文書順に取得
	names := doc.Find(e.selectors.Name)
	prices := doc.Find(e.selectors.Price)

	pairs := min(names.Length(), prices.Length())
	outcome.Unpaired = max(names.Length(), prices.Length()) - pairs
	if outcome.Unpaired > 0 {
		e.logger.Warn("名前ノードと価格ノードの数が一致しません",
			zap.Int("names", names.Length()),
			zap.Int("prices", prices.Length()),
			zap.Int("pairs", pairs),
		)
	}

	// 3. ペアごとに Item へ変換
	outcome.Items = make([]types.Item, 0, pairs)
	for i := 0; i < pairs; i++ {
		item, malformed := e.extractPair(i, names.Eq(i), prices.Eq(i))
		if malformed != nil {
			e.logger.Debug("ペアをスキップしました",
				zap.Int("index", i),
				zap.String("reason", malformed.Reason),
			)
			outcome.Skipped = append(outcome.Skipped, malformed)
			continue
		}
		outcome.Items = append(outcome.Items, item)
	}
	return outcome
}

// extractPair は1組の名前ノードと価格ノードを検証し、Item を生成します。
func (e *Extractor) extractPair(index int, nameNode, priceNode *goquery.Selection) (types.Item, *types.MalformedItemError) {
	name := textUtils.NormalizeText(nameNode.AttrOr(e.selectors.NameAttr, ""))
	raw := e.priceText(priceNode)

	if name == "" {
		return types.Item{}, &types.MalformedItemError{Index: index, Raw: raw, Reason: "商品名が空です"}
	}

	price, currency, err := ParsePrice(raw)
	if err != nil {
		return types.Item{}, &types.MalformedItemError{Index: index, Name: name, Raw: raw, Reason: err.Error()}
	}

	return types.Item{Name: name, Price: price, Currency: currency}, nil
}

// priceText は価格テキストを返します。
// PriceFallback に一致する子孫ノードが空でないテキストを持てばそれを優先し、
// なければ価格ノード自身のテキストを使います。
func (e *Extractor) priceText(priceNode *goquery.Selection) string {
	if nested := textUtils.NormalizeText(priceNode.Find(e.selectors.PriceFallback).First().Text()); nested != "" {
		return nested
	}
	return textUtils.NormalizeText(priceNode.Text())
}

// ExtractPages は複数ページを順番に解析し、ページ順・文書順を保ったまま結果を返します。
func (e *Extractor) ExtractPages(pages []string) []types.PageOutcome {
	outcomes := make([]types.PageOutcome, 0, len(pages))
	for _, page := range pages {
		outcomes = append(outcomes, e.Extract(page))
	}
	return outcomes
}
