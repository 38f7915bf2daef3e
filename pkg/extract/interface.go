package extract

import (
	"github.com/shouni/go-price-scraper/pkg/types"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// PageExtractor は、1ページ分のマークアップからアイテムを抽出する機能のインターフェースです。
// パイプラインは、この抽象に依存します。
type PageExtractor interface {
	Extract(page string) types.PageOutcome
}

var _ PageExtractor = (*Extractor)(nil)
