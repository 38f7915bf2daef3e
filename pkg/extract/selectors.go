package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// ----------------------------------------------------------------------
// 定数定義 (一覧ページのマークアップ)
// ----------------------------------------------------------------------
const (
	DefaultNameSelector          = "img.s-item__image-img"
	DefaultNameAttr              = "alt"
	DefaultPriceSelector         = "span.s-item__price"
	DefaultPriceFallbackSelector = "span.ITALIC"
)

// Selectors は名前ノードと価格ノードを特定するCSSセレクターです。
// 設定ファイル (YAML) から読み込めるようにタグを付けています。
type Selectors struct {
	Name          string `yaml:"name"`           // 商品名を持つノード (画像など)
	NameAttr      string `yaml:"name_attr"`      // 商品名が入っている属性
	Price         string `yaml:"price"`          // 価格を持つノード
	PriceFallback string `yaml:"price_fallback"` // 価格ノード内の子孫ノード。空でないテキストがあれば価格ノード自身より優先する
}

// DefaultSelectors は既定のセレクターを返します。
func DefaultSelectors() Selectors {
	return Selectors{
		Name:          DefaultNameSelector,
		NameAttr:      DefaultNameAttr,
		Price:         DefaultPriceSelector,
		PriceFallback: DefaultPriceFallbackSelector,
	}
}

// WithDefaults は空のフィールドを既定値で埋めたコピーを返します。
func (s Selectors) WithDefaults() Selectors {
	def := DefaultSelectors()
	if s.Name == "" {
		s.Name = def.Name
	}
	if s.NameAttr == "" {
		s.NameAttr = def.NameAttr
	}
	if s.Price == "" {
		s.Price = def.Price
	}
	if s.PriceFallback == "" {
		s.PriceFallback = def.PriceFallback
	}
	return s
}

// Validate は各セレクターがCSSセレクターとして解釈できるかを確認します。
// goquery は不正なセレクターを空の結果として扱うため、事前に検出します。
func (s Selectors) Validate() error {
	for field, sel := range map[string]string{
		"name":           s.Name,
		"price":          s.Price,
		"price_fallback": s.PriceFallback,
	} {
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("セレクター %s (%q) が不正です: %w", field, sel, err)
		}
	}
	if s.NameAttr == "" {
		return fmt.Errorf("name_attr が空です")
	}
	return nil
}
