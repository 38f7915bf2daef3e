package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shouni/go-price-scraper/pkg/extract"
	"github.com/shouni/go-price-scraper/pkg/httpclient"
)

// Config は設定ファイル (YAML) の内容を表します。
//
//	selectors:
//	  name: img.s-item__image-img
//	  name_attr: alt
//	  price: span.s-item__price
//	  price_fallback: span.ITALIC
//	user_agent: "Mozilla/5.0 ..."
type Config struct {
	Selectors extract.Selectors `yaml:"selectors"`
	UserAgent string            `yaml:"user_agent"`
}

// Default は既定の設定を返します。
func Default() *Config {
	return &Config{
		Selectors: extract.DefaultSelectors(),
		UserAgent: httpclient.DefaultUserAgent,
	}
}

// Load は YAML ファイルから設定を読み込みます。
// path が空の場合は既定値を返します。ファイルに書かれていない項目も既定値で補われます。
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}

	cfg.Selectors = cfg.Selectors.WithDefaults()
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpclient.DefaultUserAgent
	}
	if err := cfg.Selectors.Validate(); err != nil {
		return nil, fmt.Errorf("設定ファイル %s: %w", path, err)
	}
	return &cfg, nil
}
