package cmd

import (
	"fmt"
	"net/url"
)

// ensureScheme は、URLのスキームが存在しない場合に https:// を補完します。
// http / https 以外のスキームはエラーになります。
func ensureScheme(rawURL string) (string, error) {
	// 1. まず現在のURLをパース
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("URLのパースエラー: %w", err)
	}

	// 2. スキームが既に存在する場合のチェック
	if parsedURL.Scheme != "" {
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return "", fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", rawURL)
		}
		if parsedURL.Host == "" {
			return "", fmt.Errorf("URLにホスト名がありません: %s", rawURL)
		}
		return rawURL, nil
	}

	// 3. スキームがない場合、HTTPSをデフォルトとして付与
	withScheme := "https://" + rawURL
	if parsedURL, err = url.Parse(withScheme); err != nil || parsedURL.Host == "" {
		return "", fmt.Errorf("URLにホスト名がありません: %s", rawURL)
	}
	return withScheme, nil
}
