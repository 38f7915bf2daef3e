package types

import (
	"fmt"
	"time"
)

// Item は、一覧ページから抽出された1件の商品レコードです。
// PageExtractor だけが生成し、生成後は変更しません。
type Item struct {
	Name     string  // 商品名 (空文字列にはならない)
	Price    float64 // 価格 (0以上)
	Currency string  // 通貨記号またはコード ("$", "EUR" など)
}

// FetchResult は、1つのURLに対する取得結果を保持します。
// Body と Err のどちらか一方だけが意味を持ちます。
// Fetcher が返すスライスは、入力URLと同じ長さ・同じ順序になります。
type FetchResult struct {
	URL     string        // 処理対象のURL
	Body    string        // 取得したページ本文 (UTF-8)
	Err     error         // 取得に失敗した場合の *FetchError
	Elapsed time.Duration // リクエストに要した時間
}

// OK は取得が成功したかどうかを返します。
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// PageOutcome は、1ページ分の抽出結果です。
type PageOutcome struct {
	Items    []Item                // 文書順に並んだ抽出済みアイテム
	Skipped  []*MalformedItemError // スキップされたペア (診断情報のみ)
	Unpaired int                   // 名前ノードと価格ノードの数の差 (ペアにならなかったノード数)
}

// FetchError は、URL単位の取得エラーです。他のURLの取得には影響しません。
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("URL(%s)の取得に失敗しました: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedItemError は、名前/価格ペアの検証に失敗したことを示します。
// 呼び出し元へ返されることはなく、診断情報として記録されるだけです。
type MalformedItemError struct {
	Index  int    // ページ内のペア番号 (ページ全体の解析失敗時は -1)
	Name   string // 取得できた商品名 (空の場合あり)
	Raw    string // 価格ノードの生テキスト
	Reason string // スキップ理由
}

func (e *MalformedItemError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("ページを解析できませんでした: %s", e.Reason)
	}
	return fmt.Sprintf("ペア[%d]をスキップしました (名前: %q, 価格: %q): %s", e.Index, e.Name, e.Raw, e.Reason)
}
