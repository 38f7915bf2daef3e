package writer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/shouni/go-price-scraper/pkg/types"
)

// itemRow は CSV の1行です。タグがヘッダー行になります。
type itemRow struct {
	Item     string  `csv:"Item"`
	Price    float64 `csv:"Price"`
	Currency string  `csv:"Currency"`
}

func toRows(items []types.Item) []*itemRow {
	rows := make([]*itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, &itemRow{Item: it.Name, Price: it.Price, Currency: it.Currency})
	}
	return rows
}

// CSVWriter はアイテムを CSV ファイルに書き出します。
type CSVWriter struct{}

// Write は path にヘッダー付きの CSV を書き出します。既存のファイルは上書きされます。
func (CSVWriter) Write(path string, items []types.Item) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("CSVファイルの作成に失敗しました: %w", err)
	}
	return writeCSV(f, items)
}

// writeCSV は w に CSV を書き出してから閉じます。Close のエラーも返します。
func writeCSV(w io.WriteCloser, items []types.Item) (err error) {
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("CSVファイルのクローズに失敗しました: %w", closeErr)
		}
	}()

	rows := toRows(items)
	if len(rows) == 0 {
		// gocsv は空のスライスに対してヘッダーを書かないため、ヘッダーだけを書き出す
		if _, err := fmt.Fprintln(w, strings.Join(header, ",")); err != nil {
			return fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
		}
		return nil
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
	}
	return nil
}
