package writer

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/shouni/go-price-scraper/pkg/types"
)

// SheetName は書き出すワークシートの名前です。
const SheetName = "Items"

// XLSXWriter はアイテムを Excel ファイルに書き出します。
type XLSXWriter struct{}

// Write は path にヘッダー付きのワークシートを1枚持つブックを書き出します。
func (XLSXWriter) Write(path string, items []types.Item) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("Excelファイルのクローズに失敗しました: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("シート名の設定に失敗しました: %w", err)
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("ヘッダー行の書き込みに失敗しました: %w", err)
	}

	for i, it := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{it.Name, it.Price, it.Currency}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("%d行目の書き込みに失敗しました: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("Excelファイルの保存に失敗しました: %w", err)
	}
	return nil
}
