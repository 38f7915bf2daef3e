package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-price-scraper/pkg/types"
)

const (
	// DefaultDir は保存先が指定されなかった場合の出力ディレクトリです。
	DefaultDir = "saved_documents"
	// DefaultExt は保存先が指定されなかった場合の拡張子です。
	DefaultExt = ".xlsx"

	timestampLayout = "2006-01-02T15-04-05"
)

// ヘッダー行
var header = []string{"Item", "Price", "Currency"}

// ErrUnsupportedFormat は、拡張子に対応するライターがないことを示します。
var ErrUnsupportedFormat = errors.New("サポートされていない出力形式です")

// UnsupportedFormatError は、保存先の拡張子が csv / xlsx 以外であることを示します。
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: %q (保存先: %s, 利用可能: .csv, .xlsx)", ErrUnsupportedFormat, e.Ext, e.Path)
}

// Is は errors.Is(err, ErrUnsupportedFormat) を満たします。
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// TableWriter は、アイテムを表形式のファイルに書き出す機能のインターフェースです。
type TableWriter interface {
	Write(path string, items []types.Item) error
}

var (
	_ TableWriter = CSVWriter{}
	_ TableWriter = XLSXWriter{}
)

// ForPath は拡張子 (大文字小文字を区別しない) からライターを選びます。
// ネットワークアクセスの前に呼び出し、未対応の形式を早期に検出します。
func ForPath(path string) (TableWriter, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return CSVWriter{}, nil
	case ".xlsx":
		return XLSXWriter{}, nil
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: ext}
	}
}

// DefaultPath は now を元に ./saved_documents/<タイムスタンプ>.xlsx を返します。
// 呼び出し元は起動時に一度だけ計算し、その値を使い回します。
func DefaultPath(now time.Time) string {
	return "./" + filepath.ToSlash(filepath.Join(DefaultDir, now.Format(timestampLayout)+DefaultExt))
}

// ensureDir は保存先の親ディレクトリを作成します。
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました (%s): %w", dir, err)
	}
	return nil
}
