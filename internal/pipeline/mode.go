package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Mode は取得したページの解析方法です。
type Mode string

const (
	// ModeList は検索結果などの一覧ページを解析します。
	ModeList Mode = "list"
)

// DefaultMode は既定の解析モードです。
const DefaultMode = ModeList

// ErrUnsupportedMode は、サポートされていないモードが指定されたことを示します。
var ErrUnsupportedMode = errors.New("サポートされていないモードです")

// ParseMode は文字列をModeに変換します。大文字小文字は区別しません。
// 詳細ページ ("card") を含め、list 以外はすべてエラーになります。
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeList:
		return ModeList, nil
	default:
		return "", fmt.Errorf("%w: %q (利用可能: %s)", ErrUnsupportedMode, s, ModeList)
	}
}

func (m Mode) String() string {
	return string(m)
}
