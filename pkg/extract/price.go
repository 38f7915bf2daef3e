package extract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	textUtils "github.com/shouni/go-utils/text"
)

// 価格文字列の解析エラー
var (
	ErrEmptyPrice        = errors.New("価格テキストが空です")
	ErrNoDigits          = errors.New("価格テキストに数字が含まれていません")
	ErrMissingCurrency   = errors.New("通貨記号が見つかりません")
	ErrAmbiguousCurrency = errors.New("通貨記号が前後の両方にあります")
	ErrSignedPrice       = errors.New("符号付きの価格は扱えません")
	ErrInvalidNumber     = errors.New("数値として解釈できません")
)

var numberPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParsePrice は "1 234,56 $" や "US $1,234.56" のような価格テキストを
// 数値と通貨記号に分解します。
//
// 最初の数字より前を接頭辞、最後の数字より後を接尾辞とみなし、
// 通貨はそのどちらか一方からのみ取り出します。
// 空白 (ノーブレークスペースを含む) とアポストロフィは桁区切りとして扱い、
// 小数点のカンマはピリオドに正規化されます。
func ParsePrice(raw string) (float64, string, error) {
	text := textUtils.NormalizeText(raw)
	if text == "" {
		return 0, "", ErrEmptyPrice
	}

	first := strings.IndexFunc(text, isASCIIDigit)
	if first < 0 {
		return 0, "", fmt.Errorf("%w: %q", ErrNoDigits, text)
	}
	last := strings.LastIndexFunc(text, isASCIIDigit)

	// "$.99" の小数点は数値側に含める ("руб.5" のように文字の直後なら通貨側)
	if first > 0 && (text[first-1] == '.' || text[first-1] == ',') {
		before, _ := utf8.DecodeLastRuneInString(text[:first-1])
		if !unicode.IsLetter(before) {
			first--
		}
	}

	currency, err := detectCurrency(strings.TrimSpace(text[:first]), strings.TrimSpace(text[last+1:]))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", err, text)
	}

	value, err := parseNumber(text[first : last+1])
	if err != nil {
		return 0, "", err
	}
	return value, currency, nil
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// detectCurrency は接頭辞 ("US $") の最後のトークン、または接尾辞 ("руб.") の最初のトークンを通貨とします。
// 文字または記号を1つも含まないトークン ("." など) は通貨とみなしません。
func detectCurrency(prefix, suffix string) (string, error) {
	var currency string
	switch {
	case prefix != "" && suffix != "":
		return "", ErrAmbiguousCurrency
	case prefix != "":
		fields := strings.Fields(prefix)
		currency = fields[len(fields)-1]
	case suffix != "":
		currency = strings.Fields(suffix)[0]
	default:
		return "", ErrMissingCurrency
	}

	if strings.ContainsAny(currency, "-+−") {
		return "", ErrSignedPrice
	}
	if !strings.ContainsFunc(currency, isCurrencyRune) {
		return "", ErrMissingCurrency
	}
	return currency, nil
}

func isCurrencyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsSymbol(r)
}

// parseNumber は桁区切りと小数点を判定し、0以上の有限な float64 に変換します。
func parseNumber(s string) (float64, error) {
	decimalSep, groupSep, ok := detectSeparators(s)
	if !ok {
		return 0, fmt.Errorf("%w: 区切り文字が不正です %q", ErrInvalidNumber, s)
	}

	intPart, fracPart := s, ""
	if decimalSep != 0 {
		i := strings.LastIndexByte(s, decimalSep)
		intPart, fracPart = s[:i], s[i+1:]
	}
	if groupSep != 0 {
		if !validGrouping(intPart, groupSep) {
			return 0, fmt.Errorf("%w: 桁区切りが不正です %q", ErrInvalidNumber, s)
		}
		intPart = strings.ReplaceAll(intPart, string(groupSep), "")
	}
	if intPart == "" && decimalSep != 0 {
		intPart = "0"
	}

	normalized := intPart
	if decimalSep != 0 {
		normalized += "." + fracPart
	}
	if !numberPattern.MatchString(normalized) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}

	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return value, nil
}

// detectSeparators は小数点と桁区切りの文字を返します。該当しない場合は 0 です。
// 組み合わせが解釈できない場合は ok が false になります。
//
// 空白またはアポストロフィがある場合はそれが桁区切りで、カンマかピリオドが
// 最後の桁区切りより後に1つだけあれば小数点です。
// カンマとピリオドが両方ある場合は後に現れる方が小数点です。
// どちらか一方だけの場合は classifySingle で判定します。
func detectSeparators(s string) (decimalSep, groupSep byte, ok bool) {
	spaced := strings.IndexByte(s, ' ') >= 0
	quoted := strings.IndexByte(s, '\'') >= 0
	if spaced && quoted {
		return 0, 0, false
	}

	if spaced || quoted {
		groupSep = ' '
		if quoted {
			groupSep = '\''
		}
		commas, dots := strings.Count(s, ","), strings.Count(s, ".")
		switch {
		case commas == 0 && dots == 0:
			return 0, groupSep, true
		case commas+dots > 1:
			return 0, 0, false
		case commas == 1:
			decimalSep = ','
		default:
			decimalSep = '.'
		}
		if strings.LastIndexByte(s, decimalSep) < strings.LastIndexByte(s, groupSep) {
			return 0, 0, false
		}
		return decimalSep, groupSep, true
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return ',', '.', true
		}
		return '.', ',', true
	case lastComma >= 0:
		decimalSep, groupSep = classifySingle(s, ',')
		return decimalSep, groupSep, true
	case lastDot >= 0:
		decimalSep, groupSep = classifySingle(s, '.')
		return decimalSep, groupSep, true
	}
	return 0, 0, true
}

// classifySingle は1種類だけ現れる区切り文字 (カンマまたはピリオド) を判定します。
// 複数あれば桁区切りです。1つだけの場合、直後がちょうど3桁で整数部が空でも "0" でもなければ
// 桁区切り ("1.234" = 1234, "1,234" = 1234)、それ以外は小数点 ("0,500" = 0.5, "12,5" = 12.5) です。
func classifySingle(s string, sep byte) (decimalSep, groupSep byte) {
	i := strings.LastIndexByte(s, sep)
	if strings.Count(s, string(sep)) > 1 {
		return 0, sep
	}
	if len(s)-i-1 == 3 && s[:i] != "" && s[:i] != "0" {
		return 0, sep
	}
	return sep, 0
}

// validGrouping は "1,234,567" のように先頭が1〜3桁、以降が3桁ずつであることを確認します。
// 先頭のグループは 0 で始まってはいけません。
func validGrouping(intPart string, sep byte) bool {
	groups := strings.Split(intPart, string(sep))
	if len(groups[0]) < 1 || len(groups[0]) > 3 || groups[0][0] == '0' {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
