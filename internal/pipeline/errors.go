package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrPipelineExhausted は、失敗したURLが多すぎて実行を打ち切ったことを示します。
	ErrPipelineExhausted = errors.New("取得に成功したページがありません")
	// ErrNoURLs は、処理対象のURLが1件も与えられなかったことを示します。
	ErrNoURLs = errors.New("処理対象のURLが一つも指定されていません")
)

// PipelineExhaustedError は、FailurePolicy によって実行が打ち切られたことを示すエラーです。
// Failures には各URLの *types.FetchError が入力順に入ります。
type PipelineExhaustedError struct {
	Total    int
	Failures []error
}

func (e *PipelineExhaustedError) Error() string {
	return fmt.Sprintf("%d件中%d件のURLの取得に失敗したため処理を中止しました: %v",
		e.Total, len(e.Failures), errors.Join(e.Failures...))
}

// Is は errors.Is(err, ErrPipelineExhausted) を満たします。
func (e *PipelineExhaustedError) Is(target error) bool {
	return target == ErrPipelineExhausted
}

// Unwrap は個々の取得エラーを返します。
func (e *PipelineExhaustedError) Unwrap() []error {
	return e.Failures
}
