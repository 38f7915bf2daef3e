package pipeline

// FailurePolicy は、URLの総数と失敗数から実行を打ち切るかどうかを判定します。
// true を返すと抽出は行われず、PipelineExhaustedError が返ります。
type FailurePolicy func(total, failed int) bool

// AbortWhenAllFailed はすべてのURLが失敗した場合だけ打ち切る既定のポリシーです。
func AbortWhenAllFailed(total, failed int) bool {
	return total > 0 && failed == total
}

// AbortAboveRatio は失敗率が ratio を超えた場合に打ち切るポリシーを返します。
// すべて失敗した場合は ratio に関係なく打ち切ります。
func AbortAboveRatio(ratio float64) FailurePolicy {
	return func(total, failed int) bool {
		if AbortWhenAllFailed(total, failed) {
			return true
		}
		return total > 0 && float64(failed)/float64(total) > ratio
	}
}
