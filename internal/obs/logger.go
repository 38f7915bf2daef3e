package obs

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger は標準エラー出力へ書き出すコンソール形式のロガーを生成します。
// verbose が true の場合は Debug レベル、それ以外は Info レベルです。
func NewLogger(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(level)
	loggerConfig.Encoding = "console"
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	loggerConfig.OutputPaths = []string{"stderr"}
	loggerConfig.ErrorOutputPaths = []string{"stderr"}
	loggerConfig.DisableStacktrace = !verbose

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの初期化に失敗しました: %w", err)
	}
	return logger, nil
}
