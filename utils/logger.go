package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Log общий логгер приложения. До вызова InitLogger пишет в stderr.
var Log = zerolog.New(os.Stderr).With().Timestamp().Logger()

// InitLogger настраивает уровень и назначение логов.
// Если задан logFile, логи пишутся в файл, который нужно закрыть при завершении.
func InitLogger(level, logFile string) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("неверный уровень логирования %q: %w", level, err)
	}

	var target io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	var closer io.Closer = io.NopCloser(nil)

	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
			}
		}
		file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("не удалось открыть файл логов: %w", err)
		}
		target = file
		closer = file
	}

	Log = zerolog.New(target).Level(lvl).With().Timestamp().Logger()
	return closer, nil
}

// LogInfo логирует информационное сообщение
func LogInfo(format string, v ...interface{}) {
	Log.Info().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

// LogError логирует сообщение об ошибке
func LogError(format string, v ...interface{}) {
	Log.Error().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

// LogDebug логирует отладочное сообщение
func LogDebug(format string, v ...interface{}) {
	Log.Debug().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

// LogWarn логирует предупреждение
func LogWarn(format string, v ...interface{}) {
	Log.Warn().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

// LogOperation логирует операцию со счетом и записывает ее в метрики
func LogOperation(operation string, startTime time.Time, err error) {
	duration := time.Since(startTime)
	GetMetrics().RecordOperation(operation, duration, err)

	if err != nil {
		Log.Error().Str("operation", operation).Dur("duration", duration).Err(err).Msg("operation failed")
		return
	}
	Log.Info().Str("operation", operation).Dur("duration", duration).Msg("operation completed")
}
