// Package logger builds the structured run logger.
//
// Every run writes a timestamped JSON log of all stages plus a separate
// error-only stream, with a human console stream on stderr. The logger
// is constructed once in the composition root and passed explicitly to
// each component; there is no package-level logger and no global state.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// File names under the log directory.
const (
	RunLogName   = "grants.log"
	ErrorLogName = "error.log"
)

// New builds a logger writing JSON to {dir}/grants.log (info and
// above) and {dir}/error.log (errors only), plus a console core on
// stderr at warn level, or debug when verbose. The directory is
// created if missing. Callers flush with Sync before exit.
func New(dir string, verbose bool) (*zap.Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	runLog, err := openLog(filepath.Join(dir, RunLogName))
	if err != nil {
		return nil, err
	}
	errLog, err := openLog(filepath.Join(dir, ErrorLogName))
	if err != nil {
		runLog.Close()
		return nil, err
	}

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEnc := zapcore.NewJSONEncoder(fileCfg)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEnc := zapcore.NewConsoleEncoder(consoleCfg)

	consoleLevel := zapcore.WarnLevel
	if verbose {
		consoleLevel = zapcore.DebugLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(fileEnc, zapcore.AddSync(runLog), zapcore.InfoLevel),
		zapcore.NewCore(fileEnc, zapcore.AddSync(errLog), zapcore.ErrorLevel),
		zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stderr), consoleLevel),
	)

	return zap.New(core), nil
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}
