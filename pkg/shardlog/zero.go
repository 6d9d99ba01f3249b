package shardlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Zero = NewZeroLogger("")

var logFile *os.File

func NewZeroLogger(filepath string) *zerolog.Logger {
	file, writer, err := newWriter(filepath)
	if err != nil {
		panic(err)
	}
	logFile = file
	output := zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Logger()

	return &logger
}

// ReloadLogger reroutes Zero to the given file. An empty path keeps the
// current os.Stdout writer.
func ReloadLogger(filepath string) {
	if filepath == "" {
		return // this means os.Stdout, so no need to open new file
	}
	oldFile := logFile
	Zero = NewZeroLogger(filepath)
	if oldFile != nil {
		_ = oldFile.Close()
	}
}

func UpdateZeroLogLevel(logLevel string) error {
	level := parseLevel(logLevel)
	zeroLogger := Zero.With().Logger().Level(level)
	Zero = &zeroLogger
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
