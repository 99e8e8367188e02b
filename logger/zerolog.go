// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to LoggerInterface.
type ZerologLogger struct {
	log zerolog.Logger
}

var _ LoggerInterface = (*ZerologLogger)(nil)

// NewZerolog builds a structured logger writing to w. An unparsable level
// falls back to info. Output is JSON unless pretty is set.
func NewZerolog(w io.Writer, level string, pretty bool) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return &ZerologLogger{
		log: zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}
}

// With returns a child logger annotated with key=value.
func (z *ZerologLogger) With(key, value string) *ZerologLogger {
	return &ZerologLogger{log: z.log.With().Str(key, value).Logger()}
}

// Zerolog exposes the underlying logger for structured call sites.
func (z *ZerologLogger) Zerolog() *zerolog.Logger {
	return &z.log
}

func (z *ZerologLogger) Print(s string) {
	z.log.Info().Msg(s)
}

func (z *ZerologLogger) Printf(s string, as ...interface{}) {
	z.log.Info().Msg(fmt.Sprintf(s, as...))
}

func (z *ZerologLogger) Debugf(s string, as ...interface{}) {
	z.log.Debug().Msgf(s, as...)
}

func (z *ZerologLogger) PrintError(source string, err error) {
	z.log.Error().Err(err).Str("source", source).Msg("")
}
