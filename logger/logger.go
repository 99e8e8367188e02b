// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package logger

import "fmt"

// Logger queues formatted lines on Prints. The watch view drains the channel
// into its log page.
type Logger struct {
	Prints chan string

	// Debug enables Debugf output.
	Debug bool
}

var _ LoggerInterface = (*Logger)(nil)

func Init() *Logger {
	return &Logger{Prints: make(chan string, 100)}
}

func (l *Logger) Print(s string) {
	l.Prints <- s
}

func (l *Logger) Printf(s string, as ...interface{}) {
	l.Prints <- fmt.Sprintf(s, as...)
}

func (l *Logger) Debugf(s string, as ...interface{}) {
	if l.Debug {
		l.Printf("debug: "+s, as...)
	}
}

func (l *Logger) PrintError(source string, err error) {
	l.Printf("Error(%s) -> %s", source, err.Error())
}

type nopLogger struct{}

func (nopLogger) Print(string)                  {}
func (nopLogger) Printf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) PrintError(string, error)      {}

// Nop returns a logger that discards everything.
func Nop() LoggerInterface {
	return nopLogger{}
}
