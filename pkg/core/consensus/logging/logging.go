// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package logging wires this core's logrus output: colorized, prefixed
// terminal logs by default, with an optional rotated file sink for
// operators who want the diagnostic stream durable across restarts. Every
// package in this module logs through `logrus.WithField("process", ...)`
// entries, the same idiom the teacher's reduction steps use.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSink configures rotated file logging, layered onto the terminal
// output rather than replacing it.
type FileSink struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup installs the prefixed, colorized formatter on logrus' standard
// logger and returns the configured entry point. If sink is non-nil, log
// output is duplicated to a lumberjack-rotated file alongside the
// terminal.
func Setup(level logrus.Level, sink *FileSink) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetLevel(level)
	logger.SetFormatter(&prefixed.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	out := io.Writer(colorable.NewColorableStdout())
	if sink != nil {
		rotator := &lumberjack.Logger{
			Filename:   sink.Path,
			MaxSize:    sink.MaxSizeMB,
			MaxBackups: sink.MaxBackups,
			MaxAge:     sink.MaxAgeDays,
		}
		out = io.MultiWriter(out, rotator)
	}
	logger.SetOutput(out)

	return logger
}

// WithProcess is the per-package logging entry point every handler and
// the execution context build their `lg` var from, e.g.
// `var lg = logging.WithProcess("validation")`.
func WithProcess(process string) *logrus.Entry {
	return logrus.WithField("process", process)
}

// init gives every package a sane default even if Setup is never called
// explicitly (e.g. in tests): the prefixed formatter on colorable stdout,
// no rotation. With CONSENSUS_LOG_PLAIN set, logrus' own defaults (plain
// text on stderr) are left untouched.
func init() {
	if os.Getenv("CONSENSUS_LOG_PLAIN") == "" {
		logrus.SetFormatter(&prefixed.TextFormatter{FullTimestamp: true})
		logrus.SetOutput(colorable.NewColorableStdout())
	}
}
