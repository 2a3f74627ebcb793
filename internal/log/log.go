// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log holds the process-wide zap logger for the oxbow CLI.
//
// The CLI configures the real logger from flags and config during command
// setup via SetLogger; until then a development logger is in place so that
// init-time warnings are not silently dropped. Long-lived components (the
// instance manager, attachers, tools) do not use this package directly; they
// receive a *zap.Logger at construction time. The package-level functions
// exist for command plumbing that has no such handle.
package log

import (
	"go.uber.org/zap"
)

var logger *zap.Logger

func init() {
	logger, _ = zap.NewDevelopment()
}

// Logger returns the process-wide logger, for handing to components that take
// a *zap.Logger.
func Logger() *zap.Logger {
	return logger
}

// SetLogger replaces the process-wide logger. Called once at command setup;
// not safe to race with in-flight logging.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Conversation returns a logger pre-tagged with the conversation id, so every
// entry of one conversation's lifecycle can be filtered together.
func Conversation(conversationID string) *zap.Logger {
	return logger.With(zap.String("conversation_id", conversationID))
}

// Debug logs at debug level.
func Debug(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

// Info logs at info level.
func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

// Warn logs at warn level.
func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

// Error logs at error level.
func Error(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

// Fatal logs at fatal level and exits.
func Fatal(msg string, fields ...zap.Field) {
	logger.Fatal(msg, fields...)
}

// With returns a child logger carrying the extra fields.
func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

// Sync flushes buffered entries. Best effort on process exit.
func Sync() error {
	return logger.Sync()
}
