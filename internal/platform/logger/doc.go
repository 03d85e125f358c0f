// Package logger sets up structured JSON logging on log/slog.
//
// Output goes to stdout and, when a log file is configured, to a
// size-rotated file managed by lumberjack. Loggers travel through request
// and job contexts with WithContext and FromContext.
package logger
