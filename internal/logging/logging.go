// Package logging builds the per-component loggers.
//
// Every component logs through a stdlib *log.Logger with a bracketed prefix
// ("[sync] ", "[mutator] ", ...). When a log file is configured the output
// goes to a size-rotated file instead of stderr, so the daemon can run
// unattended.
package logging

import (
	"io"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures log output.
type Config struct {
	// File is the log file path; empty logs to stderr
	File string

	// MaxSizeMB rotates the file when it grows past this size (default: 10)
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep (default: 3)
	MaxBackups int

	// MaxAgeDays removes rotated files older than this (default: 28)
	MaxAgeDays int

	// Compress gzips rotated files
	Compress bool

	// Verbose also copies file output to stderr
	Verbose bool
}

// Output owns the log destination shared by every component logger.
type Output struct {
	w      io.Writer
	closer io.Closer
	mu     sync.Mutex
}

// Open creates the log destination described by cfg.
func Open(cfg Config) *Output {
	if cfg.File == "" {
		return &Output{w: os.Stderr}
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 28
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	out := &Output{w: file, closer: file}
	if cfg.Verbose {
		out.w = io.MultiWriter(file, os.Stderr)
	}
	return out
}

// Discard returns an output that drops everything.
func Discard() *Output {
	return &Output{w: io.Discard}
}

// Logger returns a logger for one component, e.g. Logger("sync").
func (o *Output) Logger(component string) *log.Logger {
	return log.New(o, "["+component+"] ", log.LstdFlags)
}

// Write implements io.Writer. Concurrent writes from different loggers are
// serialized so lines never interleave.
func (o *Output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

// Rotate starts a new log file. It is a no-op for stderr output.
func (o *Output) Rotate() error {
	if lj, ok := o.closer.(*lumberjack.Logger); ok {
		return lj.Rotate()
	}
	return nil
}

// Close flushes and closes the log file.
func (o *Output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}
