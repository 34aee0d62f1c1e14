package logging

import (
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Defaults for NewFileAppender rotation.
const (
	DefaultLogFileMaxSizeMB  = 10
	DefaultLogFileMaxBackups = 3
)

// FileAppender writes console formatted lines to a size-rotated log file.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// NewFileAppender creates an appender that writes to filename, rotating it once it grows past
// DefaultLogFileMaxSizeMB and compressing old files.
func NewFileAppender(filename string) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    DefaultLogFileMaxSizeMB,
		MaxBackups: DefaultLogFileMaxBackups,
		Compress:   true,
	}
	return &FileAppender{
		ConsoleAppender: ConsoleAppender{&sync.Mutex{}, file},
		file:            file,
	}
}

// Close closes the current log file.
func (appender *FileAppender) Close() error {
	return appender.file.Close()
}
