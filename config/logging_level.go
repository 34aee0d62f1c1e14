package config

import (
	"sync"

	"go.viam.com/pulsemonitor/logging"
)

var globalLogger struct {
	// These are set once at startup.
	logger           logging.Logger
	cmdLineDebugFlag bool

	mu        sync.Mutex
	fileLevel logging.Level
}

// InitLoggingSettings initializes the global logging settings. The command line debug flag
// overrides any level a config file sets.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	globalLogger.fileLevel = logging.INFO
	refreshLogLevelInLock()
}

// UpdateFileConfigLevel applies the log level read from a config file.
func UpdateFileConfigLevel(level logging.Level) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.fileLevel = level
	refreshLogLevelInLock()
}

func refreshLogLevelInLock() {
	if globalLogger.logger == nil {
		return
	}
	newLevel := globalLogger.fileLevel
	if globalLogger.cmdLineDebugFlag {
		newLevel = logging.DEBUG
	}
	if globalLogger.logger.GetLevel() == newLevel {
		return
	}
	globalLogger.logger.SetLevel(newLevel)
	globalLogger.logger.Infof("log level set to %s", newLevel)
}
