// Package debug provides lightweight diagnostic logging. Output goes to
// stderr when IMS_DEBUG is set, and is mirrored to a size-rotated log file
// when one is configured.
package debug

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.Mutex
	fileMu sync.Once
	file   *lumberjack.Logger
)

// Enabled reports whether debug output to stderr is on.
func Enabled() bool {
	return os.Getenv("IMS_DEBUG") != ""
}

// SetLogFile directs a mirror of all Logf output to the given path with
// size-based rotation. Safe to call once at startup; subsequent calls are
// ignored.
func SetLogFile(path string, maxSizeMB, maxBackups int) {
	if path == "" {
		return
	}
	fileMu.Do(func() {
		file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			Compress:   true,
		}
	})
}

// Logf writes a diagnostic line. Cheap when disabled and no log file is
// configured.
func Logf(format string, args ...interface{}) {
	if !Enabled() && file == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	line := fmt.Sprintf(format, args...)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	if Enabled() {
		fmt.Fprint(os.Stderr, line)
	}
	if file != nil {
		fmt.Fprintf(file, "%s %s", time.Now().Format(time.RFC3339), line)
	}
}
