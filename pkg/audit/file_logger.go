package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	logFileName     = "audit.log"
	rotatedPattern  = "audit-*.log"
	rotatedStamp    = "2006-01-02-15-04-05.000000000"
	defaultMaxSize  = 100 * 1024 * 1024
	defaultMaxFiles = 10
)

// FileLogger appends events as newline-delimited JSON to audit.log in a
// directory. With rotation on, a write that would push the file past
// MaxSize first moves it aside as audit-<timestamp>.log.
type FileLogger struct {
	mu       sync.Mutex
	dir      string
	file     *os.File
	size     int64
	rotate   bool
	maxSize  int64
	maxFiles int
	logger   *logrus.Logger
}

// FileLoggerConfig configures the file logger
type FileLoggerConfig struct {
	BasePath string // directory holding the audit files
	Rotate   bool
	MaxSize  int64 // bytes per file, default 100MB
	MaxFiles int   // rotated files kept, default 10
	Logger   *logrus.Logger
}

// NewFileLogger opens (or creates) the audit log in config.BasePath
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	l := &FileLogger{
		dir:      config.BasePath,
		rotate:   config.Rotate,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
		logger:   config.Logger,
	}
	if l.logger == nil {
		l.logger = logrus.StandardLogger()
	}
	if l.maxSize <= 0 {
		l.maxSize = defaultMaxSize
	}
	if l.maxFiles <= 0 {
		l.maxFiles = defaultMaxFiles
	}

	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	file, err := os.OpenFile(filepath.Join(l.dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat audit log file: %w", err)
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// Log appends one event
func (l *FileLogger) Log(ctx context.Context, event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("audit log is closed")
	}
	if l.rotate && l.size > 0 && l.size+int64(len(line)) > l.maxSize {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := l.file.Write(line)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (l *FileLogger) rotateLocked() error {
	if err := l.file.Close(); err != nil {
		l.logger.WithError(err).Warn("failed to close audit log before rotation")
	}
	l.file = nil

	current := filepath.Join(l.dir, logFileName)
	rotated := filepath.Join(l.dir, "audit-"+time.Now().UTC().Format(rotatedStamp)+".log")
	if err := os.Rename(current, rotated); err != nil {
		// keep appending to the oversized file rather than losing events
		if reopenErr := l.open(); reopenErr != nil {
			return fmt.Errorf("failed to rotate audit log: %w", errors.Join(err, reopenErr))
		}
		l.logger.WithError(err).Warn("failed to rotate audit log")
		return nil
	}
	l.prune()
	return l.open()
}

// prune drops the oldest rotated files beyond maxFiles
func (l *FileLogger) prune() {
	files, err := l.RotatedFiles()
	if err != nil {
		l.logger.WithError(err).Warn("failed to list rotated audit logs")
		return
	}
	for len(files) > l.maxFiles {
		if err := os.Remove(files[0]); err != nil {
			l.logger.WithError(err).WithField("file", files[0]).Warn("failed to remove old audit log")
		}
		files = files[1:]
	}
}

// RotatedFiles lists rotated log files, oldest first
func (l *FileLogger) RotatedFiles() ([]string, error) {
	return rotatedFiles(l.dir)
}

// Close closes the current file. Closing twice is a no-op.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadLogs returns up to limit events matching filter, oldest first; zero
// limit reads all
func (l *FileLogger) ReadLogs(filter Filter, limit int) ([]*Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ReadDir(l.dir, filter, limit)
}

// ReadDir reads audit events from a log directory without opening it for
// writing. Rotated files are read before the current one.
func ReadDir(dir string, filter Filter, limit int) ([]*Event, error) {
	files, err := rotatedFiles(dir)
	if err != nil {
		return nil, err
	}
	current := filepath.Join(dir, logFileName)
	if _, err := os.Stat(current); err == nil {
		files = append(files, current)
	}

	var events []*Event
	for _, name := range files {
		var done bool
		events, done, err = readFile(name, filter, limit, events)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return events, nil
}

// rotatedFiles relies on the fixed-width timestamp in rotated names: lexical
// order is age order
func rotatedFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, rotatedPattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func readFile(name string, filter Filter, limit int, events []*Event) ([]*Event, bool, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return events, false, nil
			}
			return nil, false, fmt.Errorf("%s: failed to decode audit log entry: %w", filepath.Base(name), err)
		}
		if !filter.Matches(&event) {
			continue
		}
		events = append(events, &event)
		if limit > 0 && len(events) >= limit {
			return events, true, nil
		}
	}
}
