package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// FileHook appends log entries to a daily log file named
// ntpdate_YYYYMMDD.log. Each line has the format
// [yyyy-MM-dd HH:mm:ss]:message key=value.
type FileHook struct {
	mu   sync.Mutex
	dir  string
	day  string
	file *os.File
}

// NewFileHook creates a new FileHook writing to the given directory.
func NewFileHook(dir string) *FileHook {
	return &FileHook{dir: dir}
}

// Levels returns all levels.
func (h *FileHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire writes the entry to the log file of the entry's day.
func (h *FileHook) Fire(e *log.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	day := e.Time.Format("20060102")
	if h.file == nil || h.day != day {
		if err := h.open(day); err != nil {
			return err
		}
	}

	if _, err := h.file.WriteString(FormatLine(e)); err != nil {
		return errors.Wrap(err, "write log file error")
	}
	return nil
}

// Close closes the current log file.
func (h *FileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}

func (h *FileHook) open(day string) error {
	if h.file != nil {
		h.file.Close()
		h.file = nil
	}

	if err := os.MkdirAll(h.dir, 0755); err != nil {
		return errors.Wrap(err, "create log directory error")
	}

	f, err := os.OpenFile(filepath.Join(h.dir, FileName(day)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "open log file error")
	}

	h.file = f
	h.day = day
	return nil
}

// FileName returns the log file name for the given day (YYYYMMDD).
func FileName(day string) string {
	return "ntpdate_" + day + ".log"
}

// FormatLine formats the entry as a single log-file line.
func FormatLine(e *log.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]:%s", e.Time.Format("2006-01-02 15:04:05"), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Data[k])
	}

	sb.WriteString("\n")
	return sb.String()
}
