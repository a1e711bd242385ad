package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	assert := require.New(t)

	e := &log.Entry{
		Time:    time.Date(2026, time.October, 19, 8, 5, 9, 0, time.UTC),
		Message: "poller: sample received",
		Data: log.Fields{
			"server":    "192.0.2.1:123",
			"offset_ms": 80.5,
		},
	}

	assert.Equal("[2026-10-19 08:05:09]:poller: sample received offset_ms=80.5 server=192.0.2.1:123\n", FormatLine(e))
}

func TestFileHook(t *testing.T) {
	assert := require.New(t)

	dir := filepath.Join(t.TempDir(), "logs")
	h := NewFileHook(dir)
	defer h.Close()

	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.AddHook(h)

	day1 := time.Date(2026, time.October, 19, 23, 59, 59, 0, time.UTC)
	day2 := day1.Add(2 * time.Second)

	logger.WithTime(day1).Info("first")
	logger.WithTime(day1).WithError(errors.New("timeout")).Error("second")
	logger.WithTime(day2).Info("third")

	b, err := os.ReadFile(filepath.Join(dir, "ntpdate_20261019.log"))
	assert.NoError(err)
	assert.Equal("[2026-10-19 23:59:59]:first\n[2026-10-19 23:59:59]:second error=timeout\n", string(b))

	b, err = os.ReadFile(filepath.Join(dir, "ntpdate_20261020.log"))
	assert.NoError(err)
	assert.Equal("[2026-10-20 00:00:01]:third\n", string(b))
}
