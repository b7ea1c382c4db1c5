package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal is the append-only, one-file-per-day operator log.
// Lines look like "15:04:05 <message>".
type Journal struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

func New(dir string) *Journal {
	return &Journal{dir: dir, now: time.Now}
}

// WithClock replaces the time source, mainly for tests.
func (j *Journal) WithClock(now func() time.Time) *Journal {
	j.now = now
	return j
}

func (j *Journal) Dir() string {
	return j.dir
}

// PathFor returns the log file that holds entries written at t.
func (j *Journal) PathFor(t time.Time) string {
	return filepath.Join(j.dir, fmt.Sprintf("missing-scripts-%s.log", t.Format("20060102")))
}

func (j *Journal) Append(msg string) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(j.PathFor(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s %s\n", now.Format("15:04:05"), msg); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func (j *Journal) Appendf(format string, args ...any) error {
	return j.Append(fmt.Sprintf(format, args...))
}
