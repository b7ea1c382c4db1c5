package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aisentools/msfix/internal/fsutil"
	"github.com/aisentools/msfix/internal/journal"
	"github.com/aisentools/msfix/internal/policy"
)

// StampLayout names one repair batch directory.
const StampLayout = "20060102-150405"

var (
	// ErrOutsideProject is returned when a source resolves outside the project root.
	ErrOutsideProject = errors.New("path escapes project root")
	ErrIneligible     = errors.New("path is not eligible for backup")
)

func NewStamp(t time.Time) string {
	return t.Format(StampLayout)
}

// ParseStamp returns the time a batch stamp names. Stamps may carry a
// "-N" suffix when several batches start within the same second.
func ParseStamp(stamp string) (time.Time, error) {
	base, suffix := stamp, ""
	if len(stamp) > len(StampLayout) {
		base, suffix = stamp[:len(StampLayout)], stamp[len(StampLayout):]
	}
	ts, err := time.ParseInLocation(StampLayout, base, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if suffix != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(suffix, "-"))
		if err != nil || !strings.HasPrefix(suffix, "-") || n < 1 {
			return time.Time{}, fmt.Errorf("invalid batch suffix %q", suffix)
		}
	}
	return ts, nil
}

// JournalError reports an operator log write that failed after the file
// operation it describes already succeeded or failed on its own.
type JournalError struct {
	Line string
	Err  error
}

func (e *JournalError) Error() string {
	return fmt.Sprintf("journal %q: %v", e.Line, e.Err)
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// Store writes pre-repair copies of sources under
// <project>/<backup-root>/<stamp>/<relative dir>/<file>.
type Store struct {
	projectRoot string
	policy      *policy.Policy
	journal     *journal.Journal
	mirror      Mirror
}

func New(projectRoot string, pol *policy.Policy, j *journal.Journal) *Store {
	return &Store{projectRoot: projectRoot, policy: pol, journal: j}
}

// WithMirror uploads every successful backup copy to m as well.
func (s *Store) WithMirror(m Mirror) *Store {
	s.mirror = m
	return s
}

// FreeStamp returns the stamp for a batch started at t, suffixed with
// "-1", "-2", ... when that batch directory already exists.
func (s *Store) FreeStamp(t time.Time) string {
	base := NewStamp(t)
	stamp := base
	for n := 1; ; n++ {
		if _, err := os.Lstat(filepath.Join(s.Root(), stamp)); errors.Is(err, os.ErrNotExist) {
			return stamp
		}
		stamp = fmt.Sprintf("%s-%d", base, n)
	}
}

// Root is the absolute backup root directory.
func (s *Store) Root() string {
	return filepath.Join(s.projectRoot, filepath.FromSlash(policy.Normalize(s.policy.BackupRoot)))
}

// Backup copies the current bytes of sourcePath into the batch directory and
// returns the absolute destination. Backing up the same source twice in one
// batch overwrites the earlier copy.
//
// A non-empty destination with a non-nil error means the local copy
// succeeded and only the upload (*MirrorError) or the log line
// (*JournalError) failed.
func (s *Store) Backup(ctx context.Context, sourcePath, stamp string) (string, error) {
	rel, err := s.relative(sourcePath)
	if err != nil {
		return "", s.fail(sourcePath, err)
	}
	if !s.policy.IsEligible(rel) {
		return "", s.fail(sourcePath, fmt.Errorf("%s: %w", rel, ErrIneligible))
	}

	src := filepath.Join(s.projectRoot, filepath.FromSlash(rel))
	dst := filepath.Join(s.Root(), stamp, filepath.FromSlash(rel))

	data, err := os.ReadFile(src)
	if err != nil {
		return "", s.fail(rel, fmt.Errorf("read source: %w", err))
	}
	if err := fsutil.WriteFileAtomic(dst, data); err != nil {
		return "", s.fail(rel, fmt.Errorf("write backup: %w", err))
	}
	jerr := s.log(fmt.Sprintf("BACKUP: %s -> %s", rel, s.display(dst)))

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, stamp, rel, data); err != nil {
			merr := &MirrorError{Path: rel, Err: err}
			return dst, errors.Join(merr, jerr, s.log(fmt.Sprintf("MIRROR FAIL: %s :: %v", rel, err)))
		}
	}
	return dst, jerr
}

// relative resolves sourcePath (absolute or project-relative) to a clean
// slash-separated path under the project root.
func (s *Store) relative(sourcePath string) (string, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return "", fmt.Errorf("empty source path: %w", ErrIneligible)
	}
	p := filepath.FromSlash(strings.ReplaceAll(sourcePath, `\`, "/"))
	if filepath.IsAbs(p) {
		root, err := filepath.Abs(s.projectRoot)
		if err != nil {
			return "", err
		}
		r, err := filepath.Rel(root, p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", sourcePath, ErrOutsideProject)
		}
		p = r
	}
	rel := policy.Normalize(filepath.ToSlash(p))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s: %w", sourcePath, ErrOutsideProject)
	}
	return rel, nil
}

func (s *Store) display(abs string) string {
	if r, err := filepath.Rel(s.projectRoot, abs); err == nil {
		return filepath.ToSlash(r)
	}
	return abs
}

// log appends line to the journal. The result is nil or a *JournalError.
func (s *Store) log(line string) error {
	if err := s.journal.Append(line); err != nil {
		return &JournalError{Line: line, Err: err}
	}
	return nil
}

// fail journals a backup failure and returns err, joined with the log
// write error when that failed too.
func (s *Store) fail(src string, err error) error {
	if jerr := s.log(fmt.Sprintf("BACKUP FAIL: %s :: %v", src, err)); jerr != nil {
		return errors.Join(err, jerr)
	}
	return err
}

// Batch describes one stamped backup directory.
type Batch struct {
	Stamp string
	Time  time.Time
	Files []string // project-relative, slash separated
	Bytes int64
}

// Batches lists backup batches, newest first. A missing backup root yields none.
func (s *Store) Batches() ([]Batch, error) {
	entries, err := os.ReadDir(s.Root())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup root: %w", err)
	}

	var batches []Batch
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, err := ParseStamp(e.Name())
		if err != nil {
			continue
		}
		b, err := s.batch(e.Name())
		if err != nil {
			return nil, err
		}
		b.Time = ts
		batches = append(batches, b)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Stamp > batches[j].Stamp })
	return batches, nil
}

func (s *Store) batch(stamp string) (Batch, error) {
	b := Batch{Stamp: stamp}
	dir := filepath.Join(s.Root(), stamp)
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		b.Files = append(b.Files, filepath.ToSlash(rel))
		b.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return b, fmt.Errorf("read batch %s: %w", stamp, err)
	}
	sort.Strings(b.Files)
	return b, nil
}

// Restore copies every file of a batch back over its original location.
// Files whose original path is no longer eligible are skipped and reported.
func (s *Store) Restore(stamp string) ([]string, []error) {
	if _, err := ParseStamp(stamp); err != nil {
		return nil, []error{fmt.Errorf("invalid batch stamp %q", stamp)}
	}
	b, err := s.batch(stamp)
	if err != nil {
		return nil, []error{err}
	}

	var restored []string
	var errs []error
	for _, rel := range b.Files {
		if !s.policy.IsEligible(rel) {
			errs = append(errs, fmt.Errorf("%s: %w", rel, ErrIneligible))
			continue
		}
		src := filepath.Join(s.Root(), stamp, filepath.FromSlash(rel))
		dst := filepath.Join(s.projectRoot, filepath.FromSlash(rel))
		if err := fsutil.CopyFileAtomic(src, dst); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", rel, err))
			if jerr := s.log(fmt.Sprintf("RESTORE FAIL: %s :: %v", rel, err)); jerr != nil {
				errs = append(errs, jerr)
			}
			continue
		}
		restored = append(restored, rel)
		if jerr := s.log(fmt.Sprintf("RESTORE: %s -> %s", s.display(src), rel)); jerr != nil {
			errs = append(errs, jerr)
		}
	}
	return restored, errs
}
