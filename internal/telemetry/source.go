package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileDateLayout names daily log files: MMDDYY.
const FileDateLayout = "010206"

// Source supplies the raw bytes of one day's log.
// Fetch returns an error wrapping ErrNotFound when no log exists for date.
type Source interface {
	Fetch(ctx context.Context, date time.Time) ([]byte, error)
}

// Fingerprint identifies a file version cheaply.
type Fingerprint struct {
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Fingerprinter is implemented by sources that can detect file changes
// without reading them.
type Fingerprinter interface {
	Fingerprint(date time.Time) (Fingerprint, error)
}

// DirSource reads MMDDYY<ext> files from a directory.
type DirSource struct {
	dir string
	ext string
	loc *time.Location
}

// NewDirSource returns a source over dir. ext defaults to ".txt" and loc
// to time.Local.
func NewDirSource(dir, ext string, loc *time.Location) *DirSource {
	if ext == "" {
		ext = ".txt"
	}
	if loc == nil {
		loc = time.Local
	}
	return &DirSource{dir: dir, ext: ext, loc: loc}
}

// Dir returns the watched directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// FileName returns the log file name for date.
func (s *DirSource) FileName(date time.Time) string {
	return date.In(s.loc).Format(FileDateLayout) + s.ext
}

// Path returns the full path of the log file for date.
func (s *DirSource) Path(date time.Time) string {
	return filepath.Join(s.dir, s.FileName(date))
}

// Fetch reads the file for date.
func (s *DirSource) Fetch(ctx context.Context, date time.Time) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(date)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Fingerprint stats the file for date. A missing file is reported with
// Exists false and no error.
func (s *DirSource) Fingerprint(date time.Time) (Fingerprint, error) {
	info, err := os.Stat(s.Path(date))
	if err != nil {
		if os.IsNotExist(err) {
			return Fingerprint{}, nil
		}
		return Fingerprint{}, fmt.Errorf("stat %s: %w", s.FileName(date), err)
	}
	return Fingerprint{Exists: true, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Dates lists the calendar dates that have a log file, ascending.
// Files whose names are not MMDDYY<ext> are ignored.
func (s *DirSource) Dates() ([]time.Time, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	var dates []time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base, ok := strings.CutSuffix(e.Name(), s.ext)
		if !ok || len(base) != len(FileDateLayout) {
			continue
		}
		d, err := time.ParseInLocation(FileDateLayout, base, s.loc)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Available returns the range from the earliest to the latest log file.
// It returns ErrNotFound when the directory holds no logs.
func (s *DirSource) Available() (Range, error) {
	dates, err := s.Dates()
	if err != nil {
		return Range{}, err
	}
	if len(dates) == 0 {
		return Range{}, fmt.Errorf("%w: no log files in %s", ErrNotFound, s.dir)
	}
	return Range{Start: dates[0], End: dates[len(dates)-1]}, nil
}
