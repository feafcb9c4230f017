package autobot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// WeekLayout names weekly bucket folders.
	WeekLayout = "2006-01-02"

	// LedgerDateLayout is the day/month/year format stored in the ledger.
	LedgerDateLayout = "02/01/2006 15:04:05"
)

// WeekStart returns midnight of the Sunday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekFolder returns the bucket folder name for the week containing t.
func WeekFolder(t time.Time) string {
	return WeekStart(t).Format(WeekLayout)
}

// SafeLabel turns a display name into a single path element. Separators
// become underscores and a leading dot is escaped so names can't climb out
// of the bucket or hide files.
func SafeLabel(name string) string {
	label := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if label == "" {
		return "_"
	}
	if strings.HasPrefix(label, ".") {
		label = "_" + label[1:]
	}
	return label
}

// Paths derives bucket directories under the image root.
type Paths struct {
	root string
}

func NewPaths(root string) *Paths {
	return &Paths{root: root}
}

func (p *Paths) Root() string { return p.root }

// BucketPath returns <root>/<week>/<channel>/<author> for the week containing
// t and creates it if missing.
func (p *Paths) BucketPath(t time.Time, channelLabel, authorLabel string) (string, error) {
	dir := filepath.Join(p.root, WeekFolder(t), SafeLabel(channelLabel), SafeLabel(authorLabel))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating bucket directory: %w", err)
	}
	return dir, nil
}

// ArchivePath returns <root>/<archive>/<year>/<channel>/<author> and creates
// it if missing.
func (p *Paths) ArchivePath(archiveDir, year, channelLabel, authorLabel string) (string, error) {
	dir := filepath.Join(p.root, archiveDir, year, channelLabel, authorLabel)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}
	return dir, nil
}
