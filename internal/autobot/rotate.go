package autobot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	DefaultArchiveDir  = "archive"
	DefaultRetainWeeks = 4
)

// Matcher decides whether a path relative to the image root is left alone.
type Matcher interface {
	Match(relativePath string) bool
}

// RotatorOptions configures a Rotator. Zero values pick the defaults.
type RotatorOptions struct {
	ArchiveDir  string
	RetainWeeks int
	Location    *time.Location
	Ignore      Matcher
	// Vault, when set, receives a copy of every archived file.
	Vault Vault
	// Encryptor, when set, encrypts mirrored copies.
	Encryptor Encryptor
	Recorder  Recorder
}

// RotationReport summarizes one rotation run.
type RotationReport struct {
	Kept           []string
	Archived       int
	Ignored        int
	SkippedWeeks   int
	MirrorFailures int
	DirsRemoved    int
}

// Rotator moves images out of weekly buckets that fell out of the retention
// window into <root>/<archive>/<year>/<channel>/<author>/. It never reads
// or writes the ledger.
type Rotator struct {
	paths  *Paths
	namer  *Namer
	clock  Clock
	logger Logger
	opts   RotatorOptions
}

func NewRotator(paths *Paths, namer *Namer, clock Clock, logger Logger, opts RotatorOptions) *Rotator {
	if opts.ArchiveDir == "" {
		opts.ArchiveDir = DefaultArchiveDir
	}
	if opts.RetainWeeks <= 0 {
		opts.RetainWeeks = DefaultRetainWeeks
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}
	return &Rotator{paths: paths, namer: namer, clock: clock, logger: logger, opts: opts}
}

// KeptWeeks returns the bucket names inside the retention window: the
// current week and the RetainWeeks-1 weeks before it.
func (r *Rotator) KeptWeeks(now time.Time) []string {
	now = now.In(r.opts.Location)
	weeks := make([]string, 0, r.opts.RetainWeeks)
	for i := 0; i < r.opts.RetainWeeks; i++ {
		weeks = append(weeks, WeekFolder(now.AddDate(0, 0, -7*i)))
	}
	return weeks
}

// Run performs one rotation pass and prunes the directories its moves left
// empty. Retained weeks are never touched, so live ingestion can keep
// creating buckets while a pass runs.
func (r *Rotator) Run(ctx context.Context) (*RotationReport, error) {
	root := r.paths.Root()
	report := &RotationReport{Kept: r.KeptWeeks(r.clock.Now())}

	keep := make(map[string]bool, len(report.Kept))
	for _, w := range report.Kept {
		keep[w] = true
	}

	weeks, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report, nil
		}
		return nil, fmt.Errorf("listing image root: %w", err)
	}

	var rotated []string
	for _, week := range weeks {
		name := week.Name()
		if !week.IsDir() || name == r.opts.ArchiveDir || keep[name] {
			continue
		}
		if _, err := time.Parse(WeekLayout, name); err != nil {
			r.logger.Warn("skipping folder that is not a week bucket", "folder", name)
			report.SkippedWeeks++
			continue
		}

		if err := r.rotateWeek(ctx, name, report); err != nil {
			return report, err
		}
		rotated = append(rotated, name)
	}

	for _, name := range rotated {
		removed, err := pruneTree(filepath.Join(root, name))
		report.DirsRemoved += removed
		if err != nil {
			return report, err
		}
	}

	r.logger.Info("rotation complete", "archived", report.Archived, "dirs_removed", report.DirsRemoved)
	return report, nil
}

func (r *Rotator) rotateWeek(ctx context.Context, week string, report *RotationReport) error {
	year := week[:4]
	weekDir := filepath.Join(r.paths.Root(), week)

	channels, err := subdirs(weekDir)
	if err != nil {
		return err
	}
	for _, channel := range channels {
		authors, err := subdirs(filepath.Join(weekDir, channel))
		if err != nil {
			return err
		}
		for _, author := range authors {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.rotateLeaf(ctx, week, year, channel, author, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Rotator) rotateLeaf(ctx context.Context, week, year, channel, author string, report *RotationReport) error {
	root := r.paths.Root()
	leaf := filepath.Join(root, week, channel, author)

	entries, err := os.ReadDir(leaf)
	if err != nil {
		return fmt.Errorf("listing %s: %w", leaf, err)
	}

	var dest string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		rel := filepath.Join(week, channel, author, e.Name())
		if r.opts.Ignore != nil && r.opts.Ignore.Match(rel) {
			report.Ignored++
			continue
		}

		if dest == "" {
			dest, err = r.paths.ArchivePath(r.opts.ArchiveDir, year, channel, author)
			if err != nil {
				return err
			}
		}

		target, err := r.move(filepath.Join(leaf, e.Name()), dest, author)
		if err != nil {
			return err
		}
		report.Archived++
		r.opts.Recorder.FileArchived()
		r.logger.Debug("archived file", "from", rel, "to", target)

		if err := r.mirror(ctx, target); err != nil {
			r.logger.Error("mirroring archived file failed", "path", target, "error", err)
			report.MirrorFailures++
			r.opts.Recorder.MirrorFailed()
		}
	}
	return nil
}

// move renames src over a freshly reserved name in dest.
func (r *Rotator) move(src, dest, author string) (string, error) {
	f, target, err := r.namer.Reserve(dest, author, filepath.Ext(src))
	if err != nil {
		return "", err
	}
	f.Close()

	if err := os.Rename(src, target); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("moving %s: %w", src, err)
	}
	return target, nil
}

func (r *Rotator) mirror(ctx context.Context, path string) error {
	if r.opts.Vault == nil {
		return nil
	}

	rel, err := filepath.Rel(r.paths.Root(), path)
	if err != nil {
		return fmt.Errorf("computing vault key: %w", err)
	}
	key := filepath.ToSlash(rel)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if r.opts.Encryptor == nil {
		return r.opts.Vault.Put(ctx, key, f)
	}

	pr, pw := io.Pipe()
	encErr := make(chan error, 1)
	go func() {
		err := r.opts.Encryptor.Encrypt(f, pw)
		pw.CloseWithError(err)
		encErr <- err
	}()
	err = r.opts.Vault.Put(ctx, key+".age", pr)
	// Unblocks the encryptor if Put stopped reading early.
	pr.CloseWithError(err)
	if eerr := <-encErr; err == nil && eerr != nil {
		return fmt.Errorf("encrypting %s: %w", path, eerr)
	}
	return err
}

// pruneTree removes the empty directories below dir, then dir itself if it
// ended up empty.
func pruneTree(dir string) (int, error) {
	removed, err := RemoveEmptyDirs(dir)
	if err != nil {
		return removed, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return removed, nil
		}
		return removed, fmt.Errorf("listing %s: %w", dir, err)
	}
	if len(entries) > 0 {
		return removed, nil
	}
	if err := os.Remove(dir); err != nil {
		return removed, fmt.Errorf("removing %s: %w", dir, err)
	}
	return removed + 1, nil
}

// RemoveEmptyDirs deletes every empty directory below root, deepest first,
// and returns how many were removed. root itself is kept.
func RemoveEmptyDirs(root string) (int, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("listing %s: %w", dir, err)
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			return removed, fmt.Errorf("removing %s: %w", dir, err)
		}
		removed++
	}
	return removed, nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
