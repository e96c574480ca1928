// Package archive keeps the single current image and status page per (location, category).
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

const (
	imageExt  = ".jpg"
	pageName  = "index.html"
	tmpPrefix = ".tmp-"
)

// Options configures the archive layout and page rendering.
type Options struct {
	Root          string
	PublicBaseURL string
	Brand         string
	Location      *time.Location
}

// Store writes archived images and pages under Root.
type Store struct {
	root          string
	publicBaseURL string
	brand         string
	loc           *time.Location
}

var (
	_ ports.ImageArchive = (*Store)(nil)
	_ ports.PageRenderer = (*Store)(nil)
)

// New builds a Store; the root directory is created lazily.
func New(opts Options) *Store {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		root:          opts.Root,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		brand:         opts.Brand,
		loc:           loc,
	}
}

// Root returns the archive root directory.
func (s *Store) Root() string {
	return s.root
}

// Put writes image as <date>.jpg in the key's directory and returns its path relative to Root.
// The file appears atomically: it is written to a temp file and renamed into place.
func (s *Store) Put(ctx context.Context, key domain.Key, date domain.PostDate, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", fmt.Errorf("empty image for %s", key)
	}

	dir, rel, err := s.keyDir(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	name := date.String() + imageExt
	if err := writeAtomic(dir, name, image); err != nil {
		return "", fmt.Errorf("write image %s/%s: %w", key, name, err)
	}
	return filepath.ToSlash(filepath.Join(rel, name)), nil
}

// Prune removes every archived image of key except the one dated keep.
func (s *Store) Prune(ctx context.Context, key domain.Key, keep domain.PostDate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, _, err := s.keyDir(key)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read archive dir: %w", err)
	}

	keepName := keep.String() + imageExt
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == keepName {
			continue
		}
		if !strings.HasSuffix(name, imageExt) && !strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale %s: %w", name, err)
		}
	}
	return nil
}

// Images lists the archived image file names of key.
func (s *Store) Images(key domain.Key) ([]string, error) {
	dir, _, err := s.keyDir(key)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), imageExt) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// PagePath returns the absolute path of the key's status page.
func (s *Store) PagePath(key domain.Key) (string, error) {
	dir, _, err := s.keyDir(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, pageName), nil
}

func (s *Store) keyDir(key domain.Key) (string, string, error) {
	if s.root == "" {
		return "", "", fmt.Errorf("archive root is not configured")
	}
	if err := safeSegment(key.Location); err != nil {
		return "", "", fmt.Errorf("location: %w", err)
	}
	if !key.Category.Valid() {
		return "", "", fmt.Errorf("unknown category %q", key.Category)
	}

	rel := filepath.Join(key.Location, key.Category.Label())
	return filepath.Join(s.root, rel), rel, nil
}

func safeSegment(segment string) error {
	if strings.TrimSpace(segment) == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `/\`) {
		return fmt.Errorf("invalid path segment %q", segment)
	}
	return nil
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
