package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidRef = errors.New("invalid media reference")

// Store keeps uploads on local disk under Dir and serves them from PublicURL.
type Store struct {
	Dir       string
	PublicURL string
}

func New(dir, publicURL string) *Store {
	return &Store{Dir: dir, PublicURL: strings.TrimRight(publicURL, "/")}
}

// Save writes r to Dir/folder/<uuid><ext> and returns the public URL and the relative reference.
func (s *Store) Save(ctx context.Context, folder, filename string, r io.Reader) (url, ref string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	ref = path.Join(folder, strings.ReplaceAll(uuid.NewString(), "-", "")+ext)
	full, err := s.resolve(ref)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", "", err
	}
	dst, err := os.Create(full)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(full)
		return "", "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(full)
		return "", "", err
	}
	return s.PublicURL + "/" + ref, ref, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (s *Store) Remove(ctx context.Context, ref string) error {
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps a reference to a path inside Dir, rejecting anything that escapes it.
func (s *Store) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)
	if clean == "/" || clean != "/"+ref {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.Dir, filepath.FromSlash(clean)), nil
}
