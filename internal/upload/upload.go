// Package upload stores image blobs and hands back stable URLs. Callers
// only ever hold the URL string.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxImageBytes = 5 << 20

var ErrUnsupportedType = errors.New("only jpeg, jpg, png and gif images are allowed")

var allowedExts = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// Provider is the storage boundary for post images and avatars.
type Provider interface {
	// Save stores the blob and returns the URL it will be served from.
	Save(filename string, r io.Reader) (string, error)
	// Delete removes a previously stored blob by its URL. Best-effort:
	// deleting an unknown URL is not an error.
	Delete(url string) error
}

// Disk keeps blobs in a local directory served under baseURL.
type Disk struct {
	dir     string
	baseURL string
}

func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *Disk) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, io.LimitReader(r, MaxImageBytes+1)); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	info, err := dst.Stat()
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(d.dir, name))
		return "", err
	}
	if info.Size() > MaxImageBytes {
		_ = os.Remove(filepath.Join(d.dir, name))
		return "", fmt.Errorf("file too large, maximum size is %dMB", MaxImageBytes>>20)
	}

	return d.baseURL + "/" + name, nil
}

func (d *Disk) Delete(url string) error {
	if url == "" || !strings.HasPrefix(url, d.baseURL+"/") {
		return nil
	}
	name := path.Base(strings.TrimPrefix(url, d.baseURL+"/"))
	if name == "." || name == "/" {
		return nil
	}
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir exposes the storage directory for static file serving.
func (d *Disk) Dir() string {
	return d.dir
}
