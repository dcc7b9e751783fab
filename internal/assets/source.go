package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
)

var (
	// ErrDecode wraps asset bytes that could not be decoded. Decode errors are never retried.
	ErrDecode = errors.New("assets: decode")
	// ErrNoSource is returned by MuxSource for a reference no source handles.
	ErrNoSource = errors.New("assets: no source for reference")
)

// Source returns the raw bytes behind an asset reference.
type Source interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// StatusError is a non-200 HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assets: %s: HTTP %d", e.URL, e.Code)
}

// ErrTooLarge is returned for a response body over the source's size limit.
var ErrTooLarge = errors.New("assets: response too large")

// permanent reports errors that retrying cannot fix.
func permanent(err error) bool {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrDecode) || errors.Is(err, ErrNoSource) ||
		errors.Is(err, ErrTooLarge) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 400 && se.Code < 500 && se.Code != 408 && se.Code != 429
	}
	return false
}

// FSSource reads assets from a hackpadfs file system. References are slash separated and relative
// to the file system root; a leading slash is ignored.
type FSSource struct {
	fs hackpadfs.FS
}

// NewFSSource returns a Source reading from fsys.
func NewFSSource(fsys hackpadfs.FS) *FSSource {
	return &FSSource{fs: fsys}
}

// OSSource returns a Source reading from the directory root of the host file system.
func OSSource(root string) (*FSSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	ofs := osfs.NewFS()
	dir, err := ofs.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	sub, err := ofs.Sub(dir)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	return NewFSSource(sub), nil
}

// Read returns the file named by ref.
func (s *FSSource) Read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := normPath(ref)
	data, err := hackpadfs.ReadFile(s.fs, name)
	if err != nil {
		return nil, fmt.Errorf("assets: read %s: %w", name, err)
	}
	return data, nil
}

func normPath(p string) string {
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

// MuxSource routes references by scheme: "http://" and "https://" go to Remote, everything else
// to Local. A nil route answers ErrNoSource.
type MuxSource struct {
	Local  Source
	Remote Source
}

func (m MuxSource) Read(ctx context.Context, ref string) ([]byte, error) {
	src := m.Local
	if isRemote(ref) {
		src = m.Remote
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, ref)
	}
	return src.Read(ctx, ref)
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
