package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/talmud/media-service/internal/media"
)

const (
	writeChunk     = 1 << 20
	createAttempts = 5
)

// LocalStorage implements Storage on the local filesystem. Objects live in one
// subdirectory per media class under root and are served by Handler.
type LocalStorage struct {
	root      string
	urlPrefix string
	now       func() time.Time
}

// NewLocalStorage creates the per-class directories under root if they are
// missing and returns a ready-to-use LocalStorage. urlPrefix is the public
// path the files are served from, e.g. "/uploads".
func NewLocalStorage(root, urlPrefix string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads directory: %w", err)
	}

	for _, c := range media.Classes {
		dir := filepath.Join(abs, c.Namespace())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", c.Namespace(), err)
		}
	}
	log.Printf("storage: local uploads at %s", abs)

	return &LocalStorage{
		root:      abs,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		now:       time.Now,
	}, nil
}

// Store writes in to a new file named <unix-ms>-<random><ext>. The file is
// created exclusively so an existing object is never overwritten.
func (s *LocalStorage) Store(ctx context.Context, in StoreInput, class media.Class) (*Object, error) {
	ns := class.Namespace()
	if ns == "" {
		return nil, fmt.Errorf("store: %w: %q", media.ErrUnknownClass, class)
	}
	ext := extensionFor(in.Filename, in.ContentType, class)

	var (
		f    *os.File
		name string
		err  error
	)
	for i := 0; i < createAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		name = s.newName(ext)
		f, err = os.OpenFile(filepath.Join(s.root, ns, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	n, err := copyContext(ctx, f, bytes.NewReader(in.Data))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &Object{
		Identifier: name,
		Class:      class,
		URL:        s.publicURL(ns, name),
		Size:       n,
	}, nil
}

// List reads the class directory and stats each regular file.
func (s *LocalStorage) List(ctx context.Context, class media.Class) ([]Object, error) {
	ns := class.Namespace()
	if ns == "" {
		return nil, fmt.Errorf("list: %w: %q", media.ErrUnknownClass, class)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, ns))
	if err != nil {
		return nil, fmt.Errorf("read %s directory: %w", ns, err)
	}

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// removed since ReadDir
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		objects = append(objects, Object{
			Identifier: e.Name(),
			Class:      class,
			URL:        s.publicURL(ns, e.Name()),
			Size:       info.Size(),
		})
	}
	return objects, nil
}

// Delete removes the file named by id. id may be the public URL returned by
// Store, a "<namespace>/<name>" path or a bare name, in which case class
// selects the directory.
func (s *LocalStorage) Delete(ctx context.Context, id string, class media.Class) error {
	p, err := s.resolve(id, class)
	if err != nil {
		return err
	}

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return ErrNotFound
	}

	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// URLPrefix is the public path files are served under.
func (s *LocalStorage) URLPrefix() string { return s.urlPrefix }

// Handler serves stored files. Directory listings are not exposed. The
// Content-Type comes from the media extension table only, never from content
// sniffing; any other extension is served as application/octet-stream.
func (s *LocalStorage) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		if info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))); err == nil && info.IsDir() {
			http.NotFound(w, r)
			return
		}
		ct := media.TypeForExtension(path.Ext(r.URL.Path))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		files.ServeHTTP(w, r)
	})
}

// resolve maps a client-supplied identifier to a path inside one of the class
// directories. Anything that does not land directly in a class directory is
// rejected.
func (s *LocalStorage) resolve(id string, class media.Class) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsRune(id, 0) || strings.Contains(id, `\`) {
		return "", ErrInvalidIdentifier
	}

	rel := strings.TrimPrefix(id, s.urlPrefix+"/")
	if strings.Contains(rel, "..") {
		return "", ErrInvalidIdentifier
	}
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")

	var ns, name string
	switch parts := strings.Split(rel, "/"); len(parts) {
	case 1:
		ns, name = class.Namespace(), parts[0]
	case 2:
		ns, name = parts[0], parts[1]
	default:
		return "", ErrInvalidIdentifier
	}
	if _, ok := media.ClassForNamespace(ns); !ok || name == "" || name == "." {
		return "", ErrInvalidIdentifier
	}

	dir := filepath.Join(s.root, ns)
	p := filepath.Join(dir, name)
	if filepath.Dir(p) != dir {
		return "", ErrInvalidIdentifier
	}
	return p, nil
}

func (s *LocalStorage) newName(ext string) string {
	return fmt.Sprintf("%d-%d%s", s.now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

func (s *LocalStorage) publicURL(ns, name string) string {
	return s.urlPrefix + "/" + ns + "/" + name
}

// copyContext copies src to dst in chunks, stopping when ctx is done.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := io.CopyN(dst, src, writeChunk)
		written += n
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
