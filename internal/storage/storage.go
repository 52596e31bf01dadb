// Package storage defines the interface for media persistence.
// Swap implementations by changing the concrete type injected at startup:
// LocalStorage writes to a directory tree, MinioStorage works with any
// S3-compatible provider (MinIO, AWS S3, ArvanCloud).
package storage

import (
	"context"
	"errors"
	"net/http"

	"github.com/talmud/media-service/internal/media"
)

var (
	// ErrNotFound is returned when an identifier names no stored object.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidIdentifier is returned for identifiers that cannot name an
	// object of this backend, e.g. paths escaping the uploads root.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Object is a stored media file.
type Object struct {
	Identifier string      `json:"identifier"`
	Class      media.Class `json:"type"`
	URL        string      `json:"url"`
	Size       int64       `json:"size"`
}

// StoreInput is a fully buffered upload.
type StoreInput struct {
	Data        []byte
	ContentType string
	// Filename is the client-supplied name, used only for its extension.
	Filename string
}

// Storage is the interface every backend implements.
type Storage interface {
	// Store persists in under the namespace of class. Every call creates a
	// new object; identical content stored twice yields two objects.
	Store(ctx context.Context, in StoreInput, class media.Class) (*Object, error)
	// List returns the objects of class currently held by the backend, in no
	// particular order.
	List(ctx context.Context, class media.Class) ([]Object, error)
	// Delete removes the object named by id. class disambiguates the
	// namespace for backends that need it.
	Delete(ctx context.Context, id string, class media.Class) error
}

// StaticServer is implemented by backends whose objects are served by this
// process rather than by a remote provider.
type StaticServer interface {
	// URLPrefix is the path under which Handler must be mounted.
	URLPrefix() string
	Handler() http.Handler
}
