// Package file implements uploading, listing and deleting media files on the
// active storage backend.
package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talmud/media-service/internal/media"
	"github.com/talmud/media-service/internal/storage"
)

var (
	// ErrNoFile is returned when a request carries no "file" part.
	ErrNoFile = errors.New("no file received")
	// ErrMissingIdentifier is returned when a delete names no object.
	ErrMissingIdentifier = errors.New("missing identifier")
)

// BackendError wraps a failure of the storage backend. Its message is the
// backend's own.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return e.Err.Error() }

func (e *BackendError) Unwrap() error { return e.Err }

// UploadInput is a single buffered upload.
type UploadInput struct {
	Data        []byte
	ContentType string
	Filename    string
	Class       media.Class
}

// Listing holds every stored object, grouped by class.
type Listing struct {
	Audio  []storage.Object
	Images []storage.Object
}

// Total is the number of objects in the listing.
func (l *Listing) Total() int {
	return len(l.Audio) + len(l.Images)
}

// Service contains the upload pipeline. It keeps no state of its own; the
// backend is the single source of truth.
type Service struct {
	store         storage.Storage
	validator     *media.Validator
	uploadTimeout time.Duration
}

// NewService creates a new file Service. A zero uploadTimeout disables the
// per-upload deadline.
func NewService(store storage.Storage, validator *media.Validator, uploadTimeout time.Duration) *Service {
	return &Service{store: store, validator: validator, uploadTimeout: uploadTimeout}
}

// CheckType reports whether contentType may be uploaded as class.
func (s *Service) CheckType(contentType string, class media.Class) error {
	return s.validator.CheckType(contentType, class)
}

// MaxSize is the largest accepted upload in bytes.
func (s *Service) MaxSize() int64 {
	return s.validator.MaxSize()
}

// Upload validates in and persists it on the backend. Nothing reaches the
// backend unless validation passes.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*storage.Object, error) {
	if in.Data == nil {
		return nil, ErrNoFile
	}
	if err := s.validator.Validate(in.ContentType, in.Class, int64(len(in.Data))); err != nil {
		return nil, err
	}

	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	obj, err := s.store.Store(ctx, storage.StoreInput{
		Data:        in.Data,
		ContentType: media.NormalizeType(in.ContentType),
		Filename:    in.Filename,
	}, in.Class)
	if err != nil {
		return nil, &BackendError{Op: "store", Err: err}
	}
	return obj, nil
}

// List fetches both classes concurrently. The first failure fails the whole
// listing.
func (s *Service) List(ctx context.Context) (*Listing, error) {
	var l Listing
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		objs, err := s.store.List(ctx, media.Audio)
		if err != nil {
			return &BackendError{Op: "list audio", Err: err}
		}
		l.Audio = objs
		return nil
	})
	g.Go(func() error {
		objs, err := s.store.List(ctx, media.Image)
		if err != nil {
			return &BackendError{Op: "list images", Err: err}
		}
		l.Images = objs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if l.Audio == nil {
		l.Audio = []storage.Object{}
	}
	if l.Images == nil {
		l.Images = []storage.Object{}
	}
	return &l, nil
}

// Delete removes the object named by id. Not-found and invalid identifiers are
// returned as is; anything else is a BackendError.
func (s *Service) Delete(ctx context.Context, id string, class media.Class) error {
	if id == "" {
		return ErrMissingIdentifier
	}
	err := s.store.Delete(ctx, id, class)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidIdentifier):
		return err
	}
	return &BackendError{Op: "delete", Err: fmt.Errorf("delete %q: %w", id, err)}
}
