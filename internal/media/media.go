// Package media defines the media classes accepted by the service and the
// rules an upload must satisfy before it reaches a storage backend.
package media

import (
	"errors"
	"fmt"
	"mime"
	"slices"
	"strings"
)

// Class is the kind of media an upload route accepts.
type Class string

const (
	Audio Class = "audio"
	Image Class = "image"
)

// Classes lists every supported media class.
var Classes = []Class{Audio, Image}

// DefaultMaxSize is the largest accepted upload, 50 MiB.
const DefaultMaxSize int64 = 50 << 20

var (
	// ErrUnsupportedFormat is returned for MIME types outside the allow-lists.
	ErrUnsupportedFormat = errors.New("unsupported format. Audio: mp3, wav, ogg, m4a. Image: jpg, png, gif, webp")
	// ErrPayloadTooLarge is returned when an upload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("file too large")
	// ErrUnknownClass is returned when parsing an unrecognised class name.
	ErrUnknownClass = errors.New("unknown media class")
)

var allowed = map[Class][]string{
	Audio: {"audio/mpeg", "audio/mp3", "audio/wav", "audio/ogg", "audio/m4a"},
	Image: {"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"},
}

// extensions maps the file extensions each class may be stored under to the
// Content-Type they are served with.
var extensions = map[Class]map[string]string{
	Audio: {".mp3": "audio/mpeg", ".wav": "audio/wav", ".ogg": "audio/ogg", ".m4a": "audio/mp4"},
	Image: {".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png", ".gif": "image/gif", ".webp": "image/webp"},
}

// canonicalExt is the extension used when a filename carries none of its class.
var canonicalExt = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp3":  ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
	"audio/m4a":  ".m4a",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Namespace is the folder a class is stored under.
func (c Class) Namespace() string {
	switch c {
	case Audio:
		return "audio"
	case Image:
		return "images"
	}
	return ""
}

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	_, ok := allowed[c]
	return ok
}

func (c Class) String() string { return string(c) }

// AllowsExtension reports whether ext (with leading dot, any case) is one of
// the extensions files of class c are stored under.
func (c Class) AllowsExtension(ext string) bool {
	_, ok := extensions[c][strings.ToLower(ext)]
	return ok
}

// CanonicalExtension returns the extension for an allowed content type, or ""
// when the type is not in any allow-list.
func CanonicalExtension(contentType string) string {
	return canonicalExt[NormalizeType(contentType)]
}

// TypeForExtension returns the Content-Type a stored file with extension ext
// is served as, or "" when ext belongs to no class.
func TypeForExtension(ext string) string {
	ext = strings.ToLower(ext)
	for _, c := range Classes {
		if ct, ok := extensions[c][ext]; ok {
			return ct
		}
	}
	return ""
}

// ParseClass maps a class name, a namespace or a provider resource type to a
// Class. "video" is accepted for audio because object providers without an
// audio category file audio under video.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audio", "video":
		return Audio, nil
	case "image", "images":
		return Image, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownClass, s)
}

// ClassForNamespace returns the class stored under the given folder.
func ClassForNamespace(ns string) (Class, bool) {
	for _, c := range Classes {
		if c.Namespace() == ns {
			return c, true
		}
	}
	return "", false
}

// AllowedTypes returns a copy of the allow-list for c.
func AllowedTypes(c Class) []string {
	return slices.Clone(allowed[c])
}

// NormalizeType lower-cases a declared Content-Type and strips parameters.
func NormalizeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Validator checks uploads against the allow-lists and a size limit.
type Validator struct {
	maxSize int64
}

// NewValidator returns a Validator enforcing maxSize. A non-positive maxSize
// falls back to DefaultMaxSize.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Validator{maxSize: maxSize}
}

// MaxSize is the largest accepted payload in bytes.
func (v *Validator) MaxSize() int64 { return v.maxSize }

// CheckType accepts contentType only when it is in the allow-list of class.
func (v *Validator) CheckType(contentType string, class Class) error {
	if !slices.Contains(allowed[class], NormalizeType(contentType)) {
		return ErrUnsupportedFormat
	}
	return nil
}

// CheckSize rejects payloads above the limit.
func (v *Validator) CheckSize(size int64) error {
	if size > v.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrPayloadTooLarge, size, v.maxSize)
	}
	return nil
}

// Validate runs both checks, type first.
func (v *Validator) Validate(contentType string, class Class, size int64) error {
	if err := v.CheckType(contentType, class); err != nil {
		return err
	}
	return v.CheckSize(size)
}
