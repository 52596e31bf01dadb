package storage

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/talmud/media-service/internal/media"
)

// extensionFor picks the extension of a stored object. The client filename's
// extension is kept only when it belongs to class; otherwise the extension
// follows the validated content type.
func extensionFor(filename, contentType string, class media.Class) string {
	if ext := filepath.Ext(filename); class.AllowsExtension(ext) {
		return strings.ToLower(ext)
	}
	if mt := mimetype.Lookup(media.NormalizeType(contentType)); mt != nil && class.AllowsExtension(mt.Extension()) {
		return mt.Extension()
	}
	if ext := media.CanonicalExtension(contentType); class.AllowsExtension(ext) {
		return ext
	}
	return ""
}
