package file

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/talmud/media-service/internal/media"
	"github.com/talmud/media-service/internal/response"
	"github.com/talmud/media-service/internal/storage"
)

var errInvalidRequest = errors.New("invalid request")

// bodyError classifies a failure while reading the request body.
func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request body exceeds %d bytes", media.ErrPayloadTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", errInvalidRequest, err)
}

// writeError logs err with request context and maps known conditions to
// client responses. Backend failures are logged in full; their message reaches
// the client only when exposeErrors is set.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	reqID := chiMiddleware.GetReqID(r.Context())

	var backendErr *BackendError
	switch {
	case errors.Is(err, ErrNoFile):
		response.BadRequest(w, ErrNoFile.Error())
	case errors.Is(err, media.ErrUnsupportedFormat):
		response.BadRequest(w, media.ErrUnsupportedFormat.Error())
	case errors.Is(err, media.ErrPayloadTooLarge):
		response.PayloadTooLarge(w, err.Error())
	case errors.Is(err, ErrMissingIdentifier):
		response.BadRequest(w, ErrMissingIdentifier.Error())
	case errors.Is(err, storage.ErrInvalidIdentifier):
		response.BadRequest(w, storage.ErrInvalidIdentifier.Error())
	case errors.Is(err, storage.ErrNotFound):
		response.NotFound(w, storage.ErrNotFound.Error())
	case errors.Is(err, errInvalidRequest):
		response.BadRequest(w, strings.TrimPrefix(err.Error(), errInvalidRequest.Error()+": "))
	case errors.As(err, &backendErr):
		log.Printf("[%s] %s failed: %s: %v", reqID, op, backendErr.Op, backendErr.Err)
		if h.exposeErrors {
			response.InternalError(w, backendErr.Error())
		} else {
			response.InternalError(w, fmt.Sprintf("%s failed", op))
		}
		return
	default:
		log.Printf("[%s] %s failed: %v", reqID, op, err)
		response.InternalError(w, "")
		return
	}
	log.Printf("[%s] %s rejected: %v", reqID, op, err)
}
