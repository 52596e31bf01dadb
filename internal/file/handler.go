package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/talmud/media-service/internal/media"
	"github.com/talmud/media-service/internal/response"
	"github.com/talmud/media-service/internal/storage"
)

// multipartOverhead is the allowance for boundaries and part headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler holds HTTP handlers for file endpoints.
type Handler struct {
	svc          *Service
	maxBodyBytes int64
	exposeErrors bool
}

// NewHandler creates a new file Handler. maxBodyBytes limits JSON bodies;
// exposeErrors controls whether backend error messages reach clients.
func NewHandler(svc *Service, maxBodyBytes int64, exposeErrors bool) *Handler {
	return &Handler{svc: svc, maxBodyBytes: maxBodyBytes, exposeErrors: exposeErrors}
}

type uploadData struct {
	Success    bool   `json:"success"    example:"true"`
	URL        string `json:"url"        example:"/uploads/images/1700000000000-123456789.png"`
	Identifier string `json:"identifier" example:"1700000000000-123456789.png"`
	Size       int64  `json:"size"       example:"10"`
}

type fileEntry struct {
	Identifier string      `json:"identifier" example:"1700000000000-123456789.mp3"`
	Name       string      `json:"name"       example:"1700000000000-123456789.mp3"`
	Type       media.Class `json:"type"       example:"audio"`
	URL        string      `json:"url"        example:"/uploads/audio/1700000000000-123456789.mp3"`
	Size       int64       `json:"size"       example:"48213"`
}

type listData struct {
	Audio  []fileEntry `json:"audio"`
	Images []fileEntry `json:"images"`
	Total  int         `json:"total" example:"2"`
}

type deleteRequest struct {
	Identifier   string `json:"identifier"   example:"/uploads/audio/1700000000000-123456789.mp3"`
	URL          string `json:"url"          example:"/uploads/audio/1700000000000-123456789.mp3"`
	PublicID     string `json:"publicId"     example:"talmud/audio/0b1c5a5e-0d8c-4f57-9d3a-2f9b8c1f4d1e.mp3"`
	ResourceType string `json:"resourceType" example:"audio" validate:"omitempty,oneof=audio image video"`
}

type deleteData struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"file deleted"`
}

// UploadAudio godoc
//
//	@Summary		Upload audio
//	@Description	Store one audio file (mp3, wav, ogg, m4a; at most 50 MiB) sent as multipart field "file".
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Audio file"
//	@Success		200		{object}	uploadData
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/upload/audio [post]
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, media.Audio)
}

// UploadImage godoc
//
//	@Summary		Upload image
//	@Description	Store one image (jpg, png, gif, webp; at most 50 MiB) sent as multipart field "file".
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	uploadData
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/upload/image [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, media.Image)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, class media.Class) {
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.MaxSize()+multipartOverhead)

	in, err := h.readUpload(r, class)
	if err != nil {
		h.writeError(w, r, "upload "+class.String(), err)
		return
	}

	obj, err := h.svc.Upload(r.Context(), *in)
	if err != nil {
		h.writeError(w, r, "upload "+class.String(), err)
		return
	}

	response.OK(w, uploadData{
		Success:    true,
		URL:        obj.URL,
		Identifier: obj.Identifier,
		Size:       obj.Size,
	})
}

// readUpload streams the multipart body and buffers the single "file" part.
// The declared type is checked before the part is read, and the read stops
// one byte past the size limit.
func (h *Handler) readUpload(r *http.Request, class media.Class) (*UploadInput, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		// not a multipart request
		return nil, ErrNoFile
	}

	var in *UploadInput
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, bodyError(err)
		}

		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if in != nil {
			_ = part.Close()
			return nil, fmt.Errorf("%w: only one file may be uploaded", errInvalidRequest)
		}

		next, err := h.readPart(part, class)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		in = next
	}

	if in == nil {
		return nil, ErrNoFile
	}
	return in, nil
}

func (h *Handler) readPart(part *multipart.Part, class media.Class) (*UploadInput, error) {
	contentType := part.Header.Get("Content-Type")
	if err := h.svc.CheckType(contentType, class); err != nil {
		return nil, err
	}

	limit := h.svc.MaxSize()
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return nil, bodyError(err)
	}
	if int64(len(data)) > limit {
		return nil, media.ErrPayloadTooLarge
	}

	return &UploadInput{
		Data:        data,
		ContentType: contentType,
		Filename:    part.FileName(),
		Class:       class,
	}, nil
}

// ListFiles godoc
//
//	@Summary		List files
//	@Description	List every stored audio file and image. The whole call fails if either listing fails.
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	listData
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/api/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, "list files", err)
		return
	}

	response.OK(w, listData{
		Audio:  entries(l.Audio),
		Images: entries(l.Images),
		Total:  l.Total(),
	})
}

func entries(objs []storage.Object) []fileEntry {
	out := make([]fileEntry, 0, len(objs))
	for _, o := range objs {
		out = append(out, fileEntry{
			Identifier: o.Identifier,
			Name:       o.Identifier,
			Type:       o.Class,
			URL:        o.URL,
			Size:       o.Size,
		})
	}
	return out
}

// DeleteFile godoc
//
//	@Summary		Delete file
//	@Description	Delete one stored file. The identifier may be sent as identifier, url or publicId. resourceType (audio, image or video) defaults to image when omitted.
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		deleteRequest	true	"File to delete"
//	@Success		200		{object}	deleteData
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/api/file [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	req, err := decodeDelete(r.Body)
	if err != nil {
		h.writeError(w, r, "delete file", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, r, "delete file", fmt.Errorf("%w: resourceType must be one of: audio, image, video", errInvalidRequest))
		return
	}

	id := firstNonEmpty(req.Identifier, req.URL, req.PublicID)
	if id == "" {
		h.writeError(w, r, "delete file", ErrMissingIdentifier)
		return
	}

	class := media.Image
	if req.ResourceType == "" {
		log.Printf("[%s] delete %q: resourceType omitted, defaulting to %s", chiMiddleware.GetReqID(r.Context()), id, class)
	} else {
		// validated above
		class, _ = media.ParseClass(req.ResourceType)
	}

	if err := h.svc.Delete(r.Context(), id, class); err != nil {
		h.writeError(w, r, "delete file", err)
		return
	}

	response.OK(w, deleteData{Success: true, Message: "file deleted"})
}

// decodeDelete reads a single JSON object. An empty body yields a zero
// request; anything after the object is rejected.
func decodeDelete(body io.Reader) (deleteRequest, error) {
	var req deleteRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, bodyError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, bodyError(err)
		}
		return req, fmt.Errorf("%w: body must contain a single JSON object", errInvalidRequest)
	}
	req.ResourceType = strings.ToLower(strings.TrimSpace(req.ResourceType))
	return req, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
