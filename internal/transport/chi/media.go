package chi

import (
	_ "embed"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/domain"
	"github.com/coloradocollege/digitalcc/internal/logger"
)

// thumbnailDSID is the datastream holding an object's thumbnail.
const thumbnailDSID = "TN"

//go:embed static/default-thumbnail.png
var defaultThumbnail []byte

// Datastream handles GET /pid/{pid}/datastream/{dsid}. A trailing extension
// such as ".jpg" on dsid is ignored so links can carry a file name.
func (s *Server) Datastream(w http.ResponseWriter, r *http.Request) {
	var pid, dsid string
	if err := bindPath(r, "pid", &pid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := bindPath(r, "dsid", &dsid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	dsid, _, _ = strings.Cut(dsid, ".")
	if dsid == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "datastream id is required")
		return
	}

	s.stream(w, r, pid, dsid, false)
}

// Thumbnail handles GET /thumbnail/{pid}, falling back to a placeholder image.
func (s *Server) Thumbnail(w http.ResponseWriter, r *http.Request) {
	var pid string
	if err := bindPath(r, "pid", &pid); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	s.stream(w, r, pid, thumbnailDSID, true)
}

// Image handles GET /image/{id}: the thumbnail of the object with index id.
func (s *Server) Image(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := bindPath(r, "id", &id); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	pid, err := s.deps.Engine.PID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.stream(w, r, pid, thumbnailDSID, true)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, pid, dsid string, placeholder bool) {
	content, err := s.deps.Media.OpenDatastream(r.Context(), pid, dsid)
	if err != nil {
		if placeholder && errors.Is(err, domain.ErrNotFound) {
			writeDefaultThumbnail(w)
			return
		}
		handleError(w, r, err)
		return
	}
	defer content.Body.Close()

	h := w.Header()
	if content.ContentType != "" {
		h.Set("Content-Type", content.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	if content.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(content.ContentLength, 10))
	}
	if content.LastModified != "" {
		h.Set("Last-Modified", content.LastModified)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		// Headers are already sent; the client sees a truncated body.
		logger.FromContext(r.Context()).Warn("datastream copy interrupted",
			zap.String("pid", pid), zap.String("dsid", dsid), zap.Error(err))
	}
}

func writeDefaultThumbnail(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(defaultThumbnail)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(defaultThumbnail)
}
