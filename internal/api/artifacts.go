package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/quill-ai/quill/internal/artifact"
	"github.com/quill-ai/quill/internal/log"
)

// ArtifactInfoResponse is one entry in the GET /artifacts listing.
type ArtifactInfoResponse struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ArtifactResponse is the GET /artifacts/{name} body.
type ArtifactResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// artifactHandler serves the artifacts saved by the agent's tools.
type artifactHandler struct {
	store  *artifact.Store
	logger log.Logger
}

func (h *artifactHandler) list(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.List()
	if err != nil {
		h.logger.Error("list artifacts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list artifacts", h.logger)
		return
	}

	out := make([]ArtifactInfoResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, ArtifactInfoResponse{
			Name:     info.Name,
			Size:     info.Size,
			Modified: info.Modified,
		})
	}

	writeJSON(w, http.StatusOK, map[string][]ArtifactInfoResponse{"artifacts": out}, h.logger)
}

func (h *artifactHandler) read(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	content, err := h.store.Read(name)
	if err != nil {
		switch {
		case errors.Is(err, artifact.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "invalid_name", "invalid artifact name", h.logger)
		case errors.Is(err, artifact.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "artifact not found", h.logger)
		default:
			h.logger.Error("read artifact", "name", name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to read artifact", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, ArtifactResponse{Filename: name, Content: content}, h.logger)
}
