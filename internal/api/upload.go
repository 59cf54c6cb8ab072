package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/quill-ai/quill/internal/log"
	"github.com/quill-ai/quill/internal/upload"
)

const maxUploadSize = 32 << 20 // 32MB

// UploadResponse is the POST /upload body: the processed attachment plus an
// id the client uses to reference it in the next turn.
type UploadResponse struct {
	UploadID    string             `json:"upload_id"`
	Filename    string             `json:"filename"`
	TextContent string             `json:"text_content"`
	Images      []upload.PageImage `json:"images"`
	PageCount   int                `json:"page_count"`
	MorePages   string             `json:"more_pages,omitempty"`
}

// uploadHandler accepts one multipart document and runs it through the
// extractor.
type uploadHandler struct {
	extractor upload.Extractor
	logger    log.Logger
}

func (h *uploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "invalid multipart body", h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "file field is required", h.logger)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("read upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to read upload", h.logger)
		return
	}

	ex, err := h.extractor.Extract(r.Context(), data)
	if err != nil {
		h.logger.Warn("extract upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "extraction_failed", "failed to extract document content", h.logger)
		return
	}

	att, err := upload.NewAttachment(header.Filename, ex)
	if err != nil {
		if errors.Is(err, upload.ErrEmptyDocument) {
			writeError(w, http.StatusUnprocessableEntity, "empty_document", "document contains no extractable content", h.logger)
			return
		}
		h.logger.Error("build attachment", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to process upload", h.logger)
		return
	}

	pageCount := len(att.Images) + att.MorePages

	h.logger.Info("upload processed",
		"filename", att.Filename,
		"text_bytes", len(att.Text),
		"pages", pageCount,
	)

	writeJSON(w, http.StatusOK, UploadResponse{
		UploadID:    uuid.New().String(),
		Filename:    att.Filename,
		TextContent: att.Text,
		Images:      att.Images,
		PageCount:   pageCount,
		MorePages:   att.MoreLabel(),
	}, h.logger)
}
