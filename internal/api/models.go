package api

import (
	"net/http"

	"github.com/quill-ai/quill/internal/log"
)

// ModelsResponse is the GET /models body.
type ModelsResponse struct {
	Models  []ModelInfo `json:"models"`
	Default string      `json:"default"`
}

func modelsHandler(models []ModelInfo, defaultModel string, logger log.Logger) http.HandlerFunc {
	if models == nil {
		models = []ModelInfo{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ModelsResponse{
			Models:  models,
			Default: defaultModel,
		}, logger)
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
