package runtime

import (
	"net/http"

	"github.com/drblury/kafkaflow/internal/runtime/codec"
)

// handleGetHandlers lists the registered handlers as JSON.
func (s *Service) handleGetHandlers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", codec.ContentTypeJSON)
	if err := codec.NewEncoder(w).Encode(s.Handlers()); err != nil {
		s.Logger.Error("Failed to encode handlers", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
