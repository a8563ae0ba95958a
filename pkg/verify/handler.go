package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gradbook-dev/gradbook/pkg/store"
)

// HashPassword returns the stored form of a page password: lowercase hex
// SHA-256 of the plaintext.
func HashPassword(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Handler returns the chi router answering verification requests at
// POST /verify.
//
// A missing graduation and one without a configured password both answer
// isValid=false rather than erroring: the endpoint never reveals whether
// an entity exists.
func Handler(st store.Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Post("/verify", func(w http.ResponseWriter, req *http.Request) {
		var in request
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			http.Error(w, "malformed request", http.StatusBadRequest)
			return
		}
		if in.Action != "verify" || in.EntityID == "" {
			http.Error(w, "malformed request", http.StatusBadRequest)
			return
		}

		g, err := st.GetByID(req.Context(), in.EntityID)
		if err != nil {
			logger.Error("verification lookup failed", "entity_id", in.EntityID, "error", err)
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}

		valid := g != nil &&
			g.PasswordHash != "" &&
			g.PasswordHash == HashPassword(in.CandidatePassword)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response{IsValid: valid})
	})
	return r
}
