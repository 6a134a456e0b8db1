package launcher

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/lti-gateway/internal/auth"
	"github.com/mind-engage/lti-gateway/internal/provider"
	"github.com/mind-engage/lti-gateway/pkg/blti"
)

// LaunchHandler returns the signed launch form for a placement as
// JSON. The portal front end writes post_data into an iframe.
func LaunchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		if claims == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		launch, err := svc.Launch(r.Context(), chi.URLParam(r, "placementID"), claims.Sub, claims.Role)
		if err != nil {
			switch {
			case errors.Is(err, provider.ErrNotFound):
				http.Error(w, "placement not found", http.StatusNotFound)
			case errors.Is(err, ErrNoCredentials), errors.Is(err, blti.ErrNotConfigured):
				http.Error(w, "tool is not configured for launch", http.StatusConflict)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(launch)
	}
}
