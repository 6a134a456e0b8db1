package provider

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/lti-gateway/internal/auth"
	"github.com/mind-engage/lti-gateway/pkg/blti"
)

// LaunchHandler receives a signed Basic LTI launch on
// /provider/{toolID}, validates it, provisions local state and hands
// the browser a session plus a redirect into the portal.
func LaunchHandler(v *blti.Validator, svc *Service, sessions *auth.Service, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		// r.Form already merges query and body, so the URL is passed
		// without its query string to keep each parameter in the
		// signature base exactly once. GET launches carry everything
		// in the query and work the same way.
		req := blti.Request{
			Method: r.Method,
			URL:    requestURL(r),
			ToolID: chi.URLParam(r, "toolID"),
			Params: r.Form,
		}

		lr, lerr := v.Validate(req)
		if lerr != nil {
			rejectLaunch(w, r, r.Form, lerr)
			return
		}
		out, lerr := svc.Launch(r.Context(), lr)
		if lerr != nil {
			rejectLaunch(w, r, r.Form, lerr)
			return
		}

		token, err := sessions.IssueLaunchToken(out.User.ID, out.User.EID, out.Role, out.Site.ID)
		if err != nil {
			rejectLaunch(w, r, r.Form, blti.RejectErr(blti.ReasonProvisioningFailed, "session", err))
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.SessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
			SameSite: http.SameSiteNoneMode,
		})

		dest := strings.TrimRight(publicURL, "/") + "/portal/tool/" + url.PathEscape(out.PlacementID) + "?panel=Main"
		http.Redirect(w, r, dest, http.StatusFound)
	}
}

// requestURL rebuilds the absolute URL the consumer signed, honoring
// a reverse proxy's X-Forwarded-Proto. The query string is dropped;
// its parameters arrive through r.Form.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fp := r.Header.Get("X-Forwarded-Proto"); fp != "" {
		scheme = fp
	}
	return scheme + "://" + r.Host + r.URL.Path
}

// rejectLaunch logs the precise reason and sends the user back to the
// consumer with a human-readable lti_msg when a return URL was given.
// The detailed reason stays in the log; the consumer only sees the
// generic message for its code.
func rejectLaunch(w http.ResponseWriter, r *http.Request, form url.Values, lerr *blti.LaunchError) {
	log.Printf("launch rejected: %v", lerr)

	if ret := strings.TrimSpace(form.Get(blti.ParamReturnURL)); ret != "" {
		sep := "?"
		if strings.Contains(ret, "?") {
			sep = "&"
		}
		http.Redirect(w, r, ret+sep+"lti_msg="+url.QueryEscape(MessageFor(lerr.Code)), http.StatusFound)
		return
	}
	http.Error(w, MessageFor(lerr.Code), statusFor(lerr.Code))
}

func statusFor(code blti.Reason) int {
	switch code {
	case blti.ReasonDisabled, blti.ReasonToolNotAllowed:
		return http.StatusForbidden
	case blti.ReasonUnknownConsumer, blti.ReasonSignatureInvalid:
		return http.StatusUnauthorized
	case blti.ReasonProvisioningFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
