package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/services"
	"github.com/naukovi-znahidky/client/internal/session"
	"github.com/naukovi-znahidky/client/types"
	"go.uber.org/zap"
)

// requestState is what one request knows about its browser: the API
// bound to the browser's tokens and the resolved session.
type requestState struct {
	svc     *services.Services
	session *session.Store
}

func (rs *requestState) viewer() (types.User, bool) {
	if rs == nil {
		return types.User{}, false
	}
	return rs.session.CurrentUser()
}

// LoadSession binds the browser's tokens to a copy of the API client and
// resolves them into a session for the rest of the chain.
func (h *Handler) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := h.binder.Bind(w, r)
		rs := &requestState{}
		api := h.api.WithTokens(store, apiclient.OnSessionExpired(func() {
			if rs.session != nil {
				rs.session.Expire()
			}
		}))
		rs.svc = services.New(api)
		rs.session = session.New(rs.svc.Auth, store, session.WithLogger(h.logger))
		rs.session.Initialize(r.Context())

		next.ServeHTTP(w, r.WithContext(withRequest(r.Context(), rs)))
	})
}

// RequireSignedIn lets signed-in viewers through. Browsers are sent to
// the login page with a return target; other callers get a 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rs := requestFrom(r.Context()); rs != nil && rs.session.IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}
		loginRedirect(w, r)
	})
}

func loginRedirect(w http.ResponseWriter, r *http.Request) {
	if !wantsHTML(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	target := currentURI(r)
	if r.Method != http.MethodGet {
		// A replayed POST would lose its body; return to the page instead.
		target = "/"
		if u, err := url.Parse(r.Referer()); err == nil && u.Host == r.Host && u.Path != "" {
			target = u.RequestURI()
		}
	}
	http.Redirect(w, r, "/login?return="+url.QueryEscape(target), http.StatusSeeOther)
}

// RequestLogger logs one line per request with zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
