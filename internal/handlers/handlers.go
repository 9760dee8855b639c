// Package handlers serves the server-rendered pages of the client. Each
// request carries its own session, resolved from the browser's tokens.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/views"
	"go.uber.org/zap"
)

// Handler provides the page handlers.
type Handler struct {
	api    *apiclient.Client
	binder TokenBinder
	render *Renderer
	logger *zap.Logger
}

// NewHandler constructs a Handler. api is copied per request and bound to
// the browser's tokens; its own store is never used.
func NewHandler(api *apiclient.Client, binder TokenBinder, render *Renderer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{api: api, binder: binder, render: render, logger: logger}
}

// Router registers every page on r.
func Router(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(h.LoadSession)

		r.Get("/", h.Home)
		AuthRouter(r, h)
		r.Route("/contents", func(r chi.Router) {
			ContentRouter(r, h)
		})
		r.With(RequireSignedIn).Post("/comments/{commentID}/delete", h.DeleteComment)
		r.Route("/users", func(r chi.Router) {
			UserRouter(r, h)
		})
		r.With(RequireSignedIn).Get("/profile", h.Profile)
		r.With(RequireSignedIn).Post("/profile", h.SaveProfile)
		r.Get("/institutions", h.SearchInstitutions)
		r.Post("/institutions", h.CreateInstitution)
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) pageData(r *http.Request, title string, data any) page {
	p := page{Title: title, Data: data}
	if user, ok := requestFrom(r.Context()).viewer(); ok {
		p.Viewer = &user
	}
	return p
}

func (h *Handler) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	p := h.pageData(r, "Помилка", nil)
	p.Error = message
	h.render.Render(w, status, "error", p)
}

// actionFailed answers a failed action: login-required errors go to the
// login page, authorship errors to a 403 page.
func (h *Handler) actionFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, views.ErrLoginRequired):
		loginRedirect(w, r)
	case errors.Is(err, views.ErrNotAuthor):
		h.errorPage(w, r, http.StatusForbidden, views.Message(err))
	default:
		return false
	}
	return true
}

// Home shows the newest public items.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	rs := requestFrom(r.Context())
	list := views.NewContentList(rs.svc.Contents, rs.svc.Fields)
	st := list.Load(r.Context())
	if st.Loaded() && len(st.Data.Items) > homeItems {
		st.Data.Items = st.Data.Items[:homeItems]
	}
	h.render.Render(w, http.StatusOK, "home", h.pageData(r, "Наукові Знахідки", st))
}

const homeItems = 6
