// Package devapi is an in-memory stand-in for the platform's REST API. It
// speaks the same contract the client consumes: JWT auth, DRF-shaped
// pages and error bodies, content, comments, likes, follows, fields and
// institutions. It backs local development and end-to-end tests.
package devapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pageSize          = 20
	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
	maxBodyBytes      = 1 << 20

	msgRequired  = "Це поле обов'язкове."
	msgNotFound  = "Не знайдено."
	msgForbidden = "У вас недостатньо прав для виконання цієї дії."
)

// Config configures the stand-in API.
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Logger     *zap.Logger
	// Now overrides the clock, for token expiry tests.
	Now func() time.Time
}

// API holds the in-memory state and serves it over HTTP.
type API struct {
	mem        *memory
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
	router     *chi.Mux
}

// New constructs an API seeded with the scientific field vocabulary.
func New(cfg Config) *API {
	a := &API{
		mem:        newMemory(),
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		logger:     cfg.Logger,
	}
	if len(a.secret) == 0 {
		a.secret = []byte("dev-secret")
	}
	if a.accessTTL <= 0 {
		a.accessTTL = defaultAccessTTL
	}
	if a.refreshTTL <= 0 {
		a.refreshTTL = defaultRefreshTTL
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if cfg.Now != nil {
		a.mem.now = cfg.Now
	}
	a.router = a.routes()
	return a
}

// Handler returns the HTTP handler. Every route lives under /api.
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(a.authenticate)

		r.Post("/auth/login/", a.Login)
		r.Post("/auth/refresh/", a.Refresh)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register/", a.Register)
			r.With(requireAuth).Get("/me/", a.Me)
			r.With(requireAuth).Patch("/me/", a.UpdateMe)
			r.Get("/", a.ListUsers)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", a.GetUser)
				r.Get("/contents/", a.UserContents)
				r.With(requireAuth).Post("/follow/", a.ToggleFollow)
				r.Get("/followers/", a.Followers)
				r.Get("/following/", a.Following)
			})
		})

		r.Route("/contents", func(r chi.Router) {
			r.Get("/fields/", a.ListFields)
			r.Get("/fields/{slug}/", a.GetField)
			r.With(requireAuth).Get("/my/", a.MyContents)
			r.With(requireAuth).Delete("/comments/{commentID}/", a.DeleteComment)
			r.Get("/", a.ListContents)
			r.With(requireAuth).Post("/", a.CreateContent)
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", a.GetContent)
				r.With(requireAuth).Patch("/", a.UpdateContent)
				r.With(requireAuth).Put("/", a.UpdateContent)
				r.With(requireAuth).Delete("/", a.DeleteContent)
				r.With(requireAuth).Post("/like/", a.ToggleLike)
				r.Get("/comments/", a.ListComments)
				r.With(requireAuth).Post("/comments/", a.AddComment)
			})
		})

		r.Get("/institutions/", a.SearchInstitutions)
		r.Post("/institutions/", a.CreateInstitution)
	})
	return router
}

// page is the DRF page envelope.
type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// paginate slices items into the requested page. It reports false after
// writing a 404 for a page out of range.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T) (page[T], bool) {
	n := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeDetail(w, http.StatusNotFound, "Неправильна сторінка.")
			return page[T]{}, false
		}
		n = parsed
	}
	start := (n - 1) * pageSize
	if start > 0 && start >= len(items) {
		writeDetail(w, http.StatusNotFound, "Неправильна сторінка.")
		return page[T]{}, false
	}
	end := min(start+pageSize, len(items))

	p := page[T]{Count: len(items), Results: items[start:end]}
	if p.Results == nil {
		p.Results = []T{}
	}
	if end < len(items) {
		next := pageURL(r, n+1)
		p.Next = &next
	}
	if n > 1 {
		prev := pageURL(r, n-1)
		p.Previous = &prev
	}
	return p, true
}

func pageURL(r *http.Request, n int) string {
	q := r.URL.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	return u.String()
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func pathInt(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

func newJTI() string {
	return uuid.NewString()
}
