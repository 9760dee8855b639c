package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/naukovi-znahidky/client/internal/views"
	"github.com/naukovi-znahidky/client/types"
)

// UserRouter registers the user pages on the given router.
func UserRouter(r chi.Router, h *Handler) {
	r.Get("/", h.Users)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", h.User)
		r.With(RequireSignedIn).Post("/follow", h.Follow)
	})
}

type usersData struct {
	Query string
	List  views.State[types.List[types.User]]
}

// Users lists users matching ?search=.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	rs := requestFrom(r.Context())
	list := views.NewUserList(rs.svc.Users)
	st := list.Search(r.Context(), r.URL.Query().Get("search"))
	h.render.Render(w, http.StatusOK, "users", h.pageData(r, "Користувачі", usersData{Query: list.Query(), List: st}))
}

type userData struct {
	User      views.State[types.User]
	Contents  views.State[types.List[types.Content]]
	Following bool
	Self      bool
}

func (h *Handler) userDetail(w http.ResponseWriter, r *http.Request) (*views.UserDetail, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || id < 1 {
		h.errorPage(w, r, http.StatusNotFound, "Користувача не знайдено")
		return nil, false
	}
	rs := requestFrom(r.Context())
	return views.NewUserDetail(rs.svc.Users, rs.session, id), true
}

func (h *Handler) renderUser(w http.ResponseWriter, r *http.Request, d *views.UserDetail, errMsg string) {
	st := d.State()
	if !st.Loaded() {
		h.errorPage(w, r, loadStatus(st.Err), st.Message)
		return
	}
	p := h.pageData(r, st.Data.Username, userData{
		User:      st,
		Contents:  d.Contents(),
		Following: d.IsFollowing(),
		Self:      d.IsSelf(),
	})
	p.Error = errMsg
	h.render.Render(w, http.StatusOK, "user", p)
}

// User shows a public profile.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	d, ok := h.userDetail(w, r)
	if !ok {
		return
	}
	d.Load(r.Context())
	h.renderUser(w, r, d, "")
}

// Follow toggles whether the viewer follows the user.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	d, ok := h.userDetail(w, r)
	if !ok {
		return
	}
	if st := d.Load(r.Context()); !st.Loaded() {
		h.errorPage(w, r, loadStatus(st.Err), st.Message)
		return
	}
	res, err := d.ToggleFollow(r.Context())
	if err != nil {
		if h.actionFailed(w, r, err) {
			return
		}
		if !wantsHTML(r) {
			status := http.StatusBadGateway
			if errors.Is(err, views.ErrSelfFollow) {
				status = http.StatusBadRequest
			}
			writeError(w, status, views.Message(err))
			return
		}
		h.renderUser(w, r, d, views.Message(err))
		return
	}
	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, "/users/"+chi.URLParam(r, "userID"), http.StatusSeeOther)
}

type profileData struct {
	User     types.User
	Form     types.ProfileUpdate
	Contents views.State[types.List[types.Content]]
	Saved    bool
}

func (h *Handler) profile(r *http.Request) *views.Profile {
	rs := requestFrom(r.Context())
	return views.NewProfile(rs.session, rs.svc.Contents)
}

// Profile shows the viewer's profile form and items.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p := h.profile(r)
	st, err := p.Load(r.Context())
	if err != nil {
		h.actionFailed(w, r, err)
		return
	}
	user, _ := p.User()
	data := profileData{User: user, Form: p.Form(), Contents: st, Saved: r.URL.Query().Get("saved") == "1"}
	h.render.Render(w, http.StatusOK, "profile", h.pageData(r, "Мій профіль", data))
}

// SaveProfile submits the profile form.
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	p := h.profile(r)
	form := types.ProfileUpdate{
		Username:            r.FormValue("username"),
		Bio:                 r.FormValue("bio"),
		ScientificInterests: r.FormValue("scientific_interests"),
		Publications:        r.FormValue("publications"),
		ORCID:               r.FormValue("orcid"),
		GoogleScholar:       r.FormValue("google_scholar"),
	}
	res := p.Save(r.Context(), form)
	if res.Success {
		http.Redirect(w, r, "/profile?saved=1", http.StatusSeeOther)
		return
	}
	if !requestFrom(r.Context()).session.IsAuthenticated() {
		loginRedirect(w, r)
		return
	}

	st, _ := p.Load(r.Context())
	user, _ := p.User()
	pd := h.pageData(r, "Мій профіль", profileData{User: user, Form: form, Contents: st})
	pd.Error = res.Error
	h.render.Render(w, http.StatusOK, "profile", pd)
}

// SearchInstitutions answers the registration form's autocomplete.
func (h *Handler) SearchInstitutions(w http.ResponseWriter, r *http.Request) {
	picker := views.NewInstitutionPicker(requestFrom(r.Context()).svc.Institutions)
	st := picker.Search(r.Context(), r.URL.Query().Get("q"))
	if st.Failed() {
		writeError(w, http.StatusBadGateway, st.Message)
		return
	}
	writeJSON(w, http.StatusOK, st.Data)
}

// CreateInstitution adds an institution the search did not find.
func (h *Handler) CreateInstitution(w http.ResponseWriter, r *http.Request) {
	picker := views.NewInstitutionPicker(requestFrom(r.Context()).svc.Institutions)
	inst, err := picker.Create(r.Context(), r.FormValue("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, views.Message(err))
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}
