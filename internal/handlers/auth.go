package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/naukovi-znahidky/client/types"
	"go.uber.org/zap"
)

// AuthRouter registers the sign-in pages on the given router.
func AuthRouter(r chi.Router, h *Handler) {
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.Register)
	r.Post("/logout", h.Logout)
}

type loginForm struct {
	Email  string
	Return string
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	ret := safeReturn(r.URL.Query().Get("return"), "/")
	if requestFrom(r.Context()).session.IsAuthenticated() {
		http.Redirect(w, r, ret, http.StatusSeeOther)
		return
	}
	h.render.Render(w, http.StatusOK, "login", h.pageData(r, "Вхід", loginForm{Return: ret}))
}

// Login signs in and returns to the page that asked for it.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Email:  strings.TrimSpace(r.FormValue("email")),
		Return: safeReturn(r.FormValue("return"), "/"),
	}
	res := requestFrom(r.Context()).session.Login(r.Context(), form.Email, r.FormValue("password"))
	if !res.Success {
		p := h.pageData(r, "Вхід", form)
		p.Error = res.Error
		h.render.Render(w, http.StatusOK, "login", p)
		return
	}
	http.Redirect(w, r, form.Return, http.StatusSeeOther)
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if requestFrom(r.Context()).session.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	form := types.Registration{Role: types.RoleStudent, EducationLevel: types.EducationBachelor}
	h.render.Render(w, http.StatusOK, "register", h.pageData(r, "Реєстрація", form))
}

// Register creates the account and signs in with it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	reg := types.Registration{
		Email:           strings.TrimSpace(r.FormValue("email")),
		Username:        strings.TrimSpace(r.FormValue("username")),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password_confirm"),
		Role:            types.Role(r.FormValue("role")),
		EducationLevel:  types.EducationLevel(r.FormValue("education_level")),
	}
	if id := formInt(r, "institution_id"); id > 0 {
		reg.Institution = types.InstitutionRef{ID: id, Name: strings.TrimSpace(r.FormValue("institution"))}
	} else {
		reg.Institution = types.InstitutionRef{Name: strings.TrimSpace(r.FormValue("institution"))}
	}

	res := requestFrom(r.Context()).session.Register(r.Context(), reg)
	if !res.Success {
		reg.Password, reg.PasswordConfirm = "", ""
		p := h.pageData(r, "Реєстрація", reg)
		p.Error = res.Error
		h.render.Render(w, http.StatusOK, "register", p)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := requestFrom(r.Context()).session.Logout(r.Context()); err != nil {
		h.logger.Warn("logout", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
