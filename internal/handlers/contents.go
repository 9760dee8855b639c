package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/views"
	"github.com/naukovi-znahidky/client/types"
)

// ContentRouter registers the content pages on the given router.
func ContentRouter(r chi.Router, h *Handler) {
	r.Get("/", h.Contents)
	r.With(RequireSignedIn).Get("/create", h.NewContent)
	r.With(RequireSignedIn).Post("/create", h.CreateContent)
	r.Route("/{slug}", func(r chi.Router) {
		r.Get("/", h.Content)
		r.With(RequireSignedIn).Get("/edit", h.EditContent)
		r.With(RequireSignedIn).Post("/edit", h.UpdateContent)
		r.With(RequireSignedIn).Post("/like", h.Like)
		r.With(RequireSignedIn).Post("/comments", h.AddComment)
		r.With(RequireSignedIn).Post("/delete", h.DeleteContent)
	})
}

func contentURL(slug string) string {
	return "/contents/" + url.PathEscape(slug)
}

// loadStatus maps a failed fetch to the page status.
func loadStatus(err error) int {
	if errors.Is(err, apiclient.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

type contentsData struct {
	Filter types.ContentFilter
	List   views.State[types.List[types.Content]]
	Fields views.State[[]types.ScientificField]
}

// Contents lists items with the filters of the query string.
func (h *Handler) Contents(w http.ResponseWriter, r *http.Request) {
	rs := requestFrom(r.Context())
	list := views.NewContentList(rs.svc.Contents, rs.svc.Fields)
	filter := types.ContentFilterFromQuery(r.URL.Query())
	data := contentsData{
		Filter: filter,
		List:   list.SetFilter(r.Context(), filter),
		Fields: list.LoadFields(r.Context()),
	}
	h.render.Render(w, http.StatusOK, "contents", h.pageData(r, "Матеріали", data))
}

type contentData struct {
	Item    views.State[types.Content]
	CanEdit bool
	Comment string
	ReplyTo int
}

func (h *Handler) detail(r *http.Request) *views.ContentDetail {
	rs := requestFrom(r.Context())
	return views.NewContentDetail(rs.svc.Contents, rs.session, chi.URLParam(r, "slug"))
}

func (h *Handler) renderContent(w http.ResponseWriter, r *http.Request, d *views.ContentDetail, data contentData, errMsg string) {
	st := d.State()
	if !st.Loaded() {
		h.errorPage(w, r, loadStatus(st.Err), st.Message)
		return
	}
	data.Item = st
	data.CanEdit = d.CanEdit()
	p := h.pageData(r, st.Data.Title, data)
	p.Error = errMsg
	h.render.Render(w, http.StatusOK, "content", p)
}

// Content shows one item with its comments.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	d := h.detail(r)
	d.Load(r.Context())
	h.renderContent(w, r, d, contentData{}, "")
}

// Like toggles the viewer's like. Form posts return to the item; other
// callers get the server's reply as JSON.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	d := h.detail(r)
	res, err := d.ToggleLike(r.Context())
	if err != nil {
		if h.actionFailed(w, r, err) {
			return
		}
		if !wantsHTML(r) {
			writeError(w, http.StatusBadGateway, views.Message(err))
			return
		}
		h.errorPage(w, r, http.StatusBadGateway, views.Message(err))
		return
	}
	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, contentURL(d.Slug()), http.StatusSeeOther)
}

// AddComment posts a comment, or a reply when parent_id is set.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	d := h.detail(r)
	if st := d.Load(r.Context()); !st.Loaded() {
		h.errorPage(w, r, loadStatus(st.Err), st.Message)
		return
	}
	text := r.FormValue("text")
	parentID := formInt(r, "parent_id")
	comment, err := d.AddComment(r.Context(), text, parentID)
	if err != nil {
		if h.actionFailed(w, r, err) {
			return
		}
		h.renderContent(w, r, d, contentData{Comment: text, ReplyTo: parentID}, views.Message(err))
		return
	}
	http.Redirect(w, r, contentURL(d.Slug())+"#comment-"+strconv.Itoa(comment.ID), http.StatusSeeOther)
}

// DeleteContent removes the viewer's item and returns to the profile.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	d := h.detail(r)
	if st := d.Load(r.Context()); !st.Loaded() {
		h.errorPage(w, r, loadStatus(st.Err), st.Message)
		return
	}
	if err := d.Delete(r.Context()); err != nil {
		if h.actionFailed(w, r, err) {
			return
		}
		h.renderContent(w, r, d, contentData{}, views.Message(err))
		return
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// DeleteComment removes a comment and returns to its item.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "commentID"))
	if err != nil || id < 1 {
		h.errorPage(w, r, http.StatusNotFound, "Коментар не знайдено")
		return
	}
	rs := requestFrom(r.Context())
	slug := strings.TrimSpace(r.FormValue("slug"))
	d := views.NewContentDetail(rs.svc.Contents, rs.session, slug)
	if err := d.DeleteComment(r.Context(), id); err != nil {
		if h.actionFailed(w, r, err) {
			return
		}
		status := http.StatusBadGateway
		if errors.Is(err, apiclient.ErrForbidden) {
			status = http.StatusForbidden
		} else if errors.Is(err, apiclient.ErrNotFound) {
			status = http.StatusNotFound
		}
		h.errorPage(w, r, status, views.Message(err))
		return
	}
	target := "/contents"
	if slug != "" {
		target = contentURL(slug)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type editorData struct {
	Edit   bool
	Slug   string
	Input  types.ContentInput
	Fields views.State[[]types.ScientificField]
}

func contentInput(r *http.Request) types.ContentInput {
	_ = r.ParseForm()
	in := types.ContentInput{
		ContentType:            types.ContentType(r.FormValue("content_type")),
		Title:                  r.FormValue("title"),
		Description:            r.FormValue("description"),
		Link:                   r.FormValue("link"),
		Keywords:               r.FormValue("keywords"),
		Status:                 types.ContentStatus(r.FormValue("status")),
		IsPublic:               r.FormValue("is_public") != "",
		IsOpenForCollaboration: r.FormValue("is_open_for_collaboration") != "",
	}
	for _, raw := range r.Form["scientific_field_ids"] {
		if id, err := strconv.Atoi(raw); err == nil && id > 0 {
			in.ScientificFieldIDs = append(in.ScientificFieldIDs, id)
		}
	}
	return in
}

func (h *Handler) renderEditor(w http.ResponseWriter, r *http.Request, ed *views.ContentEditor, in types.ContentInput, errMsg string) {
	title := "Новий матеріал"
	if ed.IsEdit() {
		title = "Редагування"
	}
	p := h.pageData(r, title, editorData{Edit: ed.IsEdit(), Slug: ed.Slug(), Input: in, Fields: ed.Fields()})
	p.Error = errMsg
	h.render.Render(w, http.StatusOK, "editor", p)
}

// loadEditor loads the editor, answering for it when that fails.
func (h *Handler) loadEditor(w http.ResponseWriter, r *http.Request, ed *views.ContentEditor) bool {
	err := ed.Load(r.Context())
	if err == nil {
		return true
	}
	if !h.actionFailed(w, r, err) {
		h.errorPage(w, r, loadStatus(err), views.Message(err))
	}
	return false
}

func (h *Handler) NewContent(w http.ResponseWriter, r *http.Request) {
	rs := requestFrom(r.Context())
	t := types.ContentType(r.URL.Query().Get("type"))
	ed := views.NewContentCreator(rs.svc.Contents, rs.svc.Fields, rs.session, t)
	if !h.loadEditor(w, r, ed) {
		return
	}
	h.renderEditor(w, r, ed, ed.Input(), "")
}

func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	rs := requestFrom(r.Context())
	in := contentInput(r)
	ed := views.NewContentCreator(rs.svc.Contents, rs.svc.Fields, rs.session, in.ContentType)
	h.submitEditor(w, r, ed, in)
}

func (h *Handler) EditContent(w http.ResponseWriter, r *http.Request) {
	rs := requestFrom(r.Context())
	ed := views.NewContentEditor(rs.svc.Contents, rs.svc.Fields, rs.session, chi.URLParam(r, "slug"))
	if !h.loadEditor(w, r, ed) {
		return
	}
	h.renderEditor(w, r, ed, ed.Input(), "")
}

func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	rs := requestFrom(r.Context())
	ed := views.NewContentEditor(rs.svc.Contents, rs.svc.Fields, rs.session, chi.URLParam(r, "slug"))
	h.submitEditor(w, r, ed, contentInput(r))
}

func (h *Handler) submitEditor(w http.ResponseWriter, r *http.Request, ed *views.ContentEditor, in types.ContentInput) {
	if !h.loadEditor(w, r, ed) {
		return
	}
	content, err := ed.Submit(r.Context(), in)
	if err != nil {
		if h.actionFailed(w, r, err) {
			return
		}
		h.renderEditor(w, r, ed, ed.Input(), views.Message(err))
		return
	}
	http.Redirect(w, r, contentURL(content.Slug), http.StatusSeeOther)
}
