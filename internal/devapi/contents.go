package devapi

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/naukovi-znahidky/client/internal/forms"
	"github.com/naukovi-znahidky/client/types"
	"go.uber.org/zap"
)

const msgLinkRequired = "Посилання обов'язкове для цього типу контенту"

// newestFirst returns the items ordered by creation time, newest first.
func (m *memory) newestFirst() []*contentRecord {
	out := slices.Clone(m.contents)
	slices.SortStableFunc(out, func(a, b *contentRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID - a.ID
	})
	return out
}

func orderContents(items []*contentRecord, ordering string) {
	desc := strings.HasPrefix(ordering, "-")
	key := strings.TrimPrefix(ordering, "-")
	if key != "created_at" && key != "views_count" {
		key, desc = "created_at", true
	}
	slices.SortStableFunc(items, func(a, b *contentRecord) int {
		var c int
		if key == "views_count" {
			c = a.ViewsCount - b.ViewsCount
		} else {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = a.ID - b.ID
		}
		if desc {
			return -c
		}
		return c
	})
}

func (m *memory) matches(c *contentRecord, q map[string]string) bool {
	if v := q["status"]; v != "" && string(c.Status) != v {
		return false
	}
	if v := q["content_type"]; v != "" && string(c.ContentType) != v {
		return false
	}
	if v := q["author"]; v != "" && strconv.Itoa(c.Author.ID) != v {
		return false
	}
	if v := q["scientific_field__slug"]; v != "" {
		found := false
		for _, id := range c.fieldIDs {
			if f, ok := m.field(id); ok && f.Slug == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if v := strings.ToLower(q["search"]); v != "" {
		if !strings.Contains(strings.ToLower(c.Title), v) &&
			!strings.Contains(strings.ToLower(c.Description), v) &&
			!strings.Contains(strings.ToLower(c.Keywords), v) {
			return false
		}
	}
	return true
}

// ListContents returns a page of the items visible to the viewer: public
// ones and the viewer's own.
func (a *API) ListContents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := map[string]string{}
	for _, key := range []string{"status", "content_type", "author", "scientific_field__slug", "search"} {
		q[key] = strings.TrimSpace(query.Get(key))
	}
	viewer := viewerID(r.Context())

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()

	var matched []*contentRecord
	for _, c := range a.mem.contents {
		if a.mem.visible(c, viewer) && a.mem.matches(c, q) {
			matched = append(matched, c)
		}
	}
	orderContents(matched, query.Get("ordering"))

	out := make([]types.Content, 0, len(matched))
	for _, c := range matched {
		out = append(out, a.mem.contentView(c, viewer, false))
	}
	p, ok := paginate(w, r, out)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MyContents returns every item of the viewer, private ones included.
func (a *API) MyContents(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r.Context())

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	out := []types.Content{}
	for _, c := range a.mem.newestFirst() {
		if c.Author.ID == viewer {
			out = append(out, a.mem.contentView(c, viewer, false))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// lookupContent resolves {slug} among the items visible to the viewer,
// writing a 404 otherwise. The caller holds mu.
func (a *API) lookupContent(w http.ResponseWriter, r *http.Request) *contentRecord {
	c := a.mem.contentBySlug(chi.URLParam(r, "slug"))
	if c == nil || !a.mem.visible(c, viewerID(r.Context())) {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return nil
	}
	return c
}

// lookupOwnContent is lookupContent restricted to the author.
func (a *API) lookupOwnContent(w http.ResponseWriter, r *http.Request) *contentRecord {
	c := a.lookupContent(w, r)
	if c == nil {
		return nil
	}
	if c.Author.ID != viewerID(r.Context()) {
		writeDetail(w, http.StatusForbidden, msgForbidden)
		return nil
	}
	return c
}

// GetContent returns the detail view and counts the view.
func (a *API) GetContent(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	c := a.lookupContent(w, r)
	if c == nil {
		return
	}
	c.ViewsCount++
	writeJSON(w, http.StatusOK, a.mem.contentView(c, viewerID(r.Context()), true))
}

// checkContent validates an item body against the vocabulary. The caller
// holds mu.
func (a *API) checkContent(in types.ContentInput) forms.ValidationErrors {
	errs := validationErrors(forms.Validate(in))
	if in.ContentType.RequiresLink() && strings.TrimSpace(in.Link) == "" {
		errs["link"] = []string{msgLinkRequired}
	}
	for _, id := range in.ScientificFieldIDs {
		if _, ok := a.mem.field(id); !ok {
			errs["scientific_field_ids"] = append(errs["scientific_field_ids"],
				fmt.Sprintf("Неправильний первинний ключ \"%d\" - об'єкт не існує.", id))
		}
	}
	return errs
}

func trimInput(in *types.ContentInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Link = strings.TrimSpace(in.Link)
	in.Keywords = strings.TrimSpace(in.Keywords)
}

// CreateContent publishes a new item authored by the viewer.
func (a *API) CreateContent(w http.ResponseWriter, r *http.Request) {
	in := types.ContentInput{Status: types.StatusIdea, IsPublic: true}
	if !decodeBody(w, r, &in) {
		return
	}
	trimInput(&in)

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	if errs := a.checkContent(in); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	viewer := viewerID(r.Context())
	now := a.mem.now()
	a.mem.nextContent++
	c := &contentRecord{
		Content: types.Content{
			ID:                     a.mem.nextContent,
			Slug:                   a.mem.uniqueSlug(in.Title),
			ContentType:            in.ContentType,
			Title:                  in.Title,
			Description:            in.Description,
			Link:                   in.Link,
			Keywords:               in.Keywords,
			Status:                 in.Status,
			IsPublic:               in.IsPublic,
			IsOpenForCollaboration: in.IsOpenForCollaboration,
			Author:                 a.mem.authorRef(viewer),
			CreatedAt:              now,
			UpdatedAt:              now,
		},
		fieldIDs: slices.Clone(in.ScientificFieldIDs),
		likes:    map[int]bool{},
	}
	a.mem.contents = append(a.mem.contents, c)
	a.logger.Debug("content created", zap.Int("id", c.ID), zap.String("slug", c.Slug))

	writeJSON(w, http.StatusCreated, a.mem.contentView(c, viewer, true))
}

type contentPatch struct {
	ContentType            *types.ContentType   `json:"content_type"`
	Title                  *string              `json:"title"`
	Description            *string              `json:"description"`
	Link                   *string              `json:"link"`
	ScientificFieldIDs     *[]int               `json:"scientific_field_ids"`
	Keywords               *string              `json:"keywords"`
	Status                 *types.ContentStatus `json:"status"`
	IsPublic               *bool                `json:"is_public"`
	IsOpenForCollaboration *bool                `json:"is_open_for_collaboration"`
}

func (p contentPatch) apply(in *types.ContentInput) {
	if p.ContentType != nil {
		in.ContentType = *p.ContentType
	}
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Link != nil {
		in.Link = *p.Link
	}
	if p.ScientificFieldIDs != nil {
		in.ScientificFieldIDs = *p.ScientificFieldIDs
	}
	if p.Keywords != nil {
		in.Keywords = *p.Keywords
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.IsPublic != nil {
		in.IsPublic = *p.IsPublic
	}
	if p.IsOpenForCollaboration != nil {
		in.IsOpenForCollaboration = *p.IsOpenForCollaboration
	}
}

// UpdateContent applies a partial update. Only the author may change an
// item; the slug stays fixed.
func (a *API) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var patch contentPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	c := a.lookupOwnContent(w, r)
	if c == nil {
		return
	}

	in := c.Input()
	in.ScientificFieldIDs = slices.Clone(c.fieldIDs)
	patch.apply(&in)
	trimInput(&in)
	if errs := a.checkContent(in); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	c.ContentType = in.ContentType
	c.Title = in.Title
	c.Description = in.Description
	c.Link = in.Link
	c.Keywords = in.Keywords
	c.Status = in.Status
	c.IsPublic = in.IsPublic
	c.IsOpenForCollaboration = in.IsOpenForCollaboration
	c.fieldIDs = in.ScientificFieldIDs
	c.UpdatedAt = a.mem.now()

	writeJSON(w, http.StatusOK, a.mem.contentView(c, viewerID(r.Context()), true))
}

// DeleteContent removes an item together with its comments.
func (a *API) DeleteContent(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	c := a.lookupOwnContent(w, r)
	if c == nil {
		return
	}
	a.mem.contents = slices.DeleteFunc(a.mem.contents, func(x *contentRecord) bool { return x == c })
	a.mem.comments = slices.DeleteFunc(a.mem.comments, func(x *commentRecord) bool { return x.contentID == c.ID })
	w.WriteHeader(http.StatusNoContent)
}

// ToggleLike likes the item, or removes the like when already present.
func (a *API) ToggleLike(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	c := a.lookupContent(w, r)
	if c == nil {
		return
	}
	viewer := viewerID(r.Context())
	status := "liked"
	if c.likes[viewer] {
		delete(c.likes, viewer)
		status = "unliked"
	} else {
		c.likes[viewer] = true
	}
	writeJSON(w, http.StatusOK, types.LikeResult{Status: status, LikesCount: len(c.likes)})
}

// ListComments returns the top-level comments of an item with their replies.
func (a *API) ListComments(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	if c := a.lookupContent(w, r); c != nil {
		writeJSON(w, http.StatusOK, a.mem.topLevelComments(c.ID))
	}
}

// AddComment posts a comment, or a reply when parent_id names a
// top-level comment of the same item.
func (a *API) AddComment(w http.ResponseWriter, r *http.Request) {
	var req types.NewComment
	if !decodeBody(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, forms.ValidationErrors{"text": {msgRequired}})
		return
	}

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	c := a.lookupContent(w, r)
	if c == nil {
		return
	}

	parentID := 0
	if req.ParentID != nil {
		parent := a.mem.comment(*req.ParentID)
		switch {
		case parent == nil || parent.contentID != c.ID:
			writeJSON(w, http.StatusBadRequest, forms.ValidationErrors{"parent_id": {"Коментар не знайдено"}})
			return
		case parent.parentID != 0:
			writeJSON(w, http.StatusBadRequest, forms.ValidationErrors{"parent_id": {"Можна відповідати тільки на коментарі верхнього рівня"}})
			return
		}
		parentID = parent.id
	}

	a.mem.nextComment++
	cm := &commentRecord{
		id:        a.mem.nextComment,
		contentID: c.ID,
		authorID:  viewerID(r.Context()),
		parentID:  parentID,
		text:      text,
		createdAt: a.mem.now(),
	}
	a.mem.comments = append(a.mem.comments, cm)
	writeJSON(w, http.StatusCreated, a.mem.commentView(cm, parentID == 0))
}

// DeleteComment removes a comment of the viewer and its replies.
func (a *API) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "commentID")

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	var cm *commentRecord
	if ok {
		cm = a.mem.comment(id)
	}
	if cm == nil {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	if cm.authorID != viewerID(r.Context()) {
		writeDetail(w, http.StatusForbidden, msgForbidden)
		return
	}
	a.mem.comments = slices.DeleteFunc(a.mem.comments, func(x *commentRecord) bool {
		return x.id == cm.id || x.parentID == cm.id
	})
	w.WriteHeader(http.StatusNoContent)
}

// ListFields returns the scientific field vocabulary.
func (a *API) ListFields(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	out := make([]types.ScientificField, 0, len(a.mem.fields))
	for _, f := range a.mem.fields {
		out = append(out, a.mem.fieldView(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) GetField(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	for _, f := range a.mem.fields {
		if f.Slug == slug {
			writeJSON(w, http.StatusOK, a.mem.fieldView(f))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, msgNotFound)
}
