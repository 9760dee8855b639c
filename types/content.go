package types

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ContentType discriminates the kinds of content items.
type ContentType string

const (
	ContentIdea     ContentType = "idea"
	ContentResource ContentType = "resource"
	ContentWebinar  ContentType = "webinar"
	ContentLecture  ContentType = "lecture"
)

// ContentTypes lists every content type in display order.
var ContentTypes = []ContentType{ContentIdea, ContentResource, ContentWebinar, ContentLecture}

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentIdea, ContentResource, ContentWebinar, ContentLecture:
		return true
	}
	return false
}

// RequiresLink reports whether items of this type must carry a link.
func (t ContentType) RequiresLink() bool {
	return t != ContentIdea
}

// Label returns the Ukrainian display name of the content type.
func (t ContentType) Label() string {
	switch t {
	case ContentIdea:
		return "Ідея"
	case ContentResource:
		return "Ресурс"
	case ContentWebinar:
		return "Вебінар"
	case ContentLecture:
		return "Лекція"
	default:
		return string(t)
	}
}

// ContentStatus is the progress state of a content item.
type ContentStatus string

const (
	StatusIdea       ContentStatus = "idea"
	StatusInProgress ContentStatus = "in_progress"
	StatusCompleted  ContentStatus = "completed"
)

// ContentStatuses lists every status in display order.
var ContentStatuses = []ContentStatus{StatusIdea, StatusInProgress, StatusCompleted}

// Valid reports whether s is a known status.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusIdea, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label returns the Ukrainian display name of the status.
func (s ContentStatus) Label() string {
	switch s {
	case StatusIdea:
		return "Ідея"
	case StatusInProgress:
		return "У процесі"
	case StatusCompleted:
		return "Завершено"
	default:
		return string(s)
	}
}

// Content represents a published item: an idea, a resource, a webinar or
// a lecture. List responses carry a subset of the fields; the detail
// response adds the description, keywords, the viewer's like flag and the
// comment tree.
type Content struct {
	// ID is the unique numeric identifier of the item.
	ID int `json:"id"`

	// Slug is the unique URL-safe identifier used in paths.
	Slug string `json:"slug"`

	// ContentType selects which fields are required (see RequiresLink).
	ContentType ContentType `json:"content_type"`

	// Title is the human-readable name of the item.
	Title string `json:"title"`

	// Description is the full text of the item.
	Description string `json:"description,omitempty"`

	// Link points at the external resource, webinar or lecture.
	Link string `json:"link,omitempty"`

	// ScientificFields are the disciplines the item is tagged with.
	ScientificFields []ScientificField `json:"scientific_fields"`

	// Keywords is a comma-separated list of free-form keywords.
	Keywords string `json:"keywords,omitempty"`

	// Status is the progress state of the item.
	Status ContentStatus `json:"status"`

	// IsPublic hides the item from everyone but its author when false.
	IsPublic bool `json:"is_public"`

	// IsOpenForCollaboration invites other users to join the work.
	IsOpenForCollaboration bool `json:"is_open_for_collaboration"`

	// Author is the owner of the item; only the author may change it.
	Author UserRef `json:"author"`

	// LikesCount is the number of likes.
	LikesCount int `json:"likes_count"`

	// ViewsCount is the number of detail views.
	ViewsCount int `json:"views_count"`

	// CommentsCount is the number of comments.
	CommentsCount int `json:"comments_count"`

	// Liked reports whether the viewer likes the item.
	Liked bool `json:"liked"`

	// Comments is the top-level comment tree, present on detail responses.
	Comments []Comment `json:"comments,omitempty"`

	// CreatedAt is the timestamp at which the item was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent update of the item.
	UpdatedAt time.Time `json:"updated_at"`
}

// KeywordList splits Keywords on commas and drops empty entries.
func (c Content) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(c.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// FieldIDs returns the ids of the item's scientific fields.
func (c Content) FieldIDs() []int {
	ids := make([]int, 0, len(c.ScientificFields))
	for _, f := range c.ScientificFields {
		ids = append(ids, f.ID)
	}
	return ids
}

// Input converts the item into an editable form body.
func (c Content) Input() ContentInput {
	return ContentInput{
		ContentType:            c.ContentType,
		Title:                  c.Title,
		Description:            c.Description,
		Link:                   c.Link,
		ScientificFieldIDs:     c.FieldIDs(),
		Keywords:               c.Keywords,
		Status:                 c.Status,
		IsPublic:               c.IsPublic,
		IsOpenForCollaboration: c.IsOpenForCollaboration,
	}
}

// ContentInput is the body of the create and update calls.
type ContentInput struct {
	ContentType            ContentType   `json:"content_type" validate:"required,oneof=idea resource webinar lecture"`
	Title                  string        `json:"title" validate:"required,max=255"`
	Description            string        `json:"description" validate:"required"`
	Link                   string        `json:"link" validate:"omitempty,url,max=500"`
	ScientificFieldIDs     []int         `json:"scientific_field_ids,omitempty"`
	Keywords               string        `json:"keywords" validate:"max=500"`
	Status                 ContentStatus `json:"status" validate:"required,oneof=idea in_progress completed"`
	IsPublic               bool          `json:"is_public"`
	IsOpenForCollaboration bool          `json:"is_open_for_collaboration"`
}

// NewContentInput returns the defaults of an empty create form.
func NewContentInput(t ContentType) ContentInput {
	if !t.Valid() {
		t = ContentIdea
	}
	return ContentInput{
		ContentType: t,
		Status:      StatusIdea,
		IsPublic:    true,
	}
}

// HasField reports whether the field id is selected.
func (in ContentInput) HasField(id int) bool {
	for _, v := range in.ScientificFieldIDs {
		if v == id {
			return true
		}
	}
	return false
}

// ContentFilter holds the list filters of the content list.
type ContentFilter struct {
	Search      string
	FieldSlug   string
	Status      ContentStatus
	ContentType ContentType
	Author      int
	Ordering    string
	Page        int
}

// IsZero reports whether no filter is set.
func (f ContentFilter) IsZero() bool {
	return f == ContentFilter{}
}

// Query encodes the filter, omitting empty values.
func (f ContentFilter) Query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.FieldSlug != "" {
		q.Set("scientific_field__slug", f.FieldSlug)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.ContentType != "" {
		q.Set("content_type", string(f.ContentType))
	}
	if f.Author > 0 {
		q.Set("author", strconv.Itoa(f.Author))
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

// ContentFilterFromQuery is the inverse of Query.
func ContentFilterFromQuery(q url.Values) ContentFilter {
	f := ContentFilter{
		Search:      strings.TrimSpace(q.Get("search")),
		FieldSlug:   q.Get("scientific_field__slug"),
		Status:      ContentStatus(q.Get("status")),
		ContentType: ContentType(q.Get("content_type")),
		Ordering:    q.Get("ordering"),
	}
	if v, err := strconv.Atoi(q.Get("author")); err == nil {
		f.Author = v
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = v
	}
	return f
}

// LikeResult is the reply of the like toggle.
type LikeResult struct {
	Status     string `json:"status"`
	LikesCount int    `json:"likes_count"`
}

// Liked reports whether the toggle left the item liked by the viewer.
func (l LikeResult) Liked() bool {
	return l.Status == "liked"
}

// Comment is a comment on a content item. Top-level comments carry their
// replies; replies never carry replies of their own.
type Comment struct {
	ID           int       `json:"id"`
	Text         string    `json:"text"`
	Author       UserRef   `json:"author"`
	ParentID     *int      `json:"parent_id,omitempty"`
	Replies      []Comment `json:"replies,omitempty"`
	RepliesCount int       `json:"replies_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewComment is the body of the add-comment call.
type NewComment struct {
	Text     string `json:"text"`
	ParentID *int   `json:"parent_id,omitempty"`
}

// ScientificField is an entry of the discipline vocabulary.
type ScientificField struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description,omitempty"`
	ContentsCount int    `json:"contents_count"`
}

// UserFilter holds the filters of the user list.
type UserFilter struct {
	Search string
	Page   int
}

// Query encodes the filter, omitting empty values.
func (f UserFilter) Query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}
