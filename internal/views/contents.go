package views

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/types"
)

// ContentList is the browsable, filterable list of published items.
type ContentList struct {
	contents ContentAPI
	fields   FieldAPI

	filterMu sync.Mutex
	filter   types.ContentFilter

	list  loader[types.List[types.Content]]
	vocab loader[[]types.ScientificField]
}

func NewContentList(contents ContentAPI, fields FieldAPI) *ContentList {
	return &ContentList{contents: contents, fields: fields}
}

// Filter returns the active filter.
func (v *ContentList) Filter() types.ContentFilter {
	v.filterMu.Lock()
	defer v.filterMu.Unlock()
	return v.filter
}

// SetFilter replaces the filter and reloads.
func (v *ContentList) SetFilter(ctx context.Context, f types.ContentFilter) State[types.List[types.Content]] {
	v.filterMu.Lock()
	v.filter = f
	v.filterMu.Unlock()
	return v.Load(ctx)
}

// Load fetches the list for the active filter.
func (v *ContentList) Load(ctx context.Context) State[types.List[types.Content]] {
	gen := v.list.begin()
	list, err := v.contents.List(ctx, v.Filter())
	v.list.finish(gen, list, err, "Не вдалося завантажити контент")
	return v.list.get()
}

// LoadFields fetches the scientific field vocabulary for the filter.
func (v *ContentList) LoadFields(ctx context.Context) State[[]types.ScientificField] {
	gen := v.vocab.begin()
	list, err := v.fields.List(ctx)
	v.vocab.finish(gen, list.Items, err, "Не вдалося завантажити галузі")
	return v.vocab.get()
}

func (v *ContentList) State() State[types.List[types.Content]] { return v.list.get() }

func (v *ContentList) Fields() State[[]types.ScientificField] { return v.vocab.get() }

// ContentDetail is one item with its comment tree and the viewer's
// actions on it.
type ContentDetail struct {
	api    ContentAPI
	viewer Viewer
	slug   string
	item   loader[types.Content]
}

func NewContentDetail(api ContentAPI, viewer Viewer, slug string) *ContentDetail {
	return &ContentDetail{api: api, viewer: viewer, slug: slug}
}

// Slug returns the item's slug.
func (v *ContentDetail) Slug() string { return v.slug }

// Load fetches the item. A missing item yields a page-level message.
func (v *ContentDetail) Load(ctx context.Context) State[types.Content] {
	gen := v.item.begin()
	content, err := v.api.Get(ctx, v.slug)
	if errors.Is(err, apiclient.ErrNotFound) {
		v.item.fail(gen, err, "Контент не знайдено")
		return v.item.get()
	}
	v.item.finish(gen, content, err, "Не вдалося завантажити контент")
	return v.item.get()
}

func (v *ContentDetail) State() State[types.Content] { return v.item.get() }

// CanEdit reports whether the viewer authored the loaded item.
func (v *ContentDetail) CanEdit() bool {
	st := v.item.get()
	if !st.Loaded() || v.viewer == nil || !v.viewer.IsAuthenticated() {
		return false
	}
	user, ok := v.viewer.CurrentUser()
	return ok && user.ID == st.Data.Author.ID
}

// ToggleLike flips the viewer's like and applies the server's count.
func (v *ContentDetail) ToggleLike(ctx context.Context) (types.LikeResult, error) {
	if _, err := requireViewer(v.viewer); err != nil {
		return types.LikeResult{}, err
	}
	res, err := v.api.ToggleLike(ctx, v.slug)
	if err != nil {
		return types.LikeResult{}, gated(err)
	}
	v.item.patch(func(c *types.Content) {
		c.Liked = res.Liked()
		c.LikesCount = res.LikesCount
	})
	return res, nil
}

// AddComment posts a comment, or a reply when parentID is positive, and
// inserts it into the loaded tree: top-level comments at the end, replies
// at the end of exactly their parent's replies.
func (v *ContentDetail) AddComment(ctx context.Context, text string, parentID int) (types.Comment, error) {
	if _, err := requireViewer(v.viewer); err != nil {
		return types.Comment{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Comment{}, ErrEmptyText
	}
	if parentID > 0 {
		if st := v.item.get(); st.Loaded() && !hasTopLevel(st.Data.Comments, parentID) {
			return types.Comment{}, ErrReplyDepth
		}
	}

	comment, err := v.api.AddComment(ctx, v.slug, text, parentID)
	if err != nil {
		return types.Comment{}, gated(err)
	}

	v.item.patch(func(c *types.Content) {
		c.CommentsCount++
		if parentID <= 0 {
			c.Comments = append(c.Comments, comment)
			return
		}
		for i := range c.Comments {
			if c.Comments[i].ID == parentID {
				c.Comments = slices.Clone(c.Comments)
				c.Comments[i].Replies = append(c.Comments[i].Replies, comment)
				c.Comments[i].RepliesCount++
				return
			}
		}
	})
	return comment, nil
}

func hasTopLevel(comments []types.Comment, id int) bool {
	for _, c := range comments {
		if c.ID == id {
			return true
		}
	}
	return false
}

// DeleteComment removes a comment (and, for a top-level one, its replies).
func (v *ContentDetail) DeleteComment(ctx context.Context, id int) error {
	if _, err := requireViewer(v.viewer); err != nil {
		return err
	}
	if err := v.api.DeleteComment(ctx, id); err != nil {
		return gated(err)
	}
	v.item.patch(func(c *types.Content) {
		for i := range c.Comments {
			if c.Comments[i].ID == id {
				removed := 1 + len(c.Comments[i].Replies)
				c.Comments = slices.Delete(slices.Clone(c.Comments), i, i+1)
				c.CommentsCount = max(0, c.CommentsCount-removed)
				return
			}
			replies := c.Comments[i].Replies
			for j := range replies {
				if replies[j].ID == id {
					c.Comments = slices.Clone(c.Comments)
					c.Comments[i].Replies = slices.Delete(slices.Clone(replies), j, j+1)
					c.Comments[i].RepliesCount = max(0, c.Comments[i].RepliesCount-1)
					c.CommentsCount = max(0, c.CommentsCount-1)
					return
				}
			}
		}
	})
	return nil
}

// Delete removes the item. Only its author may do so.
func (v *ContentDetail) Delete(ctx context.Context) error {
	if _, err := requireViewer(v.viewer); err != nil {
		return err
	}
	if st := v.item.get(); st.Loaded() && !v.CanEdit() {
		return ErrNotAuthor
	}
	if err := v.api.Delete(ctx, v.slug); err != nil {
		return gated(err)
	}
	return nil
}
