package views

import (
	"context"
	"errors"
	"strings"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/forms"
	"github.com/naukovi-znahidky/client/types"
)

// ContentEditor is the create and edit form of a content item.
type ContentEditor struct {
	api      ContentAPI
	fields   FieldAPI
	viewer   Viewer
	validate func(any) error

	slug  string
	input types.ContentInput
	vocab loader[[]types.ScientificField]
}

// NewContentCreator returns the form for a new item of type t.
func NewContentCreator(api ContentAPI, fields FieldAPI, viewer Viewer, t types.ContentType) *ContentEditor {
	return &ContentEditor{
		api:      api,
		fields:   fields,
		viewer:   viewer,
		validate: forms.Validate,
		input:    types.NewContentInput(t),
	}
}

// NewContentEditor returns the form for the existing item slug. Call Load
// before using it.
func NewContentEditor(api ContentAPI, fields FieldAPI, viewer Viewer, slug string) *ContentEditor {
	e := NewContentCreator(api, fields, viewer, types.ContentIdea)
	e.slug = slug
	return e
}

// IsEdit reports whether the form edits an existing item.
func (e *ContentEditor) IsEdit() bool { return e.slug != "" }

// Slug returns the edited item's slug, "" when creating.
func (e *ContentEditor) Slug() string { return e.slug }

// Input returns the current form values.
func (e *ContentEditor) Input() types.ContentInput { return e.input }

// Fields returns the field vocabulary state.
func (e *ContentEditor) Fields() State[[]types.ScientificField] { return e.vocab.get() }

// Load checks the viewer, fetches the vocabulary and, when editing, the
// item. Non-authors are refused before any form is shown.
func (e *ContentEditor) Load(ctx context.Context) error {
	user, err := requireViewer(e.viewer)
	if err != nil {
		return err
	}

	gen := e.vocab.begin()
	list, err := e.fields.List(ctx)
	e.vocab.finish(gen, list.Items, err, "Не вдалося завантажити галузі")

	if !e.IsEdit() {
		return nil
	}
	content, err := e.api.Get(ctx, e.slug)
	if err != nil {
		return gated(err)
	}
	if content.Author.ID != user.ID {
		return ErrNotAuthor
	}
	e.input = content.Input()
	return nil
}

// Submit validates in locally and creates or updates the item. Local
// failures are forms.ValidationErrors; server field errors come back as
// *apiclient.APIError.
func (e *ContentEditor) Submit(ctx context.Context, in types.ContentInput) (types.Content, error) {
	if _, err := requireViewer(e.viewer); err != nil {
		return types.Content{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Link = strings.TrimSpace(in.Link)
	in.Keywords = strings.TrimSpace(in.Keywords)
	e.input = in

	if err := e.validate(in); err != nil {
		return types.Content{}, err
	}

	var (
		content types.Content
		err     error
	)
	if e.IsEdit() {
		content, err = e.api.Update(ctx, e.slug, in)
	} else {
		content, err = e.api.Create(ctx, in)
	}
	if err != nil {
		if errors.Is(err, apiclient.ErrForbidden) {
			return types.Content{}, ErrNotAuthor
		}
		return types.Content{}, gated(err)
	}
	if content.Slug != "" {
		e.slug = content.Slug
	}
	return content, nil
}
