// Package views holds the view models behind every page: what a page
// shows (loading, loaded or an error message) and the actions it offers.
// Front ends render a view's State and map ErrLoginRequired to the login
// page.
package views

import (
	"context"
	"errors"
	"sync"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/session"
	"github.com/naukovi-znahidky/client/types"
)

var (
	// ErrLoginRequired is returned by gated actions for anonymous viewers
	// and after the backend ended the session.
	ErrLoginRequired = errors.New("login required")
	// ErrNotAuthor is returned when a viewer tries to change someone
	// else's item.
	ErrNotAuthor = errors.New("only the author can change this item")
	// ErrEmptyText is returned for blank comments.
	ErrEmptyText = errors.New("text is empty")
	// ErrReplyDepth is returned when replying to something other than a
	// top-level comment.
	ErrReplyDepth = errors.New("replies are only allowed on top-level comments")
	// ErrSelfFollow is returned when a viewer tries to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// Status is the lifecycle of a fetch.
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	default:
		return "error"
	}
}

// State is what a view shows for one fetch.
type State[T any] struct {
	Status Status
	Data   T
	// Message is the display text of Err.
	Message string
	Err     error
}

func (s State[T]) Loading() bool { return s.Status == StatusLoading }
func (s State[T]) Loaded() bool  { return s.Status == StatusLoaded }
func (s State[T]) Failed() bool  { return s.Status == StatusError }

// loader tracks one fetch target. Every fetch takes a generation number
// and a response is applied only while its generation is current, so a
// slow stale response never overwrites a newer one.
type loader[T any] struct {
	mu    sync.Mutex
	gen   uint64
	state State[T]
}

func (l *loader[T]) begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.state = State[T]{Status: StatusLoading, Data: l.state.Data}
	return l.gen
}

// finish applies a response and reports whether it was current.
func (l *loader[T]) finish(gen uint64, data T, err error, fallback string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	if err != nil {
		var zero T
		l.state = State[T]{Status: StatusError, Data: zero, Err: err, Message: apiclient.Message(err, fallback)}
		return true
	}
	l.state = State[T]{Status: StatusLoaded, Data: data}
	return true
}

// fail records err with a fixed message.
func (l *loader[T]) fail(gen uint64, err error, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	l.state = State[T]{Status: StatusError, Err: err, Message: msg}
	return true
}

// patch edits loaded data in place; it is a no-op in any other status.
func (l *loader[T]) patch(fn func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Status != StatusLoaded {
		return false
	}
	fn(&l.state.Data)
	return true
}

func (l *loader[T]) get() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Viewer is who is looking at a page. *session.Store implements it.
type Viewer interface {
	IsAuthenticated() bool
	CurrentUser() (types.User, bool)
}

// ProfileSession is the session surface the profile page needs.
type ProfileSession interface {
	Viewer
	UpdateProfile(ctx context.Context, update types.ProfileUpdate) session.Result
}

func requireViewer(v Viewer) (types.User, error) {
	if v == nil || !v.IsAuthenticated() {
		return types.User{}, ErrLoginRequired
	}
	user, ok := v.CurrentUser()
	if !ok {
		return types.User{}, ErrLoginRequired
	}
	return user, nil
}

// gated turns session failures of an action into ErrLoginRequired.
func gated(err error) error {
	if errors.Is(err, apiclient.ErrSessionExpired) || errors.Is(err, apiclient.ErrUnauthenticated) {
		return ErrLoginRequired
	}
	return err
}

// ContentAPI is the content surface the views use.
// *services.ContentService implements it.
type ContentAPI interface {
	List(ctx context.Context, filter types.ContentFilter) (types.List[types.Content], error)
	Mine(ctx context.Context) (types.List[types.Content], error)
	Get(ctx context.Context, slug string) (types.Content, error)
	Create(ctx context.Context, in types.ContentInput) (types.Content, error)
	Update(ctx context.Context, slug string, in types.ContentInput) (types.Content, error)
	Delete(ctx context.Context, slug string) error
	ToggleLike(ctx context.Context, slug string) (types.LikeResult, error)
	AddComment(ctx context.Context, slug, text string, parentID int) (types.Comment, error)
	DeleteComment(ctx context.Context, id int) error
}

// FieldAPI is implemented by *services.FieldService.
type FieldAPI interface {
	List(ctx context.Context) (types.List[types.ScientificField], error)
}

// UserAPI is implemented by *services.UserService.
type UserAPI interface {
	List(ctx context.Context, filter types.UserFilter) (types.List[types.User], error)
	Get(ctx context.Context, id int) (types.User, error)
	Contents(ctx context.Context, id int) (types.List[types.Content], error)
	ToggleFollow(ctx context.Context, id int) (types.FollowResult, error)
	Followers(ctx context.Context, id int) (types.List[types.UserRef], error)
}

// InstitutionAPI is implemented by *services.InstitutionService.
type InstitutionAPI interface {
	Search(ctx context.Context, query string) (types.List[types.Institution], error)
	Create(ctx context.Context, name string) (types.Institution, error)
}

// Message renders an action error for display.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLoginRequired):
		return "Увійдіть, щоб продовжити."
	case errors.Is(err, ErrNotAuthor):
		return "Редагувати може лише автор."
	case errors.Is(err, ErrEmptyText):
		return "Коментар не може бути порожнім."
	case errors.Is(err, ErrReplyDepth):
		return "Відповідати можна лише на коментарі верхнього рівня."
	case errors.Is(err, ErrSelfFollow):
		return "Не можна підписатися на себе."
	default:
		return apiclient.Message(err, "Щось пішло не так. Спробуйте ще раз.")
	}
}
