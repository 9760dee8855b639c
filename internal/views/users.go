package views

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/types"
)

// UserList is the searchable user directory.
type UserList struct {
	api  UserAPI
	list loader[types.List[types.User]]

	mu     sync.Mutex
	search string
}

func NewUserList(api UserAPI) *UserList {
	return &UserList{api: api}
}

// Search loads the users matching q. Responses to superseded searches are
// dropped.
func (v *UserList) Search(ctx context.Context, q string) State[types.List[types.User]] {
	q = strings.TrimSpace(q)
	v.mu.Lock()
	v.search = q
	v.mu.Unlock()

	gen := v.list.begin()
	list, err := v.api.List(ctx, types.UserFilter{Search: q})
	v.list.finish(gen, list, err, "Не вдалося завантажити користувачів")
	return v.list.get()
}

// Query returns the last search term.
func (v *UserList) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.search
}

func (v *UserList) State() State[types.List[types.User]] { return v.list.get() }

// UserDetail is a public profile with the user's items and the follow
// toggle.
type UserDetail struct {
	api    UserAPI
	viewer Viewer
	id     int

	user     loader[types.User]
	contents loader[types.List[types.Content]]

	mu        sync.Mutex
	following bool
}

func NewUserDetail(api UserAPI, viewer Viewer, id int) *UserDetail {
	return &UserDetail{api: api, viewer: viewer, id: id}
}

// Load fetches the user, their items and whether the viewer follows them.
func (v *UserDetail) Load(ctx context.Context) State[types.User] {
	gen := v.user.begin()
	user, err := v.api.Get(ctx, v.id)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			v.user.fail(gen, err, "Користувача не знайдено")
		} else {
			v.user.finish(gen, types.User{}, err, "Не вдалося завантажити користувача")
		}
		return v.user.get()
	}
	if !v.user.finish(gen, user, nil, "") {
		return v.user.get()
	}

	cgen := v.contents.begin()
	list, err := v.api.Contents(ctx, v.id)
	v.contents.finish(cgen, list, err, "Не вдалося завантажити матеріали")

	if me, ok := v.viewerID(); ok && me != v.id {
		followers, err := v.api.Followers(ctx, v.id)
		if err == nil {
			following := false
			for _, f := range followers.Items {
				if f.ID == me {
					following = true
					break
				}
			}
			v.mu.Lock()
			v.following = following
			v.mu.Unlock()
		}
	}
	return v.user.get()
}

func (v *UserDetail) viewerID() (int, bool) {
	if v.viewer == nil || !v.viewer.IsAuthenticated() {
		return 0, false
	}
	u, ok := v.viewer.CurrentUser()
	return u.ID, ok
}

func (v *UserDetail) State() State[types.User] { return v.user.get() }

func (v *UserDetail) Contents() State[types.List[types.Content]] { return v.contents.get() }

// IsFollowing reports whether the viewer follows the user.
func (v *UserDetail) IsFollowing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.following
}

// IsSelf reports whether the viewer is looking at their own profile.
func (v *UserDetail) IsSelf() bool {
	me, ok := v.viewerID()
	return ok && me == v.id
}

// ToggleFollow flips the follow and adjusts the follower counter.
func (v *UserDetail) ToggleFollow(ctx context.Context) (types.FollowResult, error) {
	user, err := requireViewer(v.viewer)
	if err != nil {
		return types.FollowResult{}, err
	}
	if user.ID == v.id {
		return types.FollowResult{}, ErrSelfFollow
	}

	res, err := v.api.ToggleFollow(ctx, v.id)
	if err != nil {
		return types.FollowResult{}, gated(err)
	}

	v.mu.Lock()
	was := v.following
	v.following = res.Following()
	v.mu.Unlock()

	if was != res.Following() {
		v.user.patch(func(u *types.User) {
			if res.Following() {
				u.FollowersCount++
			} else if u.FollowersCount > 0 {
				u.FollowersCount--
			}
		})
	}
	return res, nil
}

// MinInstitutionQuery is the shortest query the picker sends.
const MinInstitutionQuery = 2

// InstitutionPicker is the institution autocomplete of the registration
// form.
type InstitutionPicker struct {
	api     InstitutionAPI
	results loader[[]types.Institution]
}

func NewInstitutionPicker(api InstitutionAPI) *InstitutionPicker {
	return &InstitutionPicker{api: api}
}

// Search suggests institutions for q. Shorter queries clear the
// suggestions without a request.
func (p *InstitutionPicker) Search(ctx context.Context, q string) State[[]types.Institution] {
	q = strings.TrimSpace(q)
	gen := p.results.begin()
	if utf8.RuneCountInString(q) < MinInstitutionQuery {
		p.results.finish(gen, []types.Institution{}, nil, "")
		return p.results.get()
	}
	list, err := p.api.Search(ctx, q)
	p.results.finish(gen, list.Items, err, "Не вдалося знайти заклади")
	return p.results.get()
}

func (p *InstitutionPicker) State() State[[]types.Institution] { return p.results.get() }

// Create adds an institution that the search did not find.
func (p *InstitutionPicker) Create(ctx context.Context, name string) (types.Institution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Institution{}, ErrEmptyText
	}
	return p.api.Create(ctx, name)
}
