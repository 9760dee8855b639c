package views

import (
	"context"

	"github.com/naukovi-znahidky/client/internal/session"
	"github.com/naukovi-znahidky/client/types"
)

// Profile is the signed-in user's own page: the profile form and their
// items, private ones included.
type Profile struct {
	session  ProfileSession
	contents ContentAPI
	mine     loader[types.List[types.Content]]
}

func NewProfile(s ProfileSession, contents ContentAPI) *Profile {
	return &Profile{session: s, contents: contents}
}

// Load fetches the viewer's items.
func (p *Profile) Load(ctx context.Context) (State[types.List[types.Content]], error) {
	if _, err := requireViewer(p.session); err != nil {
		return State[types.List[types.Content]]{}, err
	}
	gen := p.mine.begin()
	list, err := p.contents.Mine(ctx)
	p.mine.finish(gen, list, err, "Не вдалося завантажити ваші матеріали")
	if err != nil && gated(err) == ErrLoginRequired {
		return p.mine.get(), ErrLoginRequired
	}
	return p.mine.get(), nil
}

// User returns the signed-in user.
func (p *Profile) User() (types.User, bool) {
	return p.session.CurrentUser()
}

// Form returns the profile form pre-filled from the current user.
func (p *Profile) Form() types.ProfileUpdate {
	u, _ := p.session.CurrentUser()
	return types.ProfileUpdateFrom(u)
}

func (p *Profile) Contents() State[types.List[types.Content]] { return p.mine.get() }

// Save submits the form through the session, which replaces the current
// user on success.
func (p *Profile) Save(ctx context.Context, update types.ProfileUpdate) session.Result {
	if _, err := requireViewer(p.session); err != nil {
		return session.Result{Error: Message(err)}
	}
	return p.session.UpdateProfile(ctx, update)
}
