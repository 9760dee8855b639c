package views

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/forms"
	"github.com/naukovi-znahidky/client/internal/session"
	"github.com/naukovi-znahidky/client/types"
)

type viewer struct {
	user *types.User
}

func (v viewer) IsAuthenticated() bool { return v.user != nil }

func (v viewer) CurrentUser() (types.User, bool) {
	if v.user == nil {
		return types.User{}, false
	}
	return *v.user, true
}

func (v viewer) UpdateProfile(ctx context.Context, update types.ProfileUpdate) session.Result {
	if v.user == nil {
		return session.Result{Error: "no"}
	}
	v.user.Bio = update.Bio
	return session.Result{Success: true}
}

var anonymous = viewer{}

func signedIn(id int) viewer {
	return viewer{user: &types.User{ID: id, Username: "u"}}
}

// fakeContents is an in-memory ContentAPI around one item.
type fakeContents struct {
	mu       sync.Mutex
	item     types.Content
	liked    bool
	nextID   int
	calls    int
	lists    []types.ContentFilter
	listFunc func(types.ContentFilter) (types.List[types.Content], error)
	mine     []types.Content
	err      error
}

func newFakeContents() *fakeContents {
	return &fakeContents{
		item: types.Content{
			ID: 1, Slug: "ideia", Title: "Ідея", ContentType: types.ContentIdea,
			Author:     types.UserRef{ID: 7, Username: "olena"},
			LikesCount: 3,
			Comments: []types.Comment{
				{ID: 10, Text: "перший"},
				{ID: 11, Text: "другий", Replies: []types.Comment{{ID: 12, Text: "відповідь"}}, RepliesCount: 1},
			},
			CommentsCount: 3,
		},
		nextID: 100,
	}
}

func (f *fakeContents) List(ctx context.Context, filter types.ContentFilter) (types.List[types.Content], error) {
	f.mu.Lock()
	f.lists = append(f.lists, filter)
	fn := f.listFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(filter)
	}
	return types.NewList([]types.Content{f.item}), nil
}

func (f *fakeContents) Mine(ctx context.Context) (types.List[types.Content], error) {
	return types.NewList(f.mine), f.err
}

func (f *fakeContents) Get(ctx context.Context, slug string) (types.Content, error) {
	if slug != f.item.Slug {
		return types.Content{}, &apiclient.APIError{StatusCode: 404, Detail: "Not found."}
	}
	return f.item, nil
}

func (f *fakeContents) Create(ctx context.Context, in types.ContentInput) (types.Content, error) {
	f.calls++
	return types.Content{ID: 2, Slug: "nove", Title: in.Title, ContentType: in.ContentType}, nil
}

func (f *fakeContents) Update(ctx context.Context, slug string, in types.ContentInput) (types.Content, error) {
	f.calls++
	c := f.item
	c.Title = in.Title
	return c, nil
}

func (f *fakeContents) Delete(ctx context.Context, slug string) error {
	f.calls++
	return f.err
}

func (f *fakeContents) ToggleLike(ctx context.Context, slug string) (types.LikeResult, error) {
	f.calls++
	if f.err != nil {
		return types.LikeResult{}, f.err
	}
	f.liked = !f.liked
	if f.liked {
		f.item.LikesCount++
		return types.LikeResult{Status: "liked", LikesCount: f.item.LikesCount}, nil
	}
	f.item.LikesCount--
	return types.LikeResult{Status: "unliked", LikesCount: f.item.LikesCount}, nil
}

func (f *fakeContents) AddComment(ctx context.Context, slug, text string, parentID int) (types.Comment, error) {
	f.calls++
	f.nextID++
	c := types.Comment{ID: f.nextID, Text: text}
	if parentID > 0 {
		c.ParentID = &parentID
	}
	return c, nil
}

func (f *fakeContents) DeleteComment(ctx context.Context, id int) error {
	f.calls++
	return nil
}

type fakeFields struct{}

func (fakeFields) List(ctx context.Context) (types.List[types.ScientificField], error) {
	return types.NewList([]types.ScientificField{{ID: 1, Name: "Фізика", Slug: "fizyka"}}), nil
}

func TestContentListFilterByType(t *testing.T) {
	api := newFakeContents()
	api.listFunc = func(f types.ContentFilter) (types.List[types.Content], error) {
		all := []types.Content{
			{ID: 1, ContentType: types.ContentIdea},
			{ID: 2, ContentType: types.ContentWebinar},
			{ID: 3, ContentType: types.ContentIdea},
		}
		var out []types.Content
		for _, c := range all {
			if f.ContentType == "" || c.ContentType == f.ContentType {
				out = append(out, c)
			}
		}
		return types.NewList(out), nil
	}
	v := NewContentList(api, fakeFields{})

	st := v.SetFilter(context.Background(), types.ContentFilter{ContentType: types.ContentIdea})
	if !st.Loaded() || st.Data.Len() != 2 {
		t.Fatalf("unexpected state %+v", st)
	}
	for _, c := range st.Data.Items {
		if c.ContentType != types.ContentIdea {
			t.Fatalf("unexpected item type %s", c.ContentType)
		}
	}

	st = v.SetFilter(context.Background(), types.ContentFilter{})
	if !st.Loaded() || st.Data.Len() != 3 {
		t.Fatalf("expected every item after clearing filters, got %+v", st)
	}
	if !v.Filter().IsZero() {
		t.Fatalf("expected an empty filter, got %+v", v.Filter())
	}
	if fs := v.LoadFields(context.Background()); !fs.Loaded() || len(fs.Data) != 1 {
		t.Fatalf("unexpected fields %+v", fs)
	}
}

func TestContentListDropsStaleResponse(t *testing.T) {
	api := newFakeContents()
	entered := make(chan struct{})
	release := make(chan struct{})
	api.listFunc = func(f types.ContentFilter) (types.List[types.Content], error) {
		if f.Search == "slow" {
			close(entered)
			<-release
			return types.NewList([]types.Content{{ID: 1, Title: "stale"}}), nil
		}
		return types.NewList([]types.Content{{ID: 2, Title: "fresh"}}), nil
	}
	v := NewContentList(api, fakeFields{})

	done := make(chan struct{})
	go func() {
		v.SetFilter(context.Background(), types.ContentFilter{Search: "slow"})
		close(done)
	}()
	<-entered
	v.SetFilter(context.Background(), types.ContentFilter{Search: "fast"})
	close(release)
	<-done

	st := v.State()
	if !st.Loaded() || st.Data.Items[0].Title != "fresh" {
		t.Fatalf("stale response overwrote the newer one: %+v", st)
	}
}

func TestContentDetailNotFound(t *testing.T) {
	v := NewContentDetail(newFakeContents(), anonymous, "nema")
	st := v.Load(context.Background())
	if !st.Failed() || st.Message != "Контент не знайдено" {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestLikeTwiceRestoresState(t *testing.T) {
	v := NewContentDetail(newFakeContents(), signedIn(9), "ideia")
	v.Load(context.Background())

	first, err := v.ToggleLike(context.Background())
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !first.Liked() || v.State().Data.LikesCount != 4 || !v.State().Data.Liked {
		t.Fatalf("unexpected state after like %+v", v.State().Data)
	}

	if _, err := v.ToggleLike(context.Background()); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	got := v.State().Data
	if got.Liked || got.LikesCount != 3 {
		t.Fatalf("expected original state, got liked=%v count=%d", got.Liked, got.LikesCount)
	}
}

func TestGatedActionsRequireLogin(t *testing.T) {
	api := newFakeContents()
	v := NewContentDetail(api, anonymous, "ideia")
	v.Load(context.Background())

	if _, err := v.ToggleLike(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("like: expected ErrLoginRequired, got %v", err)
	}
	if _, err := v.AddComment(context.Background(), "hi", 0); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("comment: expected ErrLoginRequired, got %v", err)
	}
	if err := v.Delete(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("delete: expected ErrLoginRequired, got %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("no request expected, got %d", api.calls)
	}
}

func TestExpiredSessionMapsToLoginRequired(t *testing.T) {
	api := newFakeContents()
	api.err = apiclient.ErrSessionExpired
	v := NewContentDetail(api, signedIn(9), "ideia")
	v.Load(context.Background())

	if _, err := v.ToggleLike(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
}

func TestReplyNestsUnderParent(t *testing.T) {
	v := NewContentDetail(newFakeContents(), signedIn(9), "ideia")
	v.Load(context.Background())

	reply, err := v.AddComment(context.Background(), "  моя відповідь ", 10)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.Text != "моя відповідь" {
		t.Fatalf("text should be trimmed, got %q", reply.Text)
	}

	comments := v.State().Data.Comments
	if len(comments) != 2 {
		t.Fatalf("a reply must not add a top-level comment, got %d", len(comments))
	}
	if len(comments[0].Replies) != 1 || comments[0].Replies[0].ID != reply.ID {
		t.Fatalf("reply not under its parent: %+v", comments[0])
	}
	if len(comments[1].Replies) != 1 {
		t.Fatalf("other parent changed: %+v", comments[1])
	}

	top, err := v.AddComment(context.Background(), "новий", 0)
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	comments = v.State().Data.Comments
	if len(comments) != 3 || comments[2].ID != top.ID {
		t.Fatalf("top-level comment not appended: %+v", comments)
	}
}

func TestReplyToReplyRejected(t *testing.T) {
	api := newFakeContents()
	v := NewContentDetail(api, signedIn(9), "ideia")
	v.Load(context.Background())

	if _, err := v.AddComment(context.Background(), "глибше", 12); !errors.Is(err, ErrReplyDepth) {
		t.Fatalf("expected ErrReplyDepth, got %v", err)
	}
	if _, err := v.AddComment(context.Background(), "   ", 0); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("no request expected, got %d", api.calls)
	}
}

func TestDeleteCommentPatchesTree(t *testing.T) {
	v := NewContentDetail(newFakeContents(), signedIn(9), "ideia")
	before := v.Load(context.Background())

	if err := v.DeleteComment(context.Background(), 12); err != nil {
		t.Fatalf("delete reply: %v", err)
	}
	if got := v.State().Data.Comments[1].Replies; len(got) != 0 {
		t.Fatalf("reply not removed: %+v", got)
	}
	if len(before.Data.Comments[1].Replies) != 1 {
		t.Fatalf("earlier snapshot must not change")
	}

	if err := v.DeleteComment(context.Background(), 10); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	data := v.State().Data
	if len(data.Comments) != 1 || data.Comments[0].ID != 11 || data.CommentsCount != 1 {
		t.Fatalf("unexpected tree %+v", data)
	}
}

func TestCanEditAndDelete(t *testing.T) {
	api := newFakeContents()
	stranger := NewContentDetail(api, signedIn(9), "ideia")
	stranger.Load(context.Background())
	if stranger.CanEdit() {
		t.Fatalf("stranger cannot edit")
	}
	if err := stranger.Delete(context.Background()); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}

	author := NewContentDetail(api, signedIn(7), "ideia")
	author.Load(context.Background())
	if !author.CanEdit() {
		t.Fatalf("author can edit")
	}
	if err := author.Delete(context.Background()); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestEditorRefusesNonAuthor(t *testing.T) {
	e := NewContentEditor(newFakeContents(), fakeFields{}, signedIn(9), "ideia")
	if err := e.Load(context.Background()); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}

	own := NewContentEditor(newFakeContents(), fakeFields{}, signedIn(7), "ideia")
	if err := own.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if own.Input().Title != "Ідея" {
		t.Fatalf("form not prefilled: %+v", own.Input())
	}
}

func TestEditorValidatesLocally(t *testing.T) {
	api := newFakeContents()
	e := NewContentCreator(api, fakeFields{}, signedIn(7), types.ContentLecture)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	in := e.Input()
	in.Title = "Лекція"
	in.Description = "Про кванти"
	_, err := e.Submit(context.Background(), in)
	var verrs forms.ValidationErrors
	if !errors.As(err, &verrs) || !verrs.Has("link") {
		t.Fatalf("expected link error, got %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("invalid form must not reach the backend")
	}

	in.Link = "https://example.org/lecture"
	created, err := e.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.Slug != "nove" || e.Slug() != "nove" {
		t.Fatalf("unexpected result %+v", created)
	}
}

type fakeUsers struct {
	mu        sync.Mutex
	user      types.User
	followers []types.UserRef
	searches  []string
}

func (f *fakeUsers) List(ctx context.Context, filter types.UserFilter) (types.List[types.User], error) {
	f.mu.Lock()
	f.searches = append(f.searches, filter.Search)
	f.mu.Unlock()
	return types.NewList([]types.User{f.user}), nil
}

func (f *fakeUsers) Get(ctx context.Context, id int) (types.User, error) {
	if id != f.user.ID {
		return types.User{}, &apiclient.APIError{StatusCode: 404}
	}
	return f.user, nil
}

func (f *fakeUsers) Contents(ctx context.Context, id int) (types.List[types.Content], error) {
	return types.NewList([]types.Content{{ID: 1}}), nil
}

func (f *fakeUsers) ToggleFollow(ctx context.Context, id int) (types.FollowResult, error) {
	for i, r := range f.followers {
		if r.ID == 9 {
			f.followers = append(f.followers[:i], f.followers[i+1:]...)
			return types.FollowResult{Status: "unfollowed"}, nil
		}
	}
	f.followers = append(f.followers, types.UserRef{ID: 9})
	return types.FollowResult{Status: "followed"}, nil
}

func (f *fakeUsers) Followers(ctx context.Context, id int) (types.List[types.UserRef], error) {
	return types.NewList(append([]types.UserRef(nil), f.followers...)), nil
}

func TestUserDetailFollow(t *testing.T) {
	api := &fakeUsers{user: types.User{ID: 7, Username: "olena", FollowersCount: 1}, followers: []types.UserRef{{ID: 3}}}
	v := NewUserDetail(api, signedIn(9), 7)

	if st := v.Load(context.Background()); !st.Loaded() {
		t.Fatalf("load: %+v", st)
	}
	if v.IsFollowing() {
		t.Fatalf("viewer does not follow yet")
	}
	if v.Contents().Data.Len() != 1 {
		t.Fatalf("contents not loaded")
	}

	res, err := v.ToggleFollow(context.Background())
	if err != nil || !res.Following() {
		t.Fatalf("follow: %v %+v", err, res)
	}
	if !v.IsFollowing() || v.State().Data.FollowersCount != 2 {
		t.Fatalf("unexpected state after follow: %v %d", v.IsFollowing(), v.State().Data.FollowersCount)
	}

	again := NewUserDetail(api, signedIn(9), 7)
	again.Load(context.Background())
	if !again.IsFollowing() {
		t.Fatalf("follow state should derive from the follower list")
	}

	if _, err := v.ToggleFollow(context.Background()); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if v.IsFollowing() || v.State().Data.FollowersCount != 1 {
		t.Fatalf("unexpected state after unfollow")
	}
}

func TestUserDetailSelfAndMissing(t *testing.T) {
	api := &fakeUsers{user: types.User{ID: 7}}
	self := NewUserDetail(api, signedIn(7), 7)
	self.Load(context.Background())
	if !self.IsSelf() {
		t.Fatalf("expected own profile")
	}
	if _, err := self.ToggleFollow(context.Background()); !errors.Is(err, ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}

	missing := NewUserDetail(api, anonymous, 99)
	if st := missing.Load(context.Background()); !st.Failed() || st.Message != "Користувача не знайдено" {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestUserListSearch(t *testing.T) {
	api := &fakeUsers{user: types.User{ID: 7}}
	v := NewUserList(api)
	if st := v.Search(context.Background(), "  олена "); !st.Loaded() {
		t.Fatalf("search: %+v", st)
	}
	if v.Query() != "олена" || api.searches[0] != "олена" {
		t.Fatalf("query not trimmed: %q", api.searches[0])
	}
}

type fakeInstitutions struct{ calls int }

func (f *fakeInstitutions) Search(ctx context.Context, q string) (types.List[types.Institution], error) {
	f.calls++
	return types.NewList([]types.Institution{{ID: 1, Name: "КПІ"}}), nil
}

func (f *fakeInstitutions) Create(ctx context.Context, name string) (types.Institution, error) {
	f.calls++
	return types.Institution{ID: 2, Name: name}, nil
}

func TestInstitutionPickerMinimumQuery(t *testing.T) {
	api := &fakeInstitutions{}
	p := NewInstitutionPicker(api)

	if st := p.Search(context.Background(), "К"); !st.Loaded() || len(st.Data) != 0 {
		t.Fatalf("unexpected state %+v", st)
	}
	if api.calls != 0 {
		t.Fatalf("short query must not search")
	}
	if st := p.Search(context.Background(), "КП"); len(st.Data) != 1 {
		t.Fatalf("unexpected suggestions %+v", st.Data)
	}
	if _, err := p.Create(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	inst, err := p.Create(context.Background(), " НаУКМА ")
	if err != nil || inst.Name != "НаУКМА" {
		t.Fatalf("create: %v %+v", err, inst)
	}
}

func TestProfile(t *testing.T) {
	api := newFakeContents()
	api.mine = []types.Content{{ID: 5, IsPublic: false}}

	if _, err := NewProfile(anonymous, api).Load(context.Background()); !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}

	me := signedIn(7)
	p := NewProfile(me, api)
	st, err := p.Load(context.Background())
	if err != nil || st.Data.Len() != 1 {
		t.Fatalf("load: %v %+v", err, st)
	}
	form := p.Form()
	form.Bio = "Хімік"
	if res := p.Save(context.Background(), form); !res.Success {
		t.Fatalf("save: %s", res.Error)
	}
	if u, _ := p.User(); u.Bio != "Хімік" {
		t.Fatalf("user not updated: %+v", u)
	}
}
