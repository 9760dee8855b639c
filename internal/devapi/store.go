package devapi

import (
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/naukovi-znahidky/client/types"
)

// seedFields is the backend's initial scientific field vocabulary.
var seedFields = []types.ScientificField{
	{Name: "Інформаційні технології", Slug: "informatsiini-tekhnolohii", Description: "Програмування, штучний інтелект, кібербезпека"},
	{Name: "Математика", Slug: "matematyka", Description: "Алгебра, геометрія, математичний аналіз"},
	{Name: "Фізика", Slug: "fizyka", Description: "Квантова механіка, астрофізика, термодинаміка"},
	{Name: "Хімія", Slug: "khimiia", Description: "Органічна хімія, біохімія, матеріалознавство"},
	{Name: "Біологія", Slug: "biolohiia", Description: "Генетика, екологія, мікробіологія"},
	{Name: "Медицина", Slug: "medytsyna", Description: "Клінічна медицина, фармакологія, діагностика"},
	{Name: "Економіка", Slug: "ekonomika", Description: "Макроекономіка, фінанси, маркетинг"},
	{Name: "Право", Slug: "pravo", Description: "Цивільне право, кримінальне право, міжнародне право"},
	{Name: "Психологія", Slug: "psykholohiia", Description: "Когнітивна психологія, соціальна психологія"},
	{Name: "Соціологія", Slug: "sotsiolohiia", Description: "Соціальні структури, культурні дослідження"},
	{Name: "Філософія", Slug: "filosofiia", Description: "Етика, логіка, метафізика"},
	{Name: "Історія", Slug: "istoriia", Description: "Всесвітня історія, археологія, етнографія"},
	{Name: "Лінгвістика", Slug: "linhvistyka", Description: "Мовознавство, перекладознавство, семіотика"},
	{Name: "Екологія", Slug: "ekolohiia", Description: "Охорона довкілля, кліматологія, сталий розвиток"},
	{Name: "Інженерія", Slug: "inzheneriia", Description: "Машинобудування, електротехніка, будівництво"},
	{Name: "Освіта", Slug: "osvita", Description: "Освітні системи, освітня політика, дистанційне навчання, інклюзивна освіта"},
}

type userRecord struct {
	types.User
	passwordHash []byte
	following    map[int]bool
}

type contentRecord struct {
	types.Content
	fieldIDs []int
	likes    map[int]bool
}

type commentRecord struct {
	id        int
	contentID int
	authorID  int
	parentID  int
	text      string
	createdAt time.Time
}

// memory is the whole backend state. Every handler takes mu for the
// duration of its work.
type memory struct {
	mu sync.Mutex

	nextUser        int
	nextContent     int
	nextComment     int
	nextInstitution int

	users        map[int]*userRecord
	contents     []*contentRecord
	comments     []*commentRecord
	fields       []types.ScientificField
	institutions []types.Institution

	now func() time.Time
}

func newMemory() *memory {
	m := &memory{
		users: map[int]*userRecord{},
		now:   time.Now,
	}
	for i, f := range seedFields {
		f.ID = i + 1
		m.fields = append(m.fields, f)
	}
	return m
}

func (m *memory) userByEmail(email string) *userRecord {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (m *memory) userByUsername(username string, except int) *userRecord {
	for _, u := range m.users {
		if u.ID != except && strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

func (m *memory) followersOf(id int) []*userRecord {
	var out []*userRecord
	for _, u := range m.users {
		if u.following[id] {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out
}

func (m *memory) followingOf(id int) []*userRecord {
	u := m.users[id]
	if u == nil {
		return nil
	}
	var out []*userRecord
	for fid := range u.following {
		if f := m.users[fid]; f != nil {
			out = append(out, f)
		}
	}
	sortUsers(out)
	return out
}

// userView fills the computed counters of a user.
func (m *memory) userView(u *userRecord) types.User {
	view := u.User
	view.FollowersCount = len(m.followersOf(u.ID))
	view.FollowingCount = len(u.following)
	return view
}

func (m *memory) contentBySlug(slug string) *contentRecord {
	for _, c := range m.contents {
		if c.Slug == slug {
			return c
		}
	}
	return nil
}

func (m *memory) field(id int) (types.ScientificField, bool) {
	for _, f := range m.fields {
		if f.ID == id {
			return f, true
		}
	}
	return types.ScientificField{}, false
}

func (m *memory) fieldCount(id int) int {
	n := 0
	for _, c := range m.contents {
		for _, fid := range c.fieldIDs {
			if fid == id {
				n++
			}
		}
	}
	return n
}

func (m *memory) fieldView(f types.ScientificField) types.ScientificField {
	f.ContentsCount = m.fieldCount(f.ID)
	return f
}

func (m *memory) comment(id int) *commentRecord {
	for _, c := range m.comments {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (m *memory) authorRef(id int) types.UserRef {
	if u := m.users[id]; u != nil {
		return u.Ref()
	}
	return types.UserRef{ID: id}
}

func (m *memory) commentView(c *commentRecord, withReplies bool) types.Comment {
	view := types.Comment{
		ID:        c.id,
		Text:      c.text,
		Author:    m.authorRef(c.authorID),
		CreatedAt: c.createdAt,
	}
	if c.parentID != 0 {
		parent := c.parentID
		view.ParentID = &parent
	}
	if withReplies {
		view.Replies = []types.Comment{}
		for _, r := range m.comments {
			if r.parentID == c.id {
				view.Replies = append(view.Replies, m.commentView(r, false))
			}
		}
		view.RepliesCount = len(view.Replies)
	}
	return view
}

func (m *memory) topLevelComments(contentID int) []types.Comment {
	out := []types.Comment{}
	for _, c := range m.comments {
		if c.contentID == contentID && c.parentID == 0 {
			out = append(out, m.commentView(c, true))
		}
	}
	return out
}

// contentView renders an item. Lists count top-level comments only and
// carry neither the description nor the comment tree.
func (m *memory) contentView(c *contentRecord, viewer int, detail bool) types.Content {
	view := c.Content
	view.Author = m.authorRef(c.Author.ID)
	view.LikesCount = len(c.likes)
	view.ScientificFields = []types.ScientificField{}
	for _, id := range c.fieldIDs {
		if f, ok := m.field(id); ok {
			view.ScientificFields = append(view.ScientificFields, m.fieldView(f))
		}
	}

	total, top := 0, 0
	for _, cm := range m.comments {
		if cm.contentID == c.ID {
			total++
			if cm.parentID == 0 {
				top++
			}
		}
	}

	if !detail {
		view.Description = ""
		view.Keywords = ""
		view.CommentsCount = top
		return view
	}
	view.CommentsCount = total
	view.Liked = viewer != 0 && c.likes[viewer]
	view.Comments = m.topLevelComments(c.ID)
	return view
}

func (m *memory) visible(c *contentRecord, viewer int) bool {
	return c.IsPublic || (viewer != 0 && c.Author.ID == viewer)
}

// reservedSlugs collide with fixed routes under /contents/ here and in
// the web client.
var reservedSlugs = map[string]bool{"my": true, "fields": true, "comments": true, "create": true}

// uniqueSlug derives a slug from title and appends a counter until it
// is unused.
func (m *memory) uniqueSlug(title string) string {
	base := truncateRunes(slugify(title), 80)
	if base == "" {
		base = "content-" + strconv.FormatInt(m.now().Unix(), 10)
	}
	slug := base
	for counter := 1; reservedSlugs[slug] || m.contentBySlug(slug) != nil; counter++ {
		slug = truncateRunes(base, 70) + "-" + strconv.Itoa(counter)
	}
	return slug
}

// slugify keeps letters (any script), digits, underscores and hyphens,
// lower-cases them and joins words with single hyphens.
func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return strings.Trim(b.String(), "-_")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n]), "-")
}
