package devapi

import (
	"net/http"
	"slices"
	"strings"

	"github.com/naukovi-znahidky/client/internal/forms"
	"github.com/naukovi-znahidky/client/types"
)

// userJSON is the user shape the API serves: the institution is a nested
// object, or null.
type userJSON struct {
	types.User
	Institution *types.Institution `json:"institution"`
}

func (a *API) userJSON(u *userRecord) userJSON {
	out := userJSON{User: a.mem.userView(u)}
	if !u.Institution.IsZero() {
		out.Institution = &types.Institution{ID: u.Institution.ID, Name: u.Institution.Name}
	}
	return out
}

func sortUsers(users []*userRecord) {
	slices.SortFunc(users, func(a, b *userRecord) int { return a.ID - b.ID })
}

func refs(users []*userRecord) []types.UserRef {
	out := make([]types.UserRef, 0, len(users))
	for _, u := range users {
		out = append(out, u.Ref())
	}
	return out
}

// resolveInstitution finds the referenced institution. A name that is not
// in the vocabulary yet is added to it.
func (m *memory) resolveInstitution(ref types.InstitutionRef) (types.InstitutionRef, bool) {
	if ref.ID != 0 {
		for _, inst := range m.institutions {
			if inst.ID == ref.ID {
				return types.InstitutionRef{ID: inst.ID, Name: inst.Name}, true
			}
		}
		return types.InstitutionRef{}, false
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return types.InstitutionRef{}, false
	}
	if inst, ok := m.institutionByName(name); ok {
		return types.InstitutionRef{ID: inst.ID, Name: inst.Name}, true
	}
	inst := m.addInstitution(name)
	return types.InstitutionRef{ID: inst.ID, Name: inst.Name}, true
}

func (m *memory) institutionByName(name string) (types.Institution, bool) {
	for _, inst := range m.institutions {
		if strings.EqualFold(inst.Name, name) {
			return inst, true
		}
	}
	return types.Institution{}, false
}

func (m *memory) addInstitution(name string) types.Institution {
	m.nextInstitution++
	inst := types.Institution{ID: m.nextInstitution, Name: name}
	m.institutions = append(m.institutions, inst)
	return inst
}

// Me returns the signed-in user.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	writeJSON(w, http.StatusOK, a.userJSON(a.mem.users[viewerID(r.Context())]))
}

type profilePatch struct {
	Username            *string `json:"username"`
	FullName            *string `json:"full_name"`
	Bio                 *string `json:"bio"`
	ScientificInterests *string `json:"scientific_interests"`
	Publications        *string `json:"publications"`
	ORCID               *string `json:"orcid"`
	GoogleScholar       *string `json:"google_scholar"`
}

// UpdateMe applies a partial profile update.
func (a *API) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profilePatch
	if !decodeBody(w, r, &req) {
		return
	}

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	user := a.mem.users[viewerID(r.Context())]

	errs := forms.ValidationErrors{}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		switch {
		case name == "":
			errs["username"] = []string{msgRequired}
		case a.mem.userByUsername(name, user.ID) != nil:
			errs["username"] = []string{"Користувач з таким іменем вже існує."}
		default:
			req.Username = &name
		}
	}
	if req.ORCID != nil && len([]rune(*req.ORCID)) > 50 {
		errs["orcid"] = []string{"Переконайтесь, що це значення містить не більше ніж 50 символів."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&user.Username, req.Username)
	apply(&user.FullName, req.FullName)
	apply(&user.Bio, req.Bio)
	apply(&user.ScientificInterests, req.ScientificInterests)
	apply(&user.Publications, req.Publications)
	apply(&user.ORCID, req.ORCID)
	apply(&user.GoogleScholar, req.GoogleScholar)

	writeJSON(w, http.StatusOK, a.userJSON(user))
}

// ListUsers returns a page of users filtered by ?search= on username,
// full name and institution.
func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()

	var matched []*userRecord
	for _, u := range a.mem.users {
		if search == "" ||
			strings.Contains(strings.ToLower(u.Username), search) ||
			strings.Contains(strings.ToLower(u.FullName), search) ||
			strings.Contains(strings.ToLower(u.Institution.Name), search) {
			matched = append(matched, u)
		}
	}
	sortUsers(matched)

	out := make([]userJSON, 0, len(matched))
	for _, u := range matched {
		out = append(out, a.userJSON(u))
	}
	p, ok := paginate(w, r, out)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// lookupUser resolves {userID}, writing a 404 when it does not exist.
// The caller holds mu.
func (a *API) lookupUser(w http.ResponseWriter, r *http.Request) *userRecord {
	id, ok := pathInt(r, "userID")
	if ok {
		if u := a.mem.users[id]; u != nil {
			return u
		}
	}
	writeDetail(w, http.StatusNotFound, msgNotFound)
	return nil
}

func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	if u := a.lookupUser(w, r); u != nil {
		writeJSON(w, http.StatusOK, a.userJSON(u))
	}
}

// UserContents lists the public items of a user, newest first.
func (a *API) UserContents(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	u := a.lookupUser(w, r)
	if u == nil {
		return
	}
	out := []types.Content{}
	for _, c := range a.mem.newestFirst() {
		if c.Author.ID == u.ID && c.IsPublic {
			out = append(out, a.mem.contentView(c, viewerID(r.Context()), false))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ToggleFollow follows the user, or unfollows when already following.
func (a *API) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	target := a.lookupUser(w, r)
	if target == nil {
		return
	}
	viewer := a.mem.users[viewerID(r.Context())]
	if viewer.ID == target.ID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Не можна підписатися на себе"})
		return
	}
	if viewer.following[target.ID] {
		delete(viewer.following, target.ID)
		writeJSON(w, http.StatusOK, types.FollowResult{Status: "unfollowed"})
		return
	}
	viewer.following[target.ID] = true
	writeJSON(w, http.StatusOK, types.FollowResult{Status: "followed"})
}

func (a *API) Followers(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	if u := a.lookupUser(w, r); u != nil {
		writeJSON(w, http.StatusOK, refs(a.mem.followersOf(u.ID)))
	}
}

func (a *API) Following(w http.ResponseWriter, r *http.Request) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	if u := a.lookupUser(w, r); u != nil {
		writeJSON(w, http.StatusOK, refs(a.mem.followingOf(u.ID)))
	}
}

// SearchInstitutions returns institutions whose name contains ?search=.
func (a *API) SearchInstitutions(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	out := []types.Institution{}
	for _, inst := range a.mem.institutions {
		if search == "" || strings.Contains(strings.ToLower(inst.Name), search) {
			out = append(out, inst)
		}
	}
	slices.SortFunc(out, func(a, b types.Institution) int { return strings.Compare(a.Name, b.Name) })
	writeJSON(w, http.StatusOK, out)
}

// CreateInstitution adds a name to the vocabulary.
func (a *API) CreateInstitution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, forms.ValidationErrors{"name": {msgRequired}})
		return
	}

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	if _, exists := a.mem.institutionByName(name); exists {
		writeJSON(w, http.StatusBadRequest, forms.ValidationErrors{"name": {"Навчальний заклад з такою назвою вже існує."}})
		return
	}
	writeJSON(w, http.StatusCreated, a.mem.addInstitution(name))
}
