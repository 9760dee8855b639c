package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role is the academic role a user registers with.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTeacher    Role = "teacher"
	RoleResearcher Role = "researcher"
)

// Label returns the Ukrainian display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "Студент"
	case RoleTeacher:
		return "Викладач"
	case RoleResearcher:
		return "Дослідник"
	default:
		return string(r)
	}
}

// EducationLevel is the highest education level a user reports.
type EducationLevel string

const (
	EducationIncompleteSecondary EducationLevel = "incomplete_secondary"
	EducationSecondary           EducationLevel = "secondary"
	EducationBachelor            EducationLevel = "bachelor"
	EducationMaster              EducationLevel = "master"
	EducationPhD                 EducationLevel = "phd"
	EducationDoctor              EducationLevel = "doctor"
)

// Label returns the Ukrainian display name of the education level.
func (e EducationLevel) Label() string {
	switch e {
	case EducationIncompleteSecondary:
		return "Неповна середня освіта"
	case EducationSecondary:
		return "Середня освіта"
	case EducationBachelor:
		return "Бакалавр"
	case EducationMaster:
		return "Магістр"
	case EducationPhD:
		return "Аспірант / PhD"
	case EducationDoctor:
		return "Доктор наук"
	default:
		return string(e)
	}
}

// User represents an account on the platform as returned by the API.
// It carries identity, academic profile, and follow counters.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id"`

	// Username is the public display handle.
	Username string `json:"username"`

	// Email is the login identifier of the account.
	Email string `json:"email,omitempty"`

	// FullName is the optional real name of the user.
	FullName string `json:"full_name,omitempty"`

	// Role is the academic role (student, teacher or researcher).
	Role Role `json:"role"`

	// Institution is the educational institution the user belongs to.
	Institution InstitutionRef `json:"institution"`

	// EducationLevel is the highest education level reported by the user.
	EducationLevel EducationLevel `json:"education_level,omitempty"`

	// Bio is the free-form biography shown on the profile page.
	Bio string `json:"bio,omitempty"`

	// ScientificInterests lists research interests as free text.
	ScientificInterests string `json:"scientific_interests,omitempty"`

	// Publications lists the user's publications as free text.
	Publications string `json:"publications,omitempty"`

	// ORCID is the researcher's ORCID identifier.
	ORCID string `json:"orcid,omitempty"`

	// GoogleScholar is a link to the Google Scholar profile.
	GoogleScholar string `json:"google_scholar,omitempty"`

	// Scopus is the Scopus author identifier or profile link.
	Scopus string `json:"scopus,omitempty"`

	// WebOfScience is the Web of Science researcher identifier or link.
	WebOfScience string `json:"web_of_science,omitempty"`

	// IsVerified marks accounts verified by the platform staff.
	IsVerified bool `json:"is_verified"`

	// FollowersCount is the number of users following this user.
	FollowersCount int `json:"followers_count"`

	// FollowingCount is the number of users this user follows.
	FollowingCount int `json:"following_count"`

	// Avatar is the URL of the profile picture, empty when unset.
	Avatar string `json:"avatar,omitempty"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`
}

// Ref returns the short reference form of the user.
func (u User) Ref() UserRef {
	return UserRef{
		ID:         u.ID,
		Username:   u.Username,
		Avatar:     u.Avatar,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// UserRef is the short user shape nested inside content, comments and
// follower lists.
type UserRef struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Avatar     string `json:"avatar,omitempty"`
	Role       Role   `json:"role,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// Initial returns the upper-cased first letter of the username, used as
// an avatar placeholder.
func (u UserRef) Initial() string {
	for _, r := range u.Username {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// Institution is an entry of the institution vocabulary.
type Institution struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// InstitutionRef is a user's institution. The API has served it as a
// bare name, a bare id and an {id, name} object; all three decode here.
type InstitutionRef struct {
	ID   int
	Name string
}

// IsZero reports whether no institution is set.
func (i InstitutionRef) IsZero() bool {
	return i.ID == 0 && i.Name == ""
}

// String returns the display name, falling back to the id.
func (i InstitutionRef) String() string {
	if i.Name != "" {
		return i.Name
	}
	if i.ID != 0 {
		return "#" + strconv.Itoa(i.ID)
	}
	return ""
}

// MarshalJSON encodes the id when known, the name otherwise.
func (i InstitutionRef) MarshalJSON() ([]byte, error) {
	if i.ID != 0 {
		return json.Marshal(i.ID)
	}
	if i.Name != "" {
		return json.Marshal(i.Name)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts null, a string name, a numeric id or an object.
func (i *InstitutionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*i = InstitutionRef{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &i.Name)
	case '{':
		var obj Institution
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		i.ID = obj.ID
		i.Name = obj.Name
		return nil
	default:
		id, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("institution: unexpected value %s", data)
		}
		i.ID = id
		return nil
	}
}

// Registration is the body of the account creation call.
type Registration struct {
	Email           string         `json:"email" validate:"required,email"`
	Username        string         `json:"username" validate:"required,max=150"`
	Password        string         `json:"password" validate:"required,min=8"`
	PasswordConfirm string         `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role           `json:"role" validate:"required,oneof=student teacher researcher"`
	Institution     InstitutionRef `json:"institution"`
	EducationLevel  EducationLevel `json:"education_level,omitempty" validate:"omitempty,oneof=incomplete_secondary secondary bachelor master phd doctor"`
}

// Credentials is the body of the login call.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate is the body of the profile update call.
type ProfileUpdate struct {
	Username            string `json:"username" validate:"required,max=150"`
	Bio                 string `json:"bio"`
	ScientificInterests string `json:"scientific_interests"`
	Publications        string `json:"publications"`
	ORCID               string `json:"orcid" validate:"max=50"`
	GoogleScholar       string `json:"google_scholar" validate:"omitempty,url"`
}

// ProfileUpdateFrom pre-fills a profile form from the current user.
func ProfileUpdateFrom(u User) ProfileUpdate {
	return ProfileUpdate{
		Username:            u.Username,
		Bio:                 u.Bio,
		ScientificInterests: u.ScientificInterests,
		Publications:        u.Publications,
		ORCID:               u.ORCID,
		GoogleScholar:       u.GoogleScholar,
	}
}

// FollowResult is the reply of the follow toggle.
type FollowResult struct {
	Status string `json:"status"`
}

// Following reports whether the toggle left the viewer following the user.
func (f FollowResult) Following() bool {
	return f.Status == "followed"
}
