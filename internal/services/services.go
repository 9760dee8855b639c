// Package services maps the backend's domain operations onto typed calls.
// Each function is one request; there is no caching or retrying here.
package services

import (
	"context"
	"net/url"
	"strconv"

	"github.com/naukovi-znahidky/client/internal/apiclient"
)

// Requester sends one API request. *apiclient.Client implements it.
type Requester interface {
	Do(ctx context.Context, req apiclient.Request, out any) error
}

// Services bundles the domain modules over one requester.
type Services struct {
	Auth         *AuthService
	Contents     *ContentService
	Users        *UserService
	Fields       *FieldService
	Institutions *InstitutionService
}

// New constructs every domain module over api.
func New(api Requester) *Services {
	return &Services{
		Auth:         NewAuthService(api),
		Contents:     NewContentService(api),
		Users:        NewUserService(api),
		Fields:       NewFieldService(api),
		Institutions: NewInstitutionService(api),
	}
}

func slugPath(prefix, slug, suffix string) string {
	return prefix + url.PathEscape(slug) + "/" + suffix
}

func idPath(prefix string, id int, suffix string) string {
	return prefix + strconv.Itoa(id) + "/" + suffix
}
