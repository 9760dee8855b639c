package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/types"
)

// FieldService reads the scientific field vocabulary.
type FieldService struct {
	api Requester
}

func NewFieldService(api Requester) *FieldService {
	return &FieldService{api: api}
}

const fieldsPath = "/contents/fields/"

func (s *FieldService) List(ctx context.Context) (types.List[types.ScientificField], error) {
	var list types.List[types.ScientificField]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: fieldsPath, Anonymous: true}, &list)
	return list, err
}

func (s *FieldService) Get(ctx context.Context, slug string) (types.ScientificField, error) {
	var field types.ScientificField
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: slugPath(fieldsPath, slug, ""), Anonymous: true}, &field)
	return field, err
}

// InstitutionService searches and extends the institution directory.
type InstitutionService struct {
	api Requester
}

func NewInstitutionService(api Requester) *InstitutionService {
	return &InstitutionService{api: api}
}

const institutionsPath = "/institutions/"

func (s *InstitutionService) Search(ctx context.Context, query string) (types.List[types.Institution], error) {
	q := url.Values{}
	if query = strings.TrimSpace(query); query != "" {
		q.Set("search", query)
	}
	var list types.List[types.Institution]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: institutionsPath, Query: q, Anonymous: true}, &list)
	return list, err
}

// Create adds an institution by name. Registration is anonymous, so this
// call is as well.
func (s *InstitutionService) Create(ctx context.Context, name string) (types.Institution, error) {
	var inst types.Institution
	err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      institutionsPath,
		Body:      map[string]string{"name": strings.TrimSpace(name)},
		Anonymous: true,
	}, &inst)
	return inst, err
}
