package services

import (
	"context"
	"net/http"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/types"
)

// UserService covers public profiles and the follow graph.
type UserService struct {
	api Requester
}

func NewUserService(api Requester) *UserService {
	return &UserService{api: api}
}

const usersPath = "/users/"

func (s *UserService) List(ctx context.Context, filter types.UserFilter) (types.List[types.User], error) {
	var list types.List[types.User]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: usersPath, Query: filter.Query()}, &list)
	return list, err
}

func (s *UserService) Get(ctx context.Context, id int) (types.User, error) {
	var user types.User
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: idPath(usersPath, id, "")}, &user)
	return user, err
}

// Contents lists the public items authored by the user.
func (s *UserService) Contents(ctx context.Context, id int) (types.List[types.Content], error) {
	var list types.List[types.Content]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: idPath(usersPath, id, "contents/")}, &list)
	return list, err
}

// ToggleFollow flips whether the viewer follows the user.
func (s *UserService) ToggleFollow(ctx context.Context, id int) (types.FollowResult, error) {
	var res types.FollowResult
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: idPath(usersPath, id, "follow/")}, &res)
	return res, err
}

func (s *UserService) Followers(ctx context.Context, id int) (types.List[types.UserRef], error) {
	var list types.List[types.UserRef]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: idPath(usersPath, id, "followers/")}, &list)
	return list, err
}

func (s *UserService) Following(ctx context.Context, id int) (types.List[types.UserRef], error) {
	var list types.List[types.UserRef]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: idPath(usersPath, id, "following/")}, &list)
	return list, err
}
