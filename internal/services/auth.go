package services

import (
	"context"
	"net/http"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/tokens"
	"github.com/naukovi-znahidky/client/types"
)

// AuthService covers registration, login and the current user.
type AuthService struct {
	api Requester
}

func NewAuthService(api Requester) *AuthService {
	return &AuthService{api: api}
}

type registerResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Register creates an account. It does not sign in.
func (s *AuthService) Register(ctx context.Context, reg types.Registration) (types.User, error) {
	var resp registerResponse
	err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/users/register/",
		Body:      reg,
		Anonymous: true,
	}, &resp)
	return resp.User, err
}

// Login exchanges credentials for a token pair. Persisting the pair is
// left to the caller.
func (s *AuthService) Login(ctx context.Context, creds types.Credentials) (tokens.Pair, error) {
	var resp loginResponse
	err := s.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/auth/login/",
		Body:      creds,
		Anonymous: true,
	}, &resp)
	if err != nil {
		return tokens.Pair{}, err
	}
	return tokens.Pair{Access: resp.Access, Refresh: resp.Refresh}, nil
}

func (s *AuthService) Me(ctx context.Context) (types.User, error) {
	var user types.User
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/users/me/"}, &user)
	return user, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, update types.ProfileUpdate) (types.User, error) {
	var user types.User
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/users/me/",
		Body:   update,
	}, &user)
	return user, err
}
