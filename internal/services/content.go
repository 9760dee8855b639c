package services

import (
	"context"
	"net/http"
	"strconv"

	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/types"
)

// ContentService covers content items, likes and comments.
type ContentService struct {
	api Requester
}

func NewContentService(api Requester) *ContentService {
	return &ContentService{api: api}
}

const contentsPath = "/contents/"

func (s *ContentService) List(ctx context.Context, filter types.ContentFilter) (types.List[types.Content], error) {
	var list types.List[types.Content]
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   contentsPath,
		Query:  filter.Query(),
	}, &list)
	return list, err
}

// Mine lists the viewer's own items, private ones included.
func (s *ContentService) Mine(ctx context.Context) (types.List[types.Content], error) {
	var list types.List[types.Content]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: contentsPath + "my/"}, &list)
	return list, err
}

// Get fetches the detail of one item. The backend counts it as a view.
func (s *ContentService) Get(ctx context.Context, slug string) (types.Content, error) {
	var content types.Content
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: slugPath(contentsPath, slug, "")}, &content)
	return content, err
}

func (s *ContentService) Create(ctx context.Context, in types.ContentInput) (types.Content, error) {
	var content types.Content
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: contentsPath, Body: in}, &content)
	return content, err
}

func (s *ContentService) Update(ctx context.Context, slug string, in types.ContentInput) (types.Content, error) {
	var content types.Content
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPatch,
		Path:   slugPath(contentsPath, slug, ""),
		Body:   in,
	}, &content)
	return content, err
}

func (s *ContentService) Delete(ctx context.Context, slug string) error {
	return s.api.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: slugPath(contentsPath, slug, "")}, nil)
}

// ToggleLike flips the viewer's like and returns the new state.
func (s *ContentService) ToggleLike(ctx context.Context, slug string) (types.LikeResult, error) {
	var res types.LikeResult
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: slugPath(contentsPath, slug, "like/")}, &res)
	return res, err
}

// Comments lists the top-level comments of an item with their replies.
func (s *ContentService) Comments(ctx context.Context, slug string) (types.List[types.Comment], error) {
	var list types.List[types.Comment]
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: slugPath(contentsPath, slug, "comments/")}, &list)
	return list, err
}

// AddComment posts a comment; a positive parentID makes it a reply.
func (s *ContentService) AddComment(ctx context.Context, slug, text string, parentID int) (types.Comment, error) {
	body := types.NewComment{Text: text}
	if parentID > 0 {
		body.ParentID = &parentID
	}
	var comment types.Comment
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   slugPath(contentsPath, slug, "comments/"),
		Body:   body,
	}, &comment)
	return comment, err
}

func (s *ContentService) DeleteComment(ctx context.Context, id int) error {
	return s.api.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   contentsPath + "comments/" + strconv.Itoa(id) + "/",
	}, nil)
}
