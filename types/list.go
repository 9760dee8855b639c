package types

import (
	"bytes"
	"encoding/json"
)

// List is the single result envelope for collection endpoints. Some
// endpoints return a bare JSON array and others a paginated page object;
// both decode into a List so callers never branch on the shape.
type List[T any] struct {
	// Items holds the decoded elements, never nil after decoding.
	Items []T `json:"results"`

	// Count is the total number of matching elements across all pages.
	// For bare arrays it equals len(Items).
	Count int `json:"count"`

	// Next and Previous are the page links, empty when absent.
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`

	// Paginated records whether the server sent a page object.
	Paginated bool `json:"-"`
}

// NewList wraps items in an unpaginated envelope.
func NewList[T any](items []T) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Count: len(items)}
}

// Len returns the number of items on this page.
func (l List[T]) Len() int {
	return len(l.Items)
}

// HasNext reports whether another page follows.
func (l List[T]) HasNext() bool {
	return l.Next != ""
}

// UnmarshalJSON decodes either a bare array or a page object.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = NewList(items)
		return nil
	}

	var page struct {
		Count    int     `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []T     `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}
	*l = NewList(page.Results)
	l.Paginated = true
	l.Count = page.Count
	if page.Next != nil {
		l.Next = *page.Next
	}
	if page.Previous != nil {
		l.Previous = *page.Previous
	}
	return nil
}
