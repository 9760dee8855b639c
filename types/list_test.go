package types

import (
	"encoding/json"
	"testing"
)

func TestListDecodesBareArray(t *testing.T) {
	var l List[ScientificField]
	if err := json.Unmarshal([]byte(`[{"id":1,"name":"Фізика","slug":"fizyka"},{"id":2,"name":"Хімія","slug":"khimiia"}]`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if l.Paginated {
		t.Fatalf("expected unpaginated list")
	}
	if l.Len() != 2 || l.Count != 2 {
		t.Fatalf("unexpected sizes: len=%d count=%d", l.Len(), l.Count)
	}
	if l.Items[1].Slug != "khimiia" {
		t.Fatalf("unexpected item: %+v", l.Items[1])
	}
}

func TestListDecodesPage(t *testing.T) {
	body := `{"count":42,"next":"http://api/contents/?page=3","previous":null,"results":[{"id":7,"slug":"a","content_type":"idea"}]}`
	var l List[Content]
	if err := json.Unmarshal([]byte(body), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !l.Paginated {
		t.Fatalf("expected paginated list")
	}
	if l.Count != 42 || l.Len() != 1 {
		t.Fatalf("unexpected sizes: len=%d count=%d", l.Len(), l.Count)
	}
	if !l.HasNext() || l.Previous != "" {
		t.Fatalf("unexpected links: next=%q previous=%q", l.Next, l.Previous)
	}
	if l.Items[0].ContentType != ContentIdea {
		t.Fatalf("unexpected content type %q", l.Items[0].ContentType)
	}
}

func TestListEmptyResultsNeverNil(t *testing.T) {
	var l List[Content]
	if err := json.Unmarshal([]byte(`{"count":0,"results":null}`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if l.Items == nil {
		t.Fatalf("expected empty, non-nil items")
	}
}

func TestInstitutionRefShapes(t *testing.T) {
	cases := []struct {
		in   string
		want InstitutionRef
	}{
		{`"КПІ"`, InstitutionRef{Name: "КПІ"}},
		{`12`, InstitutionRef{ID: 12}},
		{`{"id":3,"name":"ЛНУ"}`, InstitutionRef{ID: 3, Name: "ЛНУ"}},
		{`null`, InstitutionRef{}},
	}
	for _, tc := range cases {
		var got InstitutionRef
		if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("unmarshal %s: got %+v, want %+v", tc.in, got, tc.want)
		}
	}

	out, err := json.Marshal(InstitutionRef{ID: 5, Name: "ignored"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "5" {
		t.Fatalf("expected id encoding, got %s", out)
	}
	out, _ = json.Marshal(InstitutionRef{Name: "КНУ"})
	if string(out) != `"КНУ"` {
		t.Fatalf("expected name encoding, got %s", out)
	}
}

func TestContentFilterQueryOmitsEmpty(t *testing.T) {
	if q := (ContentFilter{}).Query(); len(q) != 0 {
		t.Fatalf("expected empty query, got %v", q)
	}
	f := ContentFilter{Search: "  графен ", ContentType: ContentIdea, FieldSlug: "fizyka", Status: StatusCompleted}
	q := f.Query()
	if q.Get("search") != "графен" || q.Get("content_type") != "idea" ||
		q.Get("scientific_field__slug") != "fizyka" || q.Get("status") != "completed" {
		t.Fatalf("unexpected query %v", q)
	}
	back := ContentFilterFromQuery(q)
	f.Search = "графен"
	if back != f {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, f)
	}
}

func TestToggleResults(t *testing.T) {
	if !(LikeResult{Status: "liked"}).Liked() || (LikeResult{Status: "unliked"}).Liked() {
		t.Fatalf("unexpected like interpretation")
	}
	if !(FollowResult{Status: "followed"}).Following() || (FollowResult{Status: "unfollowed"}).Following() {
		t.Fatalf("unexpected follow interpretation")
	}
}
