package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/devapi"
	"github.com/naukovi-znahidky/client/internal/services"
	"github.com/naukovi-znahidky/client/internal/tokens"
	"github.com/naukovi-znahidky/client/types"
	"github.com/redis/go-redis/v9"
)

const testSecret = "test-session-secret-0123456789"

type site struct {
	t       *testing.T
	web     *httptest.Server
	backend *services.Services
	client  *http.Client
}

func newSite(t *testing.T, binder func(t *testing.T) TokenBinder) *site {
	t.Helper()
	dev := httptest.NewServer(devapi.New(devapi.Config{}).Handler())
	t.Cleanup(dev.Close)

	render, err := NewRenderer(nil)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	api := apiclient.New(dev.URL+"/api", tokens.NewMemoryStore(tokens.Pair{}))
	h := NewHandler(api, binder(t), render, nil)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	Router(router, h)
	web := httptest.NewServer(router)
	t.Cleanup(web.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &site{
		t:       t,
		web:     web,
		backend: services.New(apiclient.New(dev.URL+"/api", tokens.NewMemoryStore(tokens.Pair{}))),
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func cookieBinder(t *testing.T) TokenBinder {
	b, err := NewCookieTokens("znahidky", testSecret, false, time.Hour)
	if err != nil {
		t.Fatalf("cookie tokens: %v", err)
	}
	return b
}

func (s *site) register(username string) types.User {
	s.t.Helper()
	user, err := s.backend.Auth.Register(context.Background(), types.Registration{
		Email:           username + "@example.ua",
		Username:        username,
		Password:        "sekretnyi1",
		PasswordConfirm: "sekretnyi1",
		Role:            types.RoleStudent,
		Institution:     types.InstitutionRef{Name: "ХНУ імені Каразіна"},
	})
	if err != nil {
		s.t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func (s *site) get(path string) (*http.Response, string) {
	s.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, s.web.URL+path, nil)
	req.Header.Set("Accept", "text/html")
	return s.do(req)
}

func (s *site) post(path string, form url.Values) (*http.Response, string) {
	s.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, s.web.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *site) do(req *http.Request) (*http.Response, string) {
	s.t.Helper()
	resp, err := s.client.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (s *site) login(username string) {
	s.t.Helper()
	resp, body := s.post("/login", url.Values{
		"email":    {username + "@example.ua"},
		"password": {"sekretnyi1"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		s.t.Fatalf("login: expected redirect, got %d: %s", resp.StatusCode, body)
	}
}

func expectRedirect(t *testing.T, resp *http.Response, prefix string) string {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, prefix) {
		t.Fatalf("expected redirect to %s, got %s", prefix, loc)
	}
	return loc
}

func TestGuardRedirectsAnonymousBrowsers(t *testing.T) {
	s := newSite(t, cookieBinder)

	resp, _ := s.get("/profile")
	expectRedirect(t, resp, "/login?return="+url.QueryEscape("/profile"))

	resp, _ = s.get("/contents/create?type=webinar")
	expectRedirect(t, resp, "/login?return="+url.QueryEscape("/contents/create?type=webinar"))
}

func TestGuardAnswersAPICallersWith401(t *testing.T) {
	s := newSite(t, cookieBinder)

	req, _ := http.NewRequest(http.MethodPost, s.web.URL+"/contents/anything/like", nil)
	req.Header.Set("Accept", "application/json")
	resp, body := s.do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal([]byte(body), &errResp); err != nil || errResp.Error == "" {
		t.Fatalf("expected JSON error body, got %q", body)
	}
}

func TestLoginReturnsToRequestedPage(t *testing.T) {
	s := newSite(t, cookieBinder)
	s.register("olena")

	resp, body := s.get("/login?return=/profile")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `value="/profile"`) {
		t.Fatalf("expected login form with return target, got %d", resp.StatusCode)
	}

	resp, _ = s.post("/login", url.Values{
		"email":    {"olena@example.ua"},
		"password": {"sekretnyi1"},
		"return":   {"/profile"},
	})
	expectRedirect(t, resp, "/profile")

	resp, body = s.get("/profile")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "olena@example.ua") {
		t.Fatalf("expected profile page, got %d", resp.StatusCode)
	}
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	s := newSite(t, cookieBinder)
	s.register("olena")

	resp, body := s.post("/login", url.Values{"email": {"olena@example.ua"}, "password": {"nepravylnyi"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "No active account found with the given credentials") {
		t.Fatalf("expected the server's message in the page")
	}
}

func TestLoginIgnoresOffsiteReturn(t *testing.T) {
	s := newSite(t, cookieBinder)
	s.register("olena")

	resp, _ := s.post("/login", url.Values{
		"email":    {"olena@example.ua"},
		"password": {"sekretnyi1"},
		"return":   {"//evil.example/steal"},
	})
	if loc := expectRedirect(t, resp, "/"); loc != "/" {
		t.Fatalf("expected redirect home, got %s", loc)
	}
}

func TestRegisterSignsIn(t *testing.T) {
	s := newSite(t, cookieBinder)

	resp, body := s.post("/register", url.Values{
		"email":            {"taras@example.ua"},
		"username":         {"taras"},
		"password":         {"sekretnyi1"},
		"password_confirm": {"inshyi-parol"},
		"role":             {"teacher"},
		"institution":      {"ЛНУ імені Франка"},
	})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Паролі не співпадають.") {
		t.Fatalf("expected password mismatch message, got %d", resp.StatusCode)
	}

	resp, _ = s.post("/register", url.Values{
		"email":            {"taras@example.ua"},
		"username":         {"taras"},
		"password":         {"sekretnyi1"},
		"password_confirm": {"sekretnyi1"},
		"role":             {"teacher"},
		"institution":      {"ЛНУ імені Франка"},
		"education_level":  {"master"},
	})
	expectRedirect(t, resp, "/")

	_, body = s.get("/profile")
	if !strings.Contains(body, "taras@example.ua") {
		t.Fatalf("expected to be signed in after registration")
	}
}

func TestContentLifecycle(t *testing.T) {
	s := newSite(t, cookieBinder)
	s.register("olena")
	s.login("olena")

	resp, body := s.get("/contents/create?type=resource")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `value="resource" selected`) {
		t.Fatalf("expected editor for a resource, got %d", resp.StatusCode)
	}

	resp, body = s.post("/contents/create", url.Values{
		"content_type": {"resource"},
		"title":        {"Quantum notes"},
		"description":  {"Без посилання"},
		"status":       {"idea"},
		"is_public":    {"on"},
	})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Посилання обов") {
		t.Fatalf("expected a link error, got %d", resp.StatusCode)
	}

	resp, _ = s.post("/contents/create", url.Values{
		"content_type":         {"resource"},
		"title":                {"Quantum notes"},
		"description":          {"<script>alert(1)</script>Конспект лекцій"},
		"link":                 {"https://example.ua/notes"},
		"status":               {"in_progress"},
		"scientific_field_ids": {"3"},
		"is_public":            {"on"},
	})
	loc := expectRedirect(t, resp, "/contents/quantum-notes")

	resp, body = s.get(loc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail: %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Конспект лекцій") || strings.Contains(body, "<script>alert(1)") {
		t.Fatalf("expected sanitised description")
	}
	if !strings.Contains(body, "Фізика") || !strings.Contains(body, "/contents/quantum-notes/edit") {
		t.Fatalf("expected field tag and edit link for the author")
	}

	resp, _ = s.post(loc+"/comments", url.Values{"text": {"Перший коментар"}})
	expectRedirect(t, resp, loc+"#comment-")
	_, body = s.get(loc)
	if !strings.Contains(body, "Перший коментар") {
		t.Fatalf("expected the comment on the page")
	}

	req, _ := http.NewRequest(http.MethodPost, s.web.URL+loc+"/like", nil)
	req.Header.Set("Accept", "application/json")
	resp, body = s.do(req)
	var like types.LikeResult
	if resp.StatusCode != http.StatusOK || json.Unmarshal([]byte(body), &like) != nil || !like.Liked() || like.LikesCount != 1 {
		t.Fatalf("unexpected like reply %d: %s", resp.StatusCode, body)
	}

	resp, _ = s.post(loc+"/delete", url.Values{})
	expectRedirect(t, resp, "/profile")
	resp, _ = s.get(loc)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestEditRefusesNonAuthor(t *testing.T) {
	s := newSite(t, cookieBinder)
	s.register("olena")
	s.register("taras")
	s.login("olena")

	resp, _ := s.post("/contents/create", url.Values{
		"content_type": {"idea"},
		"title":        {"Shared idea"},
		"description":  {"Опис"},
		"status":       {"idea"},
		"is_public":    {"on"},
	})
	loc := expectRedirect(t, resp, "/contents/shared-idea")

	resp, _ = s.post("/logout", url.Values{})
	expectRedirect(t, resp, "/")
	s.login("taras")

	resp, _ = s.get(loc + "/edit")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-author, got %d", resp.StatusCode)
	}
	_, body := s.get(loc)
	if strings.Contains(body, loc+"/edit") {
		t.Fatalf("non-author should not see the edit link")
	}
}

func TestLogoutForgetsTokens(t *testing.T) {
	s := newSite(t, cookieBinder)
	s.register("olena")
	s.login("olena")

	resp, _ := s.post("/logout", url.Values{})
	expectRedirect(t, resp, "/")

	resp, _ = s.get("/profile")
	expectRedirect(t, resp, "/login")
}

func TestFollowFromProfilePage(t *testing.T) {
	s := newSite(t, cookieBinder)
	olena := s.register("olena")
	s.register("taras")
	s.login("taras")

	path := "/users/" + itoa(olena.ID)
	resp, body := s.get(path)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Підписатися") {
		t.Fatalf("expected follow button, got %d", resp.StatusCode)
	}

	resp, _ = s.post(path+"/follow", url.Values{})
	expectRedirect(t, resp, path)
	_, body = s.get(path)
	if !strings.Contains(body, "Відписатися") || !strings.Contains(body, "Підписників: 1") {
		t.Fatalf("expected the follow to show on the page")
	}

	resp, _ = s.get("/users/999")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing user, got %d", resp.StatusCode)
	}
}

func TestInstitutionAutocomplete(t *testing.T) {
	s := newSite(t, cookieBinder)
	s.register("olena")

	req, _ := http.NewRequest(http.MethodGet, s.web.URL+"/institutions?q="+url.QueryEscape("Кара"), nil)
	resp, body := s.do(req)
	var found []types.Institution
	if resp.StatusCode != http.StatusOK || json.Unmarshal([]byte(body), &found) != nil || len(found) != 1 {
		t.Fatalf("unexpected search reply %d: %s", resp.StatusCode, body)
	}

	req, _ = http.NewRequest(http.MethodGet, s.web.URL+"/institutions?q=K", nil)
	_, body = s.do(req)
	if strings.TrimSpace(body) != "[]" {
		t.Fatalf("short queries should not search, got %s", body)
	}
}

func TestRedisTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := newSite(t, func(t *testing.T) TokenBinder {
		b, err := NewRedisTokens(client, "znahidky", testSecret, false, time.Hour)
		if err != nil {
			t.Fatalf("redis tokens: %v", err)
		}
		return b
	})
	s.register("olena")
	s.login("olena")

	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], tokens.DefaultRedisPrefix) {
		t.Fatalf("expected one token hash, got %v", keys)
	}
	if mr.HGet(keys[0], tokens.AccessKey) == "" {
		t.Fatalf("expected an access token in redis")
	}

	resp, body := s.get("/profile")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "olena@example.ua") {
		t.Fatalf("expected profile page, got %d", resp.StatusCode)
	}

	resp, _ = s.post("/logout", url.Values{})
	expectRedirect(t, resp, "/")
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected tokens to be removed, got %v", mr.Keys())
	}
}

func TestLoginAfterRejectedCookie(t *testing.T) {
	binder, err := NewCookieTokens("znahidky", testSecret, false, time.Hour)
	if err != nil {
		t.Fatalf("cookie tokens: %v", err)
	}
	s := newSite(t, func(*testing.T) TokenBinder { return binder })
	s.register("olena")

	encoded, err := securecookie.EncodeMulti("znahidky", map[any]any{
		tokens.AccessKey:  "stale",
		tokens.RefreshKey: "stale",
	}, binder.store.Codecs...)
	if err != nil {
		t.Fatalf("encode cookie: %v", err)
	}
	siteURL, _ := url.Parse(s.web.URL)
	s.client.Jar.SetCookies(siteURL, []*http.Cookie{{Name: "znahidky", Value: encoded, Path: "/"}})

	resp, _ := s.post("/login", url.Values{
		"email":    {"olena@example.ua"},
		"password": {"sekretnyi1"},
		"return":   {"/profile"},
	})
	expectRedirect(t, resp, "/profile")
	cookies := resp.Cookies()
	if len(cookies) == 0 || cookies[len(cookies)-1].MaxAge <= 0 {
		t.Fatalf("expected the last cookie to keep the session, got %v", cookies)
	}

	resp, body := s.get("/profile")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "olena@example.ua") {
		t.Fatalf("expected the session to survive, got %d", resp.StatusCode)
	}
}

func TestCookieTokensRejectShortSecret(t *testing.T) {
	if _, err := NewCookieTokens("znahidky", "short", false, time.Hour); err == nil {
		t.Fatalf("expected an error for a short secret")
	}
}

func TestSafeReturn(t *testing.T) {
	cases := map[string]string{
		"":                  "/",
		"/contents?page=2":  "/contents?page=2",
		"https://evil.test": "/",
		"//evil.test":       "/",
		"/\\evil.test":      "/",
	}
	for in, want := range cases {
		if got := safeReturn(in, "/"); got != want {
			t.Fatalf("safeReturn(%q) = %q, want %q", in, got, want)
		}
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
