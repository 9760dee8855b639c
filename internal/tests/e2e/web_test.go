//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/naukovi-znahidky/client/config"
	"github.com/naukovi-znahidky/client/internal/devapi"
	"github.com/naukovi-znahidky/client/internal/server"
	"go.uber.org/zap"
)

const (
	serverPort = 18080
)

var redisServer *miniredis.Miniredis

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	backend := httptest.NewServer(devapi.New(devapi.Config{}).Handler())

	var err error
	redisServer, err = miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis: %v\n", err)
		backend.Close()
		os.Exit(1)
	}

	env := map[string]string{
		"SERVER_PORT":     fmt.Sprint(serverPort),
		"API_BASE_URL":    backend.URL + "/api",
		"SESSION_BACKEND": config.SessionBackendRedis,
		"SESSION_KEY":     "e2e-session-secret-0123456789",
		"REDIS_ADDR":      redisServer.Addr(),
	}
	for k, v := range env {
		_ = os.Setenv(k, v)
	}

	srv, err := server.New(ctx, config.LoadConfig(), zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		redisServer.Close()
		backend.Close()
		os.Exit(1)
	}
	go func() {
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		}
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	redisServer.Close()
	backend.Close()
	os.Exit(code)
}

func TestWebLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("olena_%d", time.Now().UnixNano())
	client := newBrowser(t)

	if err := registerUser(client, baseURL, username); err != nil {
		t.Fatalf("register user: %v", err)
	}
	if len(redisServer.Keys()) == 0 {
		t.Fatalf("expected the session tokens in redis")
	}

	slug, err := createContent(client, baseURL, "E2E webinar")
	if err != nil {
		t.Fatalf("create content: %v", err)
	}
	if slug != "e2e-webinar" {
		t.Fatalf("unexpected slug: %q", slug)
	}

	body, err := getPage(client, baseURL+"/contents/"+slug)
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if !strings.Contains(body, "E2E webinar") || !strings.Contains(body, "Редагувати") {
		t.Fatalf("expected the author's view of the item")
	}

	body, err = getPage(client, baseURL+"/contents?content_type=webinar")
	if err != nil {
		t.Fatalf("list contents: %v", err)
	}
	if !strings.Contains(body, "/contents/"+slug) {
		t.Fatalf("expected the item in the list")
	}

	if err := postForm(client, baseURL+"/contents/"+slug+"/delete", url.Values{}, "/profile"); err != nil {
		t.Fatalf("delete content: %v", err)
	}
	if err := postForm(client, baseURL+"/logout", url.Values{}, "/"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(redisServer.Keys()) != 0 {
		t.Fatalf("expected the session tokens to be removed, got %v", redisServer.Keys())
	}
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func registerUser(client *http.Client, baseURL, username string) error {
	return postForm(client, baseURL+"/register", url.Values{
		"email":            {username + "@example.ua"},
		"username":         {username},
		"password":         {"testpass123!"},
		"password_confirm": {"testpass123!"},
		"role":             {"researcher"},
		"institution":      {"КПІ імені Ігоря Сікорського"},
	}, "/")
}

func createContent(client *http.Client, baseURL, title string) (string, error) {
	resp, err := client.PostForm(baseURL+"/contents/create", url.Values{
		"content_type": {"webinar"},
		"title":        {title},
		"description":  {"Запис вебінару"},
		"link":         {"https://example.ua/webinar"},
		"status":       {"completed"},
		"is_public":    {"on"},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/contents/") {
		return "", fmt.Errorf("unexpected redirect %q", loc)
	}
	return strings.TrimPrefix(loc, "/contents/"), nil
}

func postForm(client *http.Client, target string, form url.Values, wantLocation string) error {
	resp, err := client.PostForm(target, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if loc := resp.Header.Get("Location"); loc != wantLocation {
		return fmt.Errorf("redirected to %q, want %q", loc, wantLocation)
	}
	return nil
}

func getPage(client *http.Client, target string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	return string(body), nil
}

func waitForHealth(ctx context.Context, target string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		resp, err := http.Get(target)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
