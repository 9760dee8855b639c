package handlers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/naukovi-znahidky/client/internal/tokens"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/hkdf"
)

// TokenBinder hands out the token store of the browser behind a request.
// Stores write cookies, so Save and Clear must run before the response
// body is written.
type TokenBinder interface {
	Bind(w http.ResponseWriter, r *http.Request) tokens.Store
}

// deriveKeys stretches the configured secret into a cookie signing key
// and an encryption key.
func deriveKeys(secret string) (hashKey, blockKey []byte, err error) {
	if len(secret) < 16 {
		return nil, nil, errors.New("SESSION_KEY is required (16+ chars)")
	}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("znahidky session cookie"))
	hashKey = make([]byte, 64)
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(kdf, hashKey); err != nil {
		return nil, nil, fmt.Errorf("derive hash key: %w", err)
	}
	if _, err := io.ReadFull(kdf, blockKey); err != nil {
		return nil, nil, fmt.Errorf("derive block key: %w", err)
	}
	return hashKey, blockKey, nil
}

func cookieOptions(secure bool, maxAge time.Duration) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieTokens keeps the token pair in an encrypted session cookie.
type CookieTokens struct {
	store *sessions.CookieStore
	name  string
}

func NewCookieTokens(name, secret string, secure bool, maxAge time.Duration) (*CookieTokens, error) {
	hashKey, blockKey, err := deriveKeys(secret)
	if err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = cookieOptions(secure, maxAge)
	store.MaxAge(store.Options.MaxAge)
	return &CookieTokens{store: store, name: name}, nil
}

func (c *CookieTokens) Bind(w http.ResponseWriter, r *http.Request) tokens.Store {
	return &cookieStore{tokens: c, w: w, r: r}
}

type cookieStore struct {
	tokens *CookieTokens
	w      http.ResponseWriter
	r      *http.Request
}

// session returns the request's session. A cookie that no longer decodes
// yields a fresh session.
func (s *cookieStore) session() *sessions.Session {
	sess, _ := s.tokens.store.Get(s.r, s.tokens.name)
	return sess
}

func (s *cookieStore) Load(ctx context.Context) (tokens.Pair, error) {
	sess := s.session()
	access, _ := sess.Values[tokens.AccessKey].(string)
	refresh, _ := sess.Values[tokens.RefreshKey].(string)
	return tokens.Pair{Access: access, Refresh: refresh}, nil
}

func (s *cookieStore) Save(ctx context.Context, p tokens.Pair) error {
	if p.IsZero() {
		return s.Clear(ctx)
	}
	sess := s.session()
	sess.Values[tokens.AccessKey] = p.Access
	sess.Values[tokens.RefreshKey] = p.Refresh
	// A Clear earlier in the request leaves MaxAge -1 on the cached session.
	opts := *s.tokens.store.Options
	sess.Options = &opts
	if err := sess.Save(s.r, s.w); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

func (s *cookieStore) Clear(ctx context.Context) error {
	sess := s.session()
	delete(sess.Values, tokens.AccessKey)
	delete(sess.Values, tokens.RefreshKey)
	opts := *s.tokens.store.Options
	opts.MaxAge = -1
	sess.Options = &opts
	if err := sess.Save(s.r, s.w); err != nil {
		return fmt.Errorf("clear session cookie: %w", err)
	}
	return nil
}

// RedisTokens keeps token pairs in Redis. The browser holds only a signed
// session id, issued on the first sign-in.
type RedisTokens struct {
	client *redis.Client
	codec  *securecookie.SecureCookie
	name   string
	opts   *sessions.Options
	ttl    time.Duration
}

func NewRedisTokens(client *redis.Client, name, secret string, secure bool, maxAge time.Duration) (*RedisTokens, error) {
	hashKey, blockKey, err := deriveKeys(secret)
	if err != nil {
		return nil, err
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(maxAge / time.Second))
	return &RedisTokens{
		client: client,
		codec:  codec,
		name:   name,
		opts:   cookieOptions(secure, maxAge),
		ttl:    maxAge,
	}, nil
}

func (t *RedisTokens) Bind(w http.ResponseWriter, r *http.Request) tokens.Store {
	s := &redisSession{tokens: t, w: w}
	if cookie, err := r.Cookie(t.name); err == nil {
		var id string
		if err := t.codec.Decode(t.name, cookie.Value, &id); err == nil {
			if _, err := uuid.Parse(id); err == nil {
				s.id = id
			}
		}
	}
	return s
}

type redisSession struct {
	tokens *RedisTokens
	w      http.ResponseWriter
	id     string
}

func (s *redisSession) store() *tokens.RedisStore {
	return tokens.NewRedisStore(s.tokens.client, "", s.id, s.tokens.ttl)
}

func (s *redisSession) Load(ctx context.Context) (tokens.Pair, error) {
	if s.id == "" {
		return tokens.Pair{}, nil
	}
	return s.store().Load(ctx)
}

func (s *redisSession) Save(ctx context.Context, p tokens.Pair) error {
	if p.IsZero() {
		return s.Clear(ctx)
	}
	if s.id == "" {
		s.id = uuid.NewString()
		encoded, err := s.tokens.codec.Encode(s.tokens.name, s.id)
		if err != nil {
			return fmt.Errorf("encode session id: %w", err)
		}
		http.SetCookie(s.w, sessions.NewCookie(s.tokens.name, encoded, s.tokens.opts))
	}
	return s.store().Save(ctx, p)
}

func (s *redisSession) Clear(ctx context.Context) error {
	if s.id == "" {
		return nil
	}
	err := s.store().Clear(ctx)
	opts := *s.tokens.opts
	opts.MaxAge = -1
	http.SetCookie(s.w, sessions.NewCookie(s.tokens.name, "", &opts))
	s.id = ""
	return err
}
