package devapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/naukovi-znahidky/client/internal/forms"
	"github.com/naukovi-znahidky/client/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type contextKey string

const contextUserKey contextKey = "user_id"

// tokenClaims mirrors the claims of the backend's JWTs.
type tokenClaims struct {
	TokenType string `json:"token_type"`
	UserID    int    `json:"user_id"`
	jwt.RegisteredClaims
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (a *API) issueToken(userID int, tokenType string, ttl time.Duration) (string, error) {
	now := a.mem.now()
	claims := tokenClaims{
		TokenType: tokenType,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *API) parseToken(tokenString, tokenType string) (int, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.mem.now))
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	if claims.TokenType != tokenType {
		return 0, errors.New("wrong token type")
	}
	if claims.UserID < 1 {
		return 0, errors.New("missing user id")
	}
	return claims.UserID, nil
}

func bearerToken(r *http.Request) (string, bool, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", false, nil
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true, errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", true, errors.New("invalid authorization")
	}
	return token, true, nil
}

// authenticate resolves an optional bearer token. A present but invalid
// token is rejected on every route, public ones included.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, present, err := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		if err == nil {
			var userID int
			userID, err = a.parseToken(tokenString, tokenTypeAccess)
			if err == nil {
				a.mem.mu.Lock()
				_, exists := a.mem.users[userID]
				a.mem.mu.Unlock()
				if exists {
					ctx := context.WithValue(r.Context(), contextUserKey, userID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Given token not valid for any token type",
			"code":   "token_not_valid",
		})
	})
}

// requireAuth rejects anonymous requests.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if viewerID(r.Context()) == 0 {
			writeDetail(w, http.StatusUnauthorized, "Облікові дані не були надані.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func viewerID(ctx context.Context) int {
	id, _ := ctx.Value(contextUserKey).(int)
	return id
}

// Login verifies credentials and returns a token pair.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := forms.ValidationErrors{}
	if strings.TrimSpace(req.Email) == "" {
		errs["email"] = []string{msgRequired}
	}
	if req.Password == "" {
		errs["password"] = []string{msgRequired}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	a.mem.mu.Lock()
	user := a.mem.userByEmail(strings.TrimSpace(req.Email))
	a.mem.mu.Unlock()
	if user == nil || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	pair, err := a.issuePair(user.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) issuePair(userID int) (tokenPair, error) {
	access, err := a.issueToken(userID, tokenTypeAccess, a.accessTTL)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := a.issueToken(userID, tokenTypeRefresh, a.refreshTTL)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, forms.ValidationErrors{"refresh": {msgRequired}})
		return
	}

	userID, err := a.parseToken(req.Refresh, tokenTypeRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	access, err := a.issueToken(userID, tokenTypeAccess, a.accessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, http.StatusOK, tokenPair{Access: access})
}

type registerResponse struct {
	Message string   `json:"message"`
	User    userJSON `json:"user"`
}

// Register creates an account. It does not sign in.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req types.Registration
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	errs := validationErrors(forms.Validate(req))

	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()

	if req.Email != "" && a.mem.userByEmail(req.Email) != nil {
		errs["email"] = append(errs["email"], "Користувач з таким Email вже існує.")
	}
	if req.Username != "" && a.mem.userByUsername(req.Username, 0) != nil {
		errs["username"] = append(errs["username"], "Користувач з таким іменем вже існує.")
	}
	var institution types.InstitutionRef
	if len(errs) == 0 {
		var ok bool
		if institution, ok = a.mem.resolveInstitution(req.Institution); !ok {
			errs["institution"] = []string{"Заклад не знайдено."}
		}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	level := req.EducationLevel
	if level == "" {
		level = types.EducationBachelor
	}
	a.mem.nextUser++
	user := &userRecord{
		User: types.User{
			ID:             a.mem.nextUser,
			Email:          req.Email,
			Username:       req.Username,
			Role:           req.Role,
			Institution:    institution,
			EducationLevel: level,
			CreatedAt:      a.mem.now(),
		},
		passwordHash: hashed,
		following:    map[int]bool{},
	}
	a.mem.users[user.ID] = user

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "Користувача успішно створено",
		User:    a.userJSON(user),
	})
}

// validationErrors converts a forms result into a writable error map.
func validationErrors(err error) forms.ValidationErrors {
	var verrs forms.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return forms.ValidationErrors{}
}
