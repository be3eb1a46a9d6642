package backend

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/tokens"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// MemoryAPI is an in-process stand-in for the hosted service, used for local
// development and tests. Error codes and messages follow the real service.
type MemoryAPI struct {
	mu          sync.Mutex
	signer      *tokens.Signer
	accessTTL   time.Duration
	autoConfirm bool

	users    map[string]*memoryUser // by id
	byEmail  map[string]string      // email -> id
	refresh  map[string]refreshGrant
	revoked  map[string]bool // session ids
	profiles map[string]*models.Profile
}

type memoryUser struct {
	user models.User
	hash []byte
}

type refreshGrant struct {
	userID    string
	sessionID string
}

// NewMemoryAPI creates an empty project. When autoConfirm is false new users
// must be confirmed (see Confirm) before they can sign in.
func NewMemoryAPI(signer *tokens.Signer, accessTTL time.Duration, autoConfirm bool) *MemoryAPI {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &MemoryAPI{
		signer:      signer,
		accessTTL:   accessTTL,
		autoConfirm: autoConfirm,
		users:       map[string]*memoryUser{},
		byEmail:     map[string]string{},
		refresh:     map[string]refreshGrant{},
		revoked:     map[string]bool{},
		profiles:    map[string]*models.Profile{},
	}
}

func (m *MemoryAPI) PasswordGrant(ctx context.Context, email, password string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.users[m.byEmail[normalizeEmail(email)]]
	if !ok || bcrypt.CompareHashAndPassword(mu.hash, []byte(password)) != nil {
		return nil, &APIError{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	if mu.user.EmailConfirmedAt == nil {
		return nil, &APIError{Status: http.StatusBadRequest, Code: "email_not_confirmed", Message: "Email not confirmed"}
	}
	return m.issue(&mu.user, uuid.NewString())
}

func (m *MemoryAPI) RefreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.refresh[refreshToken]
	if !ok || m.revoked[g.sessionID] {
		return nil, &APIError{Status: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Invalid Refresh Token: Refresh Token Not Found"}
	}
	delete(m.refresh, refreshToken)
	mu, ok := m.users[g.userID]
	if !ok {
		return nil, &APIError{Status: http.StatusNotFound, Code: "user_not_found", Message: "User not found"}
	}
	return m.issue(&mu.user, g.sessionID)
}

// SignUp creates the user and its profiles row. A repeated email is rejected
// when sign-ups auto-confirm; otherwise the service answers with an
// obfuscated user that has no identities.
func (m *MemoryAPI) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Code: "validation_failed", Message: "Anonymous sign-ins are disabled"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &APIError{Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters."}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[email]; exists {
		if m.autoConfirm {
			return nil, &APIError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
		}
		return &SignUpResult{User: &models.User{
			ID:           uuid.NewString(),
			Email:        email,
			UserMetadata: req.Data,
			Identities:   []models.Identity{},
			CreatedAt:    time.Now().UTC(),
		}}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         tokens.Audience,
		UserMetadata: copyMetadata(req.Data),
		Identities:   []models.Identity{{ID: uuid.NewString(), Provider: "email"}},
		CreatedAt:    now,
	}
	if m.autoConfirm {
		u.EmailConfirmedAt = &now
	}
	m.users[u.ID] = &memoryUser{user: u, hash: hash}
	m.byEmail[email] = u.ID
	m.profiles[u.ID] = profileFromMetadata(u.ID, u.UserMetadata, now)

	res := &SignUpResult{User: &u}
	if m.autoConfirm {
		s, err := m.issue(&u, uuid.NewString())
		if err != nil {
			return nil, err
		}
		res.Session = s
		res.User = s.User
	}
	return res, nil
}

func (m *MemoryAPI) Logout(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sid, err := m.sessionFor(accessToken)
	if err != nil {
		return err
	}
	m.revoked[sid] = true
	for tok, g := range m.refresh {
		if g.sessionID == sid {
			delete(m.refresh, tok)
		}
	}
	return nil
}

func (m *MemoryAPI) SelectProfile(ctx context.Context, accessToken, column, value string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if accessToken != "" {
		if _, err := m.sessionFor(accessToken); err != nil {
			return nil, err
		}
	}
	var p *models.Profile
	switch column {
	case "id":
		p = m.profiles[value]
	case "email":
		p = m.profiles[m.byEmail[normalizeEmail(value)]]
	default:
		return nil, &APIError{Status: http.StatusBadRequest, Code: "42703", Message: "column profiles." + column + " does not exist"}
	}
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// Confirm marks the user's email as confirmed.
func (m *MemoryAPI) Confirm(email string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.users[m.byEmail[normalizeEmail(email)]]
	if !ok {
		return false
	}
	now := time.Now().UTC()
	mu.user.EmailConfirmedAt = &now
	return true
}

// DeleteProfile removes the profiles row of a user, leaving the account.
func (m *MemoryAPI) DeleteProfile(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, userID)
}

func (m *MemoryAPI) sessionFor(accessToken string) (string, error) {
	claims, err := m.signer.Parse(accessToken)
	if err != nil {
		return "", &APIError{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT: unable to parse or verify signature"}
	}
	sid, _ := claims["session_id"].(string)
	if sid == "" || m.revoked[sid] {
		return "", &APIError{Status: http.StatusForbidden, Code: "session_not_found", Message: "Session from session_id claim in JWT does not exist"}
	}
	return sid, nil
}

// issue must be called with m.mu held.
func (m *MemoryAPI) issue(u *models.User, sessionID string) (*Session, error) {
	access, exp, err := m.signer.GenerateAccessToken(u, sessionID, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := tokens.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	m.refresh[refresh] = refreshGrant{userID: u.ID, sessionID: sessionID}
	cp := *u
	cp.UserMetadata = copyMetadata(u.UserMetadata)
	return &Session{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    int64(m.accessTTL.Seconds()),
		ExpiresAt:    exp.Unix(),
		RefreshToken: refresh,
		User:         &cp,
	}, nil
}

func profileFromMetadata(id string, md map[string]interface{}, now time.Time) *models.Profile {
	get := func(k string) string {
		s, _ := md[k].(string)
		return s
	}
	first, last, _ := strings.Cut(strings.TrimSpace(get("name")), " ")
	return &models.Profile{
		ID:             id,
		FirstName:      first,
		LastName:       strings.TrimSpace(last),
		Role:           get("role"),
		MatricNumber:   get("matricNumber"),
		Level:          get("level"),
		StaffID:        get("staffId"),
		Department:     get("department"),
		Qualification:  get("qualification"),
		ApprovalStatus: "pending",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	if md == nil {
		return nil
	}
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
