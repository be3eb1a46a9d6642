package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 1 << 20

var ErrResponseTooLarge = errors.New("backend response too large")

// HTTPAPI talks to a hosted project over its REST endpoints
// (/auth/v1 for identity, /rest/v1 for table rows).
type HTTPAPI struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewHTTPAPI creates an API client for the project at baseURL.
func NewHTTPAPI(baseURL, anonKey string, timeout time.Duration) *HTTPAPI {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAPI) PasswordGrant(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var s Session
	if err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	s.normalize(time.Now())
	return &s, nil
}

func (a *HTTPAPI) RefreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var s Session
	if err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &s); err != nil {
		return nil, err
	}
	s.normalize(time.Now())
	return &s, nil
}

// SignUp registers a user. The service answers with a full session when the
// project auto-confirms, and with the bare user otherwise.
func (a *HTTPAPI) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	var raw json.RawMessage
	if err := a.do(ctx, http.MethodPost, "/auth/v1/signup", "", req, &raw); err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	if s.AccessToken != "" {
		s.normalize(time.Now())
		return &SignUpResult{User: s.User, Session: &s}, nil
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode signup user: %w", err)
	}
	return &SignUpResult{User: &u}, nil
}

func (a *HTTPAPI) Logout(ctx context.Context, accessToken string) error {
	return a.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

func (a *HTTPAPI) SelectProfile(ctx context.Context, accessToken, column, value string) (*models.Profile, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set(column, "eq."+value)
	var rows []models.Profile
	if err := a.do(ctx, http.MethodGet, "/rest/v1/profiles?"+q.Encode(), accessToken, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (a *HTTPAPI) do(ctx context.Context, method, path, bearer string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if bearer == "" {
		bearer = a.anonKey
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return err
	}
	if len(b) > maxResponseBytes {
		return fmt.Errorf("%s %s: %w", method, path, ErrResponseTooLarge)
	}
	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, b)
		logger.Debugf("backend %s %s -> %d code=%q", method, path, resp.StatusCode, apiErr.Code)
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorBody covers the error shapes of the auth server (msg, error_code,
// error_description) and of the data API (message, code).
type errorBody struct {
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	ErrorDescription string          `json:"error_description"`
	Error            string          `json:"error"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

func decodeError(status int, b []byte) *APIError {
	e := &APIError{Status: status}
	var eb errorBody
	if err := json.Unmarshal(b, &eb); err != nil {
		e.Message = strings.TrimSpace(string(b))
		return e
	}
	for _, m := range []string{eb.Msg, eb.Message, eb.ErrorDescription, eb.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	switch {
	case eb.ErrorCode != "":
		e.Code = eb.ErrorCode
	case len(eb.Code) > 0 && eb.Code[0] == '"':
		_ = json.Unmarshal(eb.Code, &e.Code)
	case eb.Error != "" && eb.Error != e.Message:
		e.Code = eb.Error
	}
	// older auth servers send the HTTP status as a numeric "code"
	if e.Code == "" && len(eb.Code) > 0 {
		if n, err := strconv.Atoi(string(eb.Code)); err == nil && n != status {
			e.Code = string(eb.Code)
		}
	}
	return e
}
