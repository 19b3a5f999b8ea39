package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"feedback-portal/internal/types/analytics"
	myErr "feedback-portal/internal/types/errors"
	"feedback-portal/internal/types/feedback"
	"feedback-portal/internal/types/user"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	pathRegister = "/register"
	pathToken    = "/token"
	pathMe       = "/users/me"
	pathAnalytic = "/analytics"
	pathFeedback = "/feedback"

	headerAdminKey = "X-Admin-Key"

	// сколько байт тела ошибки читаем для лога
	errorBodyLimit = 1 << 10
)

var backendRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "portal_backend_requests_total",
		Help: "Total number of requests to the feedback API",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(backendRequestsTotal)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// statusError ответ бэкенда с не-2xx статусом
type statusError struct {
	Op     string
	Status int
	Detail string
}

func (e *statusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Detail)
}

func (e *statusError) Unwrap() error {
	return myErr.ErrBackendStatus
}

// StatusCode достает HTTP статус ответа бэкенда из ошибки, 0 если его нет
func StatusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func (c *Client) Register(ctx context.Context, form RegisterForm) error {
	headers := map[string]string{}
	if form.AdminKey != "" {
		headers[headerAdminKey] = form.AdminKey
	}

	err := c.do(ctx, "register", http.MethodPost, pathRegister, "", headers, form.Credentials, nil)
	if err == nil {
		return nil
	}

	switch StatusCode(err) {
	case http.StatusBadRequest, http.StatusConflict:
		return fmt.Errorf("%w: %w", myErr.ErrUsernameExists, err)
	}

	return fmt.Errorf("%w: %w", myErr.ErrRegistrationFailed, err)
}

func (c *Client) Login(ctx context.Context, creds user.Credentials) (Token, error) {
	var token Token
	err := c.do(ctx, "login", http.MethodPost, pathToken, "", nil, creds, &token)
	if err != nil {
		switch StatusCode(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			return Token{}, fmt.Errorf("%w: %w", myErr.ErrInvalidCredentials, err)
		}
		return Token{}, err
	}

	if token.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: empty access token", myErr.ErrBackendStatus)
	}

	return token, nil
}

func (c *Client) WhoAmI(ctx context.Context, token string) (user.Identity, error) {
	var raw struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := c.do(ctx, "whoami", http.MethodGet, pathMe, token, nil, nil, &raw); err != nil {
		return user.Identity{}, authErr(err)
	}

	role, err := user.ParseRole(raw.Role)
	if err != nil {
		return user.Identity{}, err
	}
	if raw.Username == "" {
		return user.Identity{}, fmt.Errorf("%w: empty username", myErr.ErrBackendStatus)
	}

	return user.Identity{Username: raw.Username, Role: role}, nil
}

func (c *Client) Analytics(ctx context.Context, token string) (analytics.Analytics, error) {
	var a analytics.Analytics
	if err := c.do(ctx, "analytics", http.MethodGet, pathAnalytic, token, nil, nil, &a); err != nil {
		return analytics.Analytics{}, authErr(err)
	}
	return a, nil
}

func (c *Client) Feedback(ctx context.Context, token string) (feedback.Collection, error) {
	var fc feedback.Collection
	if err := c.do(ctx, "feedback", http.MethodGet, pathFeedback, token, nil, nil, &fc); err != nil {
		return feedback.Collection{}, authErr(err)
	}
	return fc, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, token string, s feedback.Submission) error {
	if err := c.do(ctx, "submit_feedback", http.MethodPost, pathFeedback, token, nil, s, nil); err != nil {
		return authErr(err)
	}
	return nil
}

func (c *Client) Dashboard(ctx context.Context, token string, withAnalytics bool) (Dashboard, error) {
	var (
		a  analytics.Analytics
		fc feedback.Collection
	)

	g, gctx := errgroup.WithContext(ctx)
	if withAnalytics {
		g.Go(func() error {
			var err error
			a, err = c.Analytics(gctx, token)
			return err
		})
	}
	g.Go(func() error {
		var err error
		fc, err = c.Feedback(gctx, token)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("%w: %w", myErr.ErrFetchFailed, err)
	}

	d := Dashboard{Feedback: fc}
	if withAnalytics {
		d.Analytics = &a
	}
	return d, nil
}

// authErr переводит 401/403 в ошибки авторизации
func authErr(err error) error {
	switch StatusCode(err) {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", myErr.ErrUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", myErr.ErrForbidden, err)
	}
	return err
}

func (c *Client) do(
	ctx context.Context,
	op, method, path, token string,
	headers map[string]string,
	body, out any,
) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		backendRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		c.Logger.Errorw("Backend request failed",
			"operation", op,
			"path", path,
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	backendRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &statusError{Op: op, Status: resp.StatusCode, Detail: readDetail(resp.Body)}
		c.Logger.Warnw("Backend returned error status",
			"operation", op,
			"status", resp.StatusCode,
			"detail", se.Detail,
		)
		return se
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.Logger.Errorw("Failed to decode backend response", "operation", op, zap.Error(err))
		return fmt.Errorf("%s: %w: %w", op, myErr.ErrInvalidJSONPayload, err)
	}

	return nil
}

// readDetail достает поле detail из ошибки FastAPI, иначе начало тела
func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, errorBodyLimit))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var fastAPIErr struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &fastAPIErr); err == nil {
		if s, ok := fastAPIErr.Detail.(string); ok {
			return s
		}
	}

	return strings.TrimSpace(string(raw))
}
