// internal/captcha/anticaptcha.go
package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint     = "https://api.anti-captcha.com"
	DefaultPollInterval = 3 * time.Second
	DefaultTimeout      = 3 * time.Minute
)

// Config configures the Anti-Captcha client.
type Config struct {
	APIKey       string
	Endpoint     string
	PollInterval time.Duration
	Timeout      time.Duration
	// RateLimit caps requests per second against the service. Zero disables limiting.
	RateLimit float64
}

// AntiCaptchaClient implements Solver against the Anti-Captcha JSON API:
// balance check, task submission, then polling until the task is ready.
type AntiCaptchaClient struct {
	apiKey       string
	endpoint     string
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
}

var _ Solver = (*AntiCaptchaClient)(nil)

// -- Anti-Captcha API Request/Response Structures --

type apiResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

type balanceResponse struct {
	apiResponse
	Balance float64 `json:"balance"`
}

type imageTask struct {
	Type string `json:"type"`
	Body string `json:"body"`
	Case bool   `json:"case"`
}

type recaptchaTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
	UserAgent  string `json:"userAgent,omitempty"`
}

type createTaskRequest struct {
	ClientKey string      `json:"clientKey"`
	Task      interface{} `json:"task"`
}

type createTaskResponse struct {
	apiResponse
	TaskID int64 `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type taskResultResponse struct {
	apiResponse
	Status   string `json:"status"`
	Solution struct {
		Text               string `json:"text"`
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
	} `json:"solution"`
}

// APIError is an error reported by the service in a 200 response.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anti-captcha error %s: %s", e.Code, e.Description)
}

var errTaskProcessing = errors.New("task still processing")

// NewAntiCaptchaClient initializes the client.
func NewAntiCaptchaClient(cfg Config, logger *zap.Logger) (*AntiCaptchaClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anti-captcha API key is required")
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &AntiCaptchaClient{
		apiKey:       cfg.APIKey,
		endpoint:     endpoint,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      limiter,
		logger:       logger.Named("captcha.anticaptcha"),
	}, nil
}

// SolveImageCaptcha submits the image as an ImageToTextTask (case-sensitive) and returns the text.
func (c *AntiCaptchaClient) SolveImageCaptcha(ctx context.Context, image []byte) Result {
	if len(image) == 0 {
		return Result{Err: errors.New("captcha: empty image")}
	}
	task := imageTask{
		Type: "ImageToTextTask",
		Body: base64.StdEncoding.EncodeToString(image),
		Case: true,
	}
	return c.solve(ctx, task, func(r *taskResultResponse) string { return r.Solution.Text })
}

// SolveChallengeCaptcha submits a proxyless reCAPTCHA v2 task and returns the response token.
func (c *AntiCaptchaClient) SolveChallengeCaptcha(ctx context.Context, siteURL, siteKey, userAgent string) Result {
	if siteURL == "" || siteKey == "" {
		return Result{Err: errors.New("captcha: site URL and site key are required")}
	}
	task := recaptchaTask{
		Type:       "RecaptchaV2TaskProxyless",
		WebsiteURL: siteURL,
		WebsiteKey: siteKey,
		UserAgent:  userAgent,
	}
	return c.solve(ctx, task, func(r *taskResultResponse) string { return r.Solution.GRecaptchaResponse })
}

func (c *AntiCaptchaClient) solve(ctx context.Context, task interface{}, extract func(*taskResultResponse) string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	balance, err := c.Balance(ctx)
	if err != nil {
		return Result{Err: err}
	}
	if balance <= 0 {
		return Result{Err: ErrInsufficientBalance}
	}
	c.logger.Debug("balance", zap.Float64("balance", balance))

	taskID, err := c.createTask(ctx, task)
	if err != nil {
		return Result{Err: err}
	}
	c.logger.Debug("Task created.", zap.Int64("task_id", taskID))

	res, err := c.waitForResult(ctx, taskID)
	if err != nil {
		return Result{Err: err}
	}
	solution := extract(res)
	if solution == "" {
		return Result{Err: fmt.Errorf("captcha: task %d returned an empty solution", taskID)}
	}
	c.logger.Info("CAPTCHA solved.", zap.Int64("task_id", taskID))
	return Result{Value: solution}
}

// Balance returns the remaining account balance.
func (c *AntiCaptchaClient) Balance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	err := c.retry(ctx, func() error {
		return c.call(ctx, "/getBalance", map[string]string{"clientKey": c.apiKey}, &resp)
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "ERROR_ZERO_BALANCE" {
			return 0, ErrInsufficientBalance
		}
		return 0, err
	}
	return resp.Balance, nil
}

func (c *AntiCaptchaClient) createTask(ctx context.Context, task interface{}) (int64, error) {
	var resp createTaskResponse
	err := c.retry(ctx, func() error {
		return c.call(ctx, "/createTask", createTaskRequest{ClientKey: c.apiKey, Task: task}, &resp)
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "ERROR_ZERO_BALANCE" {
			return 0, ErrInsufficientBalance
		}
		return 0, err
	}
	return resp.TaskID, nil
}

// retry runs a single request with a few quick retries on transient failures.
func (c *AntiCaptchaClient) retry(ctx context.Context, op backoff.Operation) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx))
}

// waitForResult polls getTaskResult with exponential backoff until the task is ready.
func (c *AntiCaptchaClient) waitForResult(ctx context.Context, taskID int64) (*taskResultResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInterval
	b.MaxInterval = 4 * c.pollInterval
	b.MaxElapsedTime = c.timeout

	var result taskResultResponse
	operation := func() error {
		var resp taskResultResponse
		if err := c.call(ctx, "/getTaskResult", taskResultRequest{ClientKey: c.apiKey, TaskID: taskID}, &resp); err != nil {
			return err
		}
		switch resp.Status {
		case "ready":
			result = resp
			return nil
		case "processing", "":
			return errTaskProcessing
		default:
			return backoff.Permanent(fmt.Errorf("captcha: unexpected task status %q", resp.Status))
		}
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("Polling task result.", zap.Int64("task_id", taskID), zap.Duration("next", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("captcha: task %d not solved: %w", taskID, err)
	}
	return &result, nil
}

// call POSTs payload to path and decodes the response into out. Transport
// failures and 5xx/429 statuses are transient; API-level errors are permanent.
func (c *AntiCaptchaClient) call(ctx context.Context, path string, payload interface{}, out interface{ apiErr() *APIError }) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal request payload: %w", err))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		c.logger.Warn("Network error during CAPTCHA request, retrying...", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return c.handleHTTPError(resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
	}
	if apiErr := out.apiErr(); apiErr != nil {
		c.logger.Error("Anti-Captcha returned an error.", zap.String("path", path), zap.String("code", apiErr.Code))
		return backoff.Permanent(apiErr)
	}
	return nil
}

func (r *apiResponse) apiErr() *APIError {
	if r.ErrorID == 0 {
		return nil
	}
	return &APIError{Code: r.ErrorCode, Description: r.ErrorDescription}
}

func (c *AntiCaptchaClient) handleHTTPError(statusCode int, body []byte) error {
	c.logger.Error("Anti-Captcha returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("anti-captcha HTTP error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
		return err
	default:
		return backoff.Permanent(err)
	}
}
