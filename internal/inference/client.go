// Package inference calls the program-matching service that scores screening
// answers against eligibility criteria.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/psds-microservice/casework-service/internal/errs"
	"go.uber.org/zap"
)

// Comparer is the suggestion backend used by the application workflow.
type Comparer interface {
	Compare(ctx context.Context, prompts []string) (*CompareResult, error)
}

type CompareRequest struct {
	Prompts []string `json:"prompts"`
}

type CompareResult struct {
	Reasons          []string `json:"reasons"`
	SuggestedProgram string   `json:"suggestedProgram"`
}

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient builds a client for baseURL. There is no retry: a failed
// comparison is reported to the caller, who may ask again.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger: logger,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) Compare(ctx context.Context, prompts []string) (*CompareResult, error) {
	var result CompareResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(CompareRequest{Prompts: prompts}).
		SetResult(&result).
		Post("/compare")
	if err != nil {
		c.logger.Error("inference: compare call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: compare: %v", errs.ErrExternalService, err)
	}
	if resp.IsError() {
		c.logger.Error("inference: compare returned error", zap.Int("status_code", resp.StatusCode()))
		return nil, fmt.Errorf("%w: compare: status %d", errs.ErrExternalService, resp.StatusCode())
	}
	if result.SuggestedProgram == "" && len(result.Reasons) == 0 {
		return nil, fmt.Errorf("%w: compare: empty result", errs.ErrExternalService)
	}
	return &result, nil
}
