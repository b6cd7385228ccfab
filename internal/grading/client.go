package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quiz-grading-service/internal/domain"
)

// Client calls a remote grading engine over HTTP (POST {baseURL}/grade).
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Grade(ctx context.Context, req domain.GradingRequest) (domain.GradingResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.GradingResponse{}, fmt.Errorf("encode grading request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/grade", bytes.NewReader(payload))
	if err != nil {
		return domain.GradingResponse{}, fmt.Errorf("build grading request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return domain.GradingResponse{}, fmt.Errorf("grading request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.GradingResponse{}, fmt.Errorf("grade submission %s: %w", req.SubmissionID, domain.ErrQuizNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GradingResponse{}, fmt.Errorf("grading service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out domain.GradingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.GradingResponse{}, fmt.Errorf("decode grading response: %w", err)
	}
	if out.SubmissionID == "" {
		out.SubmissionID = req.SubmissionID
	}
	return out, nil
}
