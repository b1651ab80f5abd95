package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Runner executes untrusted submission code against test code and returns
// the raw sandbox output. The sandbox itself lives outside this process.
type Runner interface {
	Execute(ctx context.Context, code, testCode string) (string, error)
}

// HTTPRunner talks to the grading sandbox over HTTP.
type HTTPRunner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRunner returns a Runner posting to the sandbox at baseURL. A
// generous timeout covers sandbox startup plus the test run.
func NewHTTPRunner(baseURL string) *HTTPRunner {
	return &HTTPRunner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type executeRequest struct {
	Code     string `json:"code"`
	TestCode string `json:"testCode"`
}

type executeResponse struct {
	GraderFeedback string `json:"graderFeedback"`
}

// Execute runs the submission in the sandbox and returns its feedback
// text. Sandbox-side test failures are not errors here; they come back as
// feedback for the result consumer to classify.
func (r *HTTPRunner) Execute(ctx context.Context, code, testCode string) (string, error) {
	body, err := json.Marshal(executeRequest{Code: code, TestCode: testCode})
	if err != nil {
		return "", errors.Wrap(err, "encoding grader request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building grader request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling grader")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("grader returned %s: %s", resp.Status, snippet)
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decoding grader response")
	}
	return out.GraderFeedback, nil
}

var _ Runner = (*HTTPRunner)(nil)
