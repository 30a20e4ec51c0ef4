package chorus

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Job statuses reported by the analysis API.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// AnalysisJob is an asynchronous analysis run over recorded audio or text.
type AnalysisJob struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// Done reports whether the job reached a terminal status.
func (j *AnalysisJob) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// JobRequest describes an analysis job submission.
type JobRequest struct {
	// RequestID is a client-chosen idempotency key. Filled with a random
	// UUID when empty.
	RequestID string   `json:"request_id,omitempty"`
	Models    []string `json:"models,omitempty"`
	URLs      []string `json:"urls,omitempty"`
	Text      []string `json:"text,omitempty"`
}

// JobPage is one page of analysis jobs.
type JobPage struct {
	PageNumber int           `json:"page_number"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Jobs       []AnalysisJob `json:"jobs"`
}

// StartJob submits an analysis job.
func (c *Client) StartJob(ctx context.Context, req JobRequest) (*AnalysisJob, error) {
	if len(req.URLs) == 0 && len(req.Text) == 0 {
		return nil, NewConfigError("job needs at least one URL or text input")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	result, err := postJSON[AnalysisJob](ctx, c.api, "/v1/jobs", req)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob fetches the current status of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*AnalysisJob, error) {
	if id == "" {
		return nil, NewConfigError("job id cannot be empty")
	}
	result, err := getJSON[AnalysisJob](ctx, c.api, "/v1/jobs/"+id)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs fetches one page of jobs.
func (c *Client) ListJobs(ctx context.Context, page, size int) (*JobPage, error) {
	result, err := getJSON[JobPage](ctx, c.api, "/v1/jobs",
		WithQuery("page_number", strconv.Itoa(page)),
		WithQuery("page_size", strconv.Itoa(size)))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJobPredictions fetches the results of a completed job. The prediction
// payload shape depends on the requested models, so it stays raw JSON.
func (c *Client) GetJobPredictions(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, NewConfigError("job id cannot be empty")
	}
	return getJSON[json.RawMessage](ctx, c.api, "/v1/jobs/"+id+"/predictions")
}

// WaitForJob polls until the job reaches a terminal status or ctx expires.
// Poll intervals follow the client's retry policy backoff curve, so waits
// for long-running jobs stretch out instead of hammering the API.
func (c *Client) WaitForJob(ctx context.Context, id string) (*AnalysisJob, error) {
	policy := c.config.Retry
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	for attempt := 1; ; attempt++ {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}

		delay := policy.Delay(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, NewCancelledError(ctx.Err())
		case <-timer.C:
		}
	}
}
