package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	v1 "github.com/kubev2v/engine-scheduler/api/v1"
)

const (
	apiV1SchedulerPath = "/api/v1/scheduler"
	apiV1WorkloadsPath = "/api/v1/workloads"
	apiV1TasksPath     = "/api/v1/tasks"
)

// StatusError is returned when the engine answers with an unexpected code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// EngineSvc is an HTTP client for the engine API.
type EngineSvc struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewEngineService(baseURL string) *EngineSvc {
	return &EngineSvc{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithToken returns a client that sends token as a bearer token.
func (s *EngineSvc) WithToken(token string) *EngineSvc {
	return &EngineSvc{baseURL: s.baseURL, token: token, client: s.client}
}

func (s *EngineSvc) BaseURL() string {
	return s.baseURL
}

func (s *EngineSvc) Status() (*v1.SchedulerStatus, error) {
	var status v1.SchedulerStatus
	return &status, s.do(http.MethodGet, apiV1SchedulerPath, nil, http.StatusOK, &status)
}

func (s *EngineSvc) Pause() (*v1.SchedulerStatus, error) {
	var status v1.SchedulerStatus
	return &status, s.do(http.MethodPost, apiV1SchedulerPath+"/pause", nil, http.StatusOK, &status)
}

func (s *EngineSvc) Resume() (*v1.SchedulerStatus, error) {
	var status v1.SchedulerStatus
	return &status, s.do(http.MethodPost, apiV1SchedulerPath+"/resume", nil, http.StatusOK, &status)
}

func (s *EngineSvc) CreateWorkload(req v1.WorkloadRequest) (*v1.WorkloadResponse, error) {
	var resp v1.WorkloadResponse
	return &resp, s.do(http.MethodPost, apiV1WorkloadsPath, req, http.StatusAccepted, &resp)
}

func (s *EngineSvc) ListTasks(query url.Values) (*v1.TaskListResponse, error) {
	path := apiV1TasksPath
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp v1.TaskListResponse
	return &resp, s.do(http.MethodGet, path, nil, http.StatusOK, &resp)
}

func (s *EngineSvc) GetTask(id string) (*v1.Task, error) {
	var task v1.Task
	return &task, s.do(http.MethodGet, apiV1TasksPath+"/"+url.PathEscape(id), nil, http.StatusOK, &task)
}

func (s *EngineSvc) do(method, path string, body any, expected int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	zap.S().Debugw("engine request", "method", method, "path", path)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != expected {
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
