package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"managemind-quiz-service/internal/domain"
)

// HTTP talks to a live quiz server over its REST API.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP returns a client for the server at baseURL.
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Backend = (*HTTP)(nil)

func (h *HTTP) CreateSession(ctx context.Context, params BasicSessionParams) (domain.Session, error) {
	q := url.Values{}
	q.Set("host_id", params.HostID)
	q.Set("topic", params.Topic)
	q.Set("duration_minutes", strconv.Itoa(params.DurationMinutes))
	if params.Unit != "" {
		q.Set("unit", params.Unit)
	}
	var session domain.Session
	if err := h.do(ctx, http.MethodPost, "/api/live/create?"+q.Encode(), nil, &session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrCreationFailed, err)
	}
	return session, nil
}

func (h *HTTP) CreateAdvancedSession(ctx context.Context, params AdvancedSessionParams) (domain.Session, error) {
	var session domain.Session
	if err := h.do(ctx, http.MethodPost, "/api/live/create-advanced", params, &session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrCreationFailed, err)
	}
	return session, nil
}

func (h *HTTP) SessionStatus(ctx context.Context, sessionID string) (domain.StatusSnapshot, error) {
	var snap domain.StatusSnapshot
	if err := h.do(ctx, http.MethodGet, "/api/live/"+url.PathEscape(sessionID)+"/status", nil, &snap); err != nil {
		return domain.StatusSnapshot{}, err
	}
	return snap, nil
}

func (h *HTTP) JoinSession(ctx context.Context, code, userID string) (string, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	path := "/api/live/join/" + url.PathEscape(code) + "?user_id=" + url.QueryEscape(userID)
	if err := h.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrJoinFailed, err)
	}
	return resp.SessionID, nil
}

func (h *HTTP) StartSession(ctx context.Context, sessionID, hostID string) error {
	path := "/api/live/" + url.PathEscape(sessionID) + "/start?host_id=" + url.QueryEscape(hostID)
	if err := h.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStartFailed, err)
	}
	return nil
}

func (h *HTTP) EndSession(ctx context.Context, sessionID, hostID string) error {
	path := "/api/live/" + url.PathEscape(sessionID) + "/end?host_id=" + url.QueryEscape(hostID)
	if err := h.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEndFailed, err)
	}
	return nil
}

func (h *HTTP) SessionQuestions(ctx context.Context, sessionID string) ([]domain.Question, error) {
	var questions []domain.Question
	if err := h.do(ctx, http.MethodGet, "/api/live/"+url.PathEscape(sessionID)+"/questions", nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (h *HTTP) SubmitSessionAnswers(ctx context.Context, sessionID string, submission domain.SessionSubmission) (domain.Result, error) {
	var result domain.Result
	if err := h.do(ctx, http.MethodPost, "/api/live/"+url.PathEscape(sessionID)+"/submit", submission, &result); err != nil {
		return domain.Result{}, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	return result, nil
}

func (h *HTTP) Leaderboard(ctx context.Context, sessionID string) (domain.LeaderboardReport, error) {
	var report domain.LeaderboardReport
	if err := h.do(ctx, http.MethodGet, "/api/live/"+url.PathEscape(sessionID)+"/leaderboard", nil, &report); err != nil {
		return domain.LeaderboardReport{}, fmt.Errorf("%w: %v", domain.ErrLeaderboardUnavailable, err)
	}
	return report, nil
}

func (h *HTTP) PracticeQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	q := url.Values{}
	if filter.Unit != "" {
		q.Set("unit", filter.Unit)
	}
	if filter.Topic != "" {
		q.Set("topic", filter.Topic)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	var questions []domain.Question
	if err := h.do(ctx, http.MethodGet, "/api/quizzes?"+q.Encode(), nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (h *HTTP) SubmitPracticeAttempt(ctx context.Context, attempt domain.PracticeAttempt) (string, error) {
	var resp struct {
		AttemptID string `json:"attemptId"`
	}
	if err := h.do(ctx, http.MethodPost, "/api/quizzes/submit", attempt, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	return resp.AttemptID, nil
}

func (h *HTTP) ExportAttemptReport(ctx context.Context, attemptID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/quizzes/export/"+url.PathEscape(attemptID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

// do issues a JSON request and decodes a JSON response into out (skipped when
// out is nil).
func (h *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError surfaces the server's detail message when one is present.
func apiError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != "" {
		return fmt.Errorf("%s (http %d)", payload.Detail, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
