/*-------------------------------------------------------------------------
 *
 * client.go
 *    HTTP client for the fernlabs API
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/cli/pkg/client/client.go
 *
 *-------------------------------------------------------------------------
 */

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type PlanResult struct {
	Plan         string `json:"plan"`
	MermaidChart string `json:"mermaid_chart"`
}

type RunResult struct {
	Status           string      `json:"status"`
	Completed        bool        `json:"completed"`
	Output           *PlanResult `json:"output,omitempty"`
	MermaidChart     string      `json:"mermaid_chart,omitempty"`
	WaitingForInput  bool        `json:"waiting_for_input,omitempty"`
	FollowupQuestion string      `json:"followup_question,omitempty"`
	Message          string      `json:"message,omitempty"`
	WorkflowPaused   bool        `json:"workflow_paused,omitempty"`
}

type Diagram struct {
	Source       string `json:"source"`
	MermaidChart string `json:"mermaid_chart"`
}

type PlanSummaryStep struct {
	StepID int    `json:"step_id"`
	Text   string `json:"text"`
}

type PlanSummary struct {
	Exists     bool              `json:"exists"`
	TotalSteps int               `json:"total_steps"`
	Steps      []PlanSummaryStep `json:"steps,omitempty"`
	Message    string            `json:"message,omitempty"`
}

type AgentCallRecord struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Success   bool   `json:"success"`
	CreatedAt string `json:"created_at"`
}

type AgentCallSummary struct {
	TotalCalls      int               `json:"total_calls"`
	SuccessfulCalls int               `json:"successful_calls"`
	FailedCalls     int               `json:"failed_calls"`
	Calls           []AgentCallRecord `json:"calls"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *Client) RunWorkflow(projectID, userID string, chatHistory []ChatMessage) (*RunResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"user_id":      userID,
		"chat_history": chatHistory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.makeRequest("POST", fmt.Sprintf("/api/v1/projects/%s/workflow/run", projectID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) ResumeWorkflow(projectID, userID, userResponse string) (*RunResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"user_id":       userID,
		"user_response": userResponse,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.makeRequest("POST", fmt.Sprintf("/api/v1/projects/%s/workflow/resume", projectID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) GetDiagram(projectID, userID string) (*Diagram, error) {
	path := fmt.Sprintf("/api/v1/projects/%s/diagram", projectID)
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}

	resp, err := c.makeRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var diagram Diagram
	if err := json.NewDecoder(resp.Body).Decode(&diagram); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &diagram, nil
}

func (c *Client) GetPlanSummary(projectID, userID string) (*PlanSummary, error) {
	path := fmt.Sprintf("/api/v1/projects/%s/plan/summary?user_id=%s", projectID, url.QueryEscape(userID))

	resp, err := c.makeRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var summary PlanSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &summary, nil
}

func (c *Client) GetAgentCallSummary(projectID string) (*AgentCallSummary, error) {
	resp, err := c.makeRequest("GET", fmt.Sprintf("/api/v1/projects/%s/agent-calls/summary", projectID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var summary AgentCallSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &summary, nil
}

func (c *Client) makeRequest(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}
