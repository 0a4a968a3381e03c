package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// LeadResponse — лид из API.
type LeadResponse struct {
	ID         string `json:"id"`
	Phone      string `json:"phone"`
	Status     string `json:"status"`
	UpdatedAt  string `json:"updated_at"`
	StalledSec int64  `json:"stalled_sec"`
}

// LeadEventResponse — событие смены статуса из API.
type LeadEventResponse struct {
	ID        string `json:"id"`
	LeadID    string `json:"lead_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// RuleResponse — правило follow-up из API.
type RuleResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Delay     int    `json:"delay"`
	Text      string `json:"text"`
	IsEnabled bool   `json:"is_enabled"`
}

// FollowupResponse — отправленный follow-up из API.
type FollowupResponse struct {
	ID        string `json:"id"`
	LeadID    string `json:"lead_id"`
	RuleID    string `json:"rule_id"`
	CreatedAt string `json:"created_at"`
}

// LockResponse — execution lock из API.
type LockResponse struct {
	Name     string  `json:"name"`
	LockedAt *string `json:"locked_at"`
	Held     bool    `json:"held"`
}

// --- Request types ---

// CreateLeadRequest — создание лида.
type CreateLeadRequest struct {
	Phone  string `json:"phone"`
	Status string `json:"status,omitempty"`
}

// CreateRuleRequest — создание правила.
type CreateRuleRequest struct {
	Status    string `json:"status"`
	Delay     int    `json:"delay"`
	Text      string `json:"text"`
	IsEnabled *bool  `json:"is_enabled,omitempty"`
}

// ListOpts — пагинация и сортировка списков.
type ListOpts struct {
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir string
}

func (o ListOpts) values() url.Values {
	params := url.Values{}
	if o.Limit > 0 {
		params.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		params.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.OrderBy != "" {
		params.Set("order_by", o.OrderBy)
	}
	if o.OrderDir != "" {
		params.Set("order_dir", o.OrderDir)
	}
	return params
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Leadflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Leads ---

// ListLeads возвращает лидов.
func (c *Client) ListLeads(opts ListOpts) ([]LeadResponse, error) {
	var leads []LeadResponse
	err := c.list("/api/v1/leads", opts.values(), &leads)
	return leads, err
}

// CreateLead создаёт лида.
func (c *Client) CreateLead(req CreateLeadRequest) (*LeadResponse, error) {
	var lead LeadResponse
	err := c.post("/api/v1/leads", req, &lead)
	return &lead, err
}

// GetLead возвращает лида по ID.
func (c *Client) GetLead(id string) (*LeadResponse, error) {
	var lead LeadResponse
	err := c.get("/api/v1/leads/"+url.PathEscape(id), &lead)
	return &lead, err
}

// SetLeadStatus меняет статус лида.
func (c *Client) SetLeadStatus(id, status string) (*LeadEventResponse, error) {
	var event LeadEventResponse
	err := c.post("/api/v1/leads/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &event)
	return &event, err
}

// ListLeadEvents возвращает историю смены статусов.
func (c *Client) ListLeadEvents(opts ListOpts) ([]LeadEventResponse, error) {
	var events []LeadEventResponse
	err := c.list("/api/v1/lead-events", opts.values(), &events)
	return events, err
}

// --- Rules ---

// ListRules возвращает правила follow-up.
func (c *Client) ListRules(opts ListOpts) ([]RuleResponse, error) {
	var rules []RuleResponse
	err := c.list("/api/v1/followup-rules", opts.values(), &rules)
	return rules, err
}

// CreateRule создаёт правило.
func (c *Client) CreateRule(req CreateRuleRequest) (*RuleResponse, error) {
	var rule RuleResponse
	err := c.post("/api/v1/followup-rules", req, &rule)
	return &rule, err
}

// SetRuleEnabled включает или выключает правило.
func (c *Client) SetRuleEnabled(id string, enabled bool) (*RuleResponse, error) {
	var rule RuleResponse
	err := c.put("/api/v1/followup-rules/"+url.PathEscape(id)+"/enabled", map[string]bool{"enabled": enabled}, &rule)
	return &rule, err
}

// --- Followups / locks ---

// ListFollowups возвращает отправленные follow-up.
func (c *Client) ListFollowups(opts ListOpts) ([]FollowupResponse, error) {
	var followups []FollowupResponse
	err := c.list("/api/v1/followups", opts.values(), &followups)
	return followups, err
}

// ListLocks возвращает execution locks.
func (c *Client) ListLocks() ([]LockResponse, error) {
	var locks []LockResponse
	err := c.list("/api/v1/locks", nil, &locks)
	return locks, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
