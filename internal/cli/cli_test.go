package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// newTestAPI поднимает сервер, отвечающий заданным JSON на каждый путь.
func newTestAPI(t *testing.T, responses map[string]string) (*Client, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, &rec.Body))
		}
		requests = append(requests, rec)

		body, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"lead not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL + "/"), &requests
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestClient_ListLeads(t *testing.T) {
	client, requests := newTestAPI(t, map[string]string{
		"GET /api/v1/leads": `{"data":[{"id":"l1","phone":"+15550001","status":"new","updated_at":"2026-01-01T00:00:00Z","stalled_sec":120}],"total":1}`,
	})

	leads, err := client.ListLeads(ListOpts{Limit: 10, OrderDir: "asc"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "l1", leads[0].ID)
	assert.Equal(t, int64(120), leads[0].StalledSec)

	require.Len(t, *requests, 1)
	assert.Equal(t, "limit=10&order_dir=asc", (*requests)[0].Query)
}

func TestClient_SetLeadStatus(t *testing.T) {
	client, requests := newTestAPI(t, map[string]string{
		"POST /api/v1/leads/l1/status": `{"data":{"id":"e1","lead_id":"l1","status":"contacted","created_at":"2026-01-01T00:00:00Z"}}`,
	})

	event, err := client.SetLeadStatus("l1", "contacted")
	require.NoError(t, err)
	assert.Equal(t, "contacted", event.Status)
	assert.Equal(t, map[string]any{"status": "contacted"}, (*requests)[0].Body)
}

func TestClient_SetRuleEnabled(t *testing.T) {
	client, requests := newTestAPI(t, map[string]string{
		"PUT /api/v1/followup-rules/r1/enabled": `{"data":{"id":"r1","status":"new","delay":30,"text":"hi","is_enabled":false}}`,
	})

	rule, err := client.SetRuleEnabled("r1", false)
	require.NoError(t, err)
	assert.False(t, rule.IsEnabled)
	assert.Equal(t, map[string]any{"enabled": false}, (*requests)[0].Body)
}

func TestClient_APIError(t *testing.T) {
	client, _ := newTestAPI(t, nil)

	_, err := client.GetLead("missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND: lead not found", err.Error())
}

func TestLeadListCmd_Table(t *testing.T) {
	client, _ := newTestAPI(t, map[string]string{
		"GET /api/v1/leads": `{"data":[{"id":"l1","phone":"+15550001","status":"new","updated_at":"2026-01-01T00:00:00Z","stalled_sec":90}],"total":1}`,
	})

	var stdout, stderr bytes.Buffer
	cmd := NewLeadCmd(
		func() *Client { return client },
		func() *Output { return NewOutputTo(&stdout, &stderr, false) },
	)

	require.NoError(t, runCmd(t, cmd, "list"))
	assert.Contains(t, stdout.String(), "PHONE")
	assert.Contains(t, stdout.String(), "+15550001")
	assert.Contains(t, stdout.String(), "1m30s")
}

func TestLeadCreateCmd_RequiresPhone(t *testing.T) {
	client, requests := newTestAPI(t, nil)

	cmd := NewLeadCmd(
		func() *Client { return client },
		func() *Output { return NewOutputTo(io.Discard, io.Discard, false) },
	)

	require.Error(t, runCmd(t, cmd, "create"))
	assert.Empty(t, *requests)
}

func TestRuleCreateCmd_Disabled(t *testing.T) {
	client, requests := newTestAPI(t, map[string]string{
		"POST /api/v1/followup-rules": `{"data":{"id":"r1","status":"new","delay":30,"text":"hi","is_enabled":false}}`,
	})

	var stdout, stderr bytes.Buffer
	cmd := NewRuleCmd(
		func() *Client { return client },
		func() *Output { return NewOutputTo(&stdout, &stderr, true) },
	)

	require.NoError(t, runCmd(t, cmd, "create", "--status", "new", "--delay", "30", "--text", "hi", "--disabled"))

	require.Len(t, *requests, 1)
	assert.Equal(t, map[string]any{
		"status":     "new",
		"delay":      float64(30),
		"text":       "hi",
		"is_enabled": false,
	}, (*requests)[0].Body)

	var rule RuleResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rule))
	assert.Equal(t, "r1", rule.ID)
	assert.Contains(t, stderr.String(), "Rule r1 created")
}

func TestLockListCmd(t *testing.T) {
	client, _ := newTestAPI(t, map[string]string{
		"GET /api/v1/locks": `{"data":[{"name":"leadflow.collect_followups","locked_at":null,"held":false}],"total":1}`,
	})

	var stdout bytes.Buffer
	cmd := NewLockCmd(
		func() *Client { return client },
		func() *Output { return NewOutputTo(&stdout, io.Discard, false) },
	)

	require.NoError(t, runCmd(t, cmd, "list"))
	assert.Contains(t, stdout.String(), "leadflow.collect_followups")
	assert.Contains(t, stdout.String(), "false")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "привет ...", truncate("привет мир и всё", 10))
}

func TestOutput_EmptyTable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutputTo(&stdout, &stderr, false)

	out.Print([]string{"ID"}, nil, []LeadResponse{})

	assert.Empty(t, stdout.String())
	assert.Equal(t, "No results\n", stderr.String())
}

func TestOutput_EmptyJSON(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputTo(&stdout, io.Discard, true)

	out.Print([]string{"ID"}, nil, []LeadResponse{})

	assert.Equal(t, "[]\n", stdout.String())
}
