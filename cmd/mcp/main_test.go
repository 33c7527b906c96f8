package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunListsAndCallsTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/api/reminders", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("user_id"))
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1,"text":"Купить хлеб"}]}`))
	}))
	defer srv.Close()

	s := &MCPServer{apiURL: srv.URL, apiUsername: "admin", apiPassword: "secret", client: srv.Client()}
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"remindbot_list_reminders","arguments":{"user_id":"100"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
	}, "\n")

	var out bytes.Buffer
	s.Run(strings.NewReader(in), &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var init struct {
		Result InitializeResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &init))
	assert.Equal(t, "remindbot-mcp", init.Result.ServerInfo.Name)

	var list struct {
		Result ToolsListResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &list))
	require.Len(t, list.Result.Tools, 2)
	assert.Equal(t, "remindbot_list_reminders", list.Result.Tools[0].Name)

	var call struct {
		Result ToolCallResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &call))
	assert.False(t, call.Result.IsError)
	require.Len(t, call.Result.Content, 1)
	assert.Contains(t, call.Result.Content[0].Text, "Купить хлеб")

	var unknown JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &unknown))
	require.NotNil(t, unknown.Error)
	assert.Equal(t, -32601, unknown.Error.Code)
}

func TestToolCallAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"user_id is required"}`))
	}))
	defer srv.Close()

	s := &MCPServer{apiURL: srv.URL, client: srv.Client()}
	text, isError := s.apiGet("/api/tasks", "")
	assert.True(t, isError)
	assert.Equal(t, "API Error: user_id is required", text)

	resp := s.handleRequest(JSONRPCRequest{ID: 1, Method: "tools/call", Params: json.RawMessage(`{"name":"nope"}`)})
	result, ok := resp.Result.(ToolCallResult)
	require.True(t, ok)
	assert.True(t, result.IsError)
}

func TestToolCallRequiresUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected API request: %s", r.URL)
	}))
	defer srv.Close()

	s := &MCPServer{apiURL: srv.URL, client: srv.Client()}
	for _, params := range []string{
		`{"name":"remindbot_list_reminders"}`,
		`{"name":"remindbot_list_tasks","arguments":{"user_id":"  "}}`,
	} {
		resp := s.handleRequest(JSONRPCRequest{ID: 1, Method: "tools/call", Params: json.RawMessage(params)})
		result, ok := resp.Result.(ToolCallResult)
		require.True(t, ok)
		assert.True(t, result.IsError)
		assert.Equal(t, "user_id is required", result.Content[0].Text)
	}

	assert.Equal(t, "100", userIDArg(map[string]interface{}{"user_id": float64(100)}))
}
