package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// JSON-RPC structures
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCP structures
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCP Server
type MCPServer struct {
	apiURL      string
	apiUsername string
	apiPassword string
	client      *http.Client
}

func NewMCPServer() *MCPServer {
	apiURL := os.Getenv("REMINDBOT_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return &MCPServer{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiUsername: os.Getenv("API_USERNAME"),
		apiPassword: os.Getenv("API_PASSWORD"),
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Run answers one JSON-RPC request per input line until EOF.
func (s *MCPServer) Run(in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			fmt.Fprintf(os.Stderr, "Error reading: %v\n", err)
			return
		}
		s.handleLine(strings.TrimSpace(line), out)
		if err == io.EOF {
			return
		}
	}
}

func (s *MCPServer) handleLine(line string, out io.Writer) {
	if line == "" {
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", err)
		return
	}

	// notifications carry no id and get no response
	if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
		return
	}

	response := s.handleRequest(req)
	responseBytes, _ := json.Marshal(response)
	fmt.Fprintln(out, string(responseBytes))
}

func (s *MCPServer) handleRequest(req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: nil}
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	default:
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "Method not found"},
		}
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
	result.ServerInfo.Name = "remindbot-mcp"
	result.ServerInfo.Version = "1.0.0"

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

var userIDSchema = InputSchema{
	Type: "object",
	Properties: map[string]Property{
		"user_id": {Type: "string", Description: "Telegram ID пользователя (число)"},
	},
	Required: []string{"user_id"},
}

func (s *MCPServer) handleToolsList(req JSONRPCRequest) JSONRPCResponse {
	tools := []Tool{
		{
			Name:        "remindbot_list_reminders",
			Description: "Получить напоминания пользователя: текст, время в его часовом поясе, повтор (daily, weekly) и сколько осталось.",
			InputSchema: userIDSchema,
		},
		{
			Name:        "remindbot_list_tasks",
			Description: "Получить незавершённые задачи пользователя с временем и повтором.",
			InputSchema: userIDSchema,
		},
	}

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: tools}}
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	var result string
	var isError bool

	userID := userIDArg(params.Arguments)
	switch {
	case params.Name != "remindbot_list_reminders" && params.Name != "remindbot_list_tasks":
		result = "Unknown tool: " + params.Name
		isError = true
	case userID == "":
		result = "user_id is required"
		isError = true
	case params.Name == "remindbot_list_reminders":
		result, isError = s.apiGet("/api/reminders", userID)
	default:
		result, isError = s.apiGet("/api/tasks", userID)
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

// userIDArg accepts user_id as a string or a JSON number.
func userIDArg(args map[string]interface{}) string {
	switch v := args["user_id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

func (s *MCPServer) apiGet(path, userID string) (string, bool) {
	req, err := http.NewRequest(http.MethodGet, s.apiURL+path+"?"+url.Values{"user_id": {userID}}.Encode(), nil)
	if err != nil {
		return fmt.Sprintf("Error creating request: %v", err), true
	}
	req.SetBasicAuth(s.apiUsername, s.apiPassword)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}

	// Parse and format the response
	var apiResp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}

	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return string(respBody), resp.StatusCode >= 400
	}

	if !apiResp.Success {
		return fmt.Sprintf("API Error: %s", apiResp.Error), true
	}

	// Pretty print the data
	var prettyData bytes.Buffer
	if err := json.Indent(&prettyData, apiResp.Data, "", "  "); err != nil {
		return string(apiResp.Data), false
	}

	return prettyData.String(), false
}

func main() {
	server := NewMCPServer()
	server.Run(os.Stdin, os.Stdout)
}
