package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// ChatCompletionsPath is served by MockOpenAI.
const ChatCompletionsPath = "/v1/chat/completions"

// MockOpenAI is a fake OpenAI-compatible chat completion server.
type MockOpenAI struct {
	server *httptest.Server
	mu     sync.Mutex

	// content is returned as the assistant message of every completion
	content    string
	statusCode int

	Requests []openai.ChatCompletionRequest
}

// NewMockOpenAI creates a server answering every completion with content.
func NewMockOpenAI(content string) *MockOpenAI {
	mock := &MockOpenAI{content: content, statusCode: http.StatusOK}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ChatCompletionsPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mock.mu.Lock()
		mock.Requests = append(mock.Requests, req)
		content, status := mock.content, mock.statusCode
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"message": "mock failure",
					"type":    "server_error",
				},
			})
			return
		}

		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:      "chatcmpl-mock",
			Object:  "chat.completion",
			Created: 1700000000,
			Model:   req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: content,
				},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))

	return mock
}

// BaseURL returns the API base URL to configure a client with.
func (m *MockOpenAI) BaseURL() string {
	return m.server.URL + "/v1"
}

// Close shuts down the mock server.
func (m *MockOpenAI) Close() {
	m.server.Close()
}

// SetContent changes the completion content.
func (m *MockOpenAI) SetContent(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = content
}

// SetStatus makes every following request fail with status.
func (m *MockOpenAI) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCode = status
}

// LastRequest returns the most recent completion request.
func (m *MockOpenAI) LastRequest() (openai.ChatCompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return openai.ChatCompletionRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

// RequestCount returns how many completions were requested.
func (m *MockOpenAI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
