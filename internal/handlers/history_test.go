package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmercer/gamemaster/internal/storage"
	"github.com/jmercer/gamemaster/pkg/chat"
)

func TestHistoryHandler_ServeHTTP(t *testing.T) {
	store := storage.NewMockStorage()
	if err := store.AppendHistory(context.Background(), "mira",
		chat.Message{Role: chat.RolePlayer, Content: "hello"},
		chat.Message{Role: chat.RoleCharacter, Content: "Mira nods."},
	); err != nil {
		t.Fatalf("Failed to seed history: %v", err)
	}

	handler := NewHistoryHandler(store, testLogger())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedCount  int
		expectedError  string
	}{
		{
			name:           "existing transcript",
			method:         http.MethodGet,
			path:           "/v1/history/mira",
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:           "unknown character yields empty transcript",
			method:         http.MethodGet,
			path:           "/v1/history/nobody",
			expectedStatus: http.StatusOK,
			expectedCount:  0,
		},
		{
			name:           "missing character segment",
			method:         http.MethodGet,
			path:           "/v1/history/",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Expected path /v1/history/{character}.",
		},
		{
			name:           "method not allowed",
			method:         http.MethodPost,
			path:           "/v1/history/mira",
			expectedStatus: http.StatusMethodNotAllowed,
			expectedError:  "Method not allowed. Only GET is supported.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			var response HistoryResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if tt.expectedError != "" {
				if response.Error != tt.expectedError {
					t.Errorf("Expected error %q, got %q", tt.expectedError, response.Error)
				}
				return
			}
			if len(response.Messages) != tt.expectedCount {
				t.Errorf("Expected %d messages, got %d", tt.expectedCount, len(response.Messages))
			}
			if tt.expectedCount > 0 {
				if response.Messages[0].Role != chat.RolePlayer || response.Messages[0].Text != "hello" {
					t.Errorf("Unexpected first message: %+v", response.Messages[0])
				}
			}
		})
	}
}
