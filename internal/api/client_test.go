package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mlaeubli/tasksync/internal/task"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bearer prefix stripped", input: "Bearer abc123", want: "abc123"},
		{name: "embedded whitespace removed", input: " abc\n123 ", want: "abc123"},
		{name: "clean token unchanged", input: "abc123", want: "abc123"},
		{name: "bearer plus whitespace", input: "  Bearer abc 123\n", want: "abc123"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.input); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFindTask(t *testing.T) {
	var gotAuth, gotPath, gotName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotName = r.URL.Query().Get("name")
		_, _ = w.Write([]byte(`{"tasks": [{"id": "task-1"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "Bearer abc123")
	ref, err := client.FindTask(context.Background(), "greeter")
	if err != nil {
		t.Fatal(err)
	}

	if ref == nil || ref.ID != "task-1" {
		t.Errorf("ref = %+v, want id task-1", ref)
	}
	if gotAuth != "Bearer abc123" {
		t.Errorf("Authorization = %q, want sanitized bearer header", gotAuth)
	}
	if gotPath != "/v1/tasks" {
		t.Errorf("path = %q", gotPath)
	}
	if gotName != "greeter" {
		t.Errorf("name query = %q", gotName)
	}
}

func TestFindTask_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tasks": []}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "abc")
	ref, err := client.FindTask(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if ref != nil {
		t.Errorf("ref = %+v, want nil for no match", ref)
	}
}

func TestCreateTask(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "new-task"}`))
	}))
	defer server.Close()

	payload := &task.FullPayload{
		Name:        "greeter",
		Description: "greets",
		Memory:      256,
		TimeLimit:   300,
		Concurrency: 2,
		Config:      map[string]any{"interpreter": "python3", "time_limit": 300},
		File:        "cHJpbnQoKQ==",
	}

	client := NewHTTPClient(server.URL, "abc")
	id, err := client.CreateTask(context.Background(), payload)
	if err != nil {
		t.Fatal(err)
	}

	if id != "new-task" {
		t.Errorf("id = %q", id)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody["name"] != "greeter" || gotBody["file"] != "cHJpbnQoKQ==" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestCreateTask_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "name already taken"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "abc")
	_, err := client.CreateTask(context.Background(), &task.FullPayload{Name: "dup"})

	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if serr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", serr.StatusCode)
	}
	body, ok := serr.Body.(map[string]any)
	if !ok || body["error"] != "name already taken" {
		t.Errorf("Body = %v, want decoded JSON", serr.Body)
	}
}

func TestStatusError_RawTextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "abc")
	_, err := client.FindTask(context.Background(), "x")

	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if serr.Body != "upstream timeout" {
		t.Errorf("Body = %v, want raw text passthrough", serr.Body)
	}
}

func TestUpdateTask_FileOnlyBody(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "abc")
	err := client.UpdateTask(context.Background(), "task-1", &task.FileOnlyPayload{File: "cHJpbnQoKQ=="})
	if err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q", gotMethod)
	}
	if gotPath != "/v1/tasks/task-1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"file":"cHJpbnQoKQ=="}` {
		t.Errorf("body = %s, want file field only", gotBody)
	}
}

func TestUpdateTask_FullBody(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "abc")
	err := client.UpdateTask(context.Background(), "task-1", &task.FullPayload{
		Name:   "greeter",
		Config: map[string]any{"interpreter": "python3"},
		File:   "cHJpbnQoKQ==",
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotBody["name"] != "greeter" {
		t.Errorf("body = %v, want full definition", gotBody)
	}
}
