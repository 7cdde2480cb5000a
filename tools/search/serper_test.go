package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSerperToolFormatsResults(t *testing.T) {
	var gotKey string
	var gotReq serperRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"answerBox":{"answer":"42"},"organic":[
			{"title":"FedAvg paper","link":"https://example.com/a","snippet":"Communication-efficient learning"},
			{"title":"Survey","link":"https://example.com/b","snippet":"Challenges"},
			{"title":"Extra","link":"https://example.com/c","snippet":"ignored"}]}`))
	}))
	defer srv.Close()

	tool := NewSerperTool("secret", WithEndpoint(srv.URL), WithResults(2))
	out, err := tool.Execute(context.Background(), `{"query":"federated learning"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotKey != "secret" || gotReq.Q != "federated learning" || gotReq.Num != 2 {
		t.Fatalf("request: key=%q body=%+v", gotKey, gotReq)
	}
	for _, want := range []string{"Answer: 42", "1. FedAvg paper", "https://example.com/b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
	if strings.Contains(out, "Extra") {
		t.Fatalf("limit not applied: %s", out)
	}
}

func TestSerperToolErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	tool := NewSerperTool("nope", WithEndpoint(srv.URL))
	if _, err := tool.Execute(context.Background(), `{"query":"x"}`); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("want 403 error got %v", err)
	}
	if _, err := tool.Execute(context.Background(), `{"query":"  "}`); err == nil {
		t.Fatalf("empty query accepted")
	}
}

func TestSerperToolNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"organic":[]}`))
	}))
	defer srv.Close()
	out, err := NewSerperTool("k", WithEndpoint(srv.URL)).Execute(context.Background(), "bare query")
	if err != nil || !strings.HasSuffix(out, "No results found.") {
		t.Fatalf("got %q %v", out, err)
	}
}
