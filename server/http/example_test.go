package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"

	"github.com/charmbracelet/log"
)

type pong struct{}

func (pong) Handle(ctx context.Context, msg string) string { return "pong" }

func ExampleServer_chat() {
	s := NewServer(pong{}, Config{Logger: log.New(io.Discard)})
	reqBody, _ := json.Marshal(ChatRequest{Message: "ping"})
	req := httptest.NewRequest("POST", "/chat", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var resp ChatResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	fmt.Println(w.Code, resp.Message, resp.Meta["mode"])
	// Output:
	// 200 pong demo
}

func ExampleEnrollmentLink() {
	fmt.Println(EnrollmentLink("https://chat.nanda-registry.com", "agent-1"))
	// Output:
	// https://chat.nanda-registry.com/landing.html?agentId=agent-1
}
