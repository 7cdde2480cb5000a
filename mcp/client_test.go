package mcp

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// stdioChild makes the test binary act as a stdio MCP server when set.
const stdioChild = "AGENTCREW_MCP_STDIO_CHILD"

func TestMain(m *testing.M) {
	if os.Getenv(stdioChild) == "1" {
		_ = NewServer(log.New(io.Discard)).ServeStdio(context.Background())
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestDial_Stdio(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := Dial(ctx, StdioScheme+os.Args[0]+" -test.run=^$", stdioChild+"=1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	out, err := c.ExecuteTool(ctx, "add_numbers", `{"a":2,"b":3}`)
	if err != nil || !strings.Contains(out, "5") {
		t.Fatalf("add_numbers = %q, %v", out, err)
	}
}

func TestDial_BadTargets(t *testing.T) {
	for _, target := range []string{"", "stdio:", "stdio:   ", "ftp://example.com/mcp", "localhost:8080"} {
		if _, err := Dial(context.Background(), target); err == nil {
			t.Fatalf("Dial(%q) should fail", target)
		}
	}
}
