package http

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultRegistryURL = "https://chat.nanda-registry.com"
	RegistryFile       = "registry_url.txt"
)

// ResolveRegistryURL picks the agent registry: a non-empty registry_url.txt
// in dir, then envURL, then DefaultRegistryURL.
func ResolveRegistryURL(dir, envURL string) string {
	if data, err := os.ReadFile(filepath.Join(dir, RegistryFile)); err == nil {
		if u := strings.TrimSpace(string(data)); u != "" {
			return u
		}
	}
	if u := strings.TrimSpace(envURL); u != "" {
		return u
	}
	return DefaultRegistryURL
}

// EnrollmentLink is the registry page where the agent can be claimed.
func EnrollmentLink(registry, agentID string) string {
	return fmt.Sprintf("%s/landing.html?agentId=%s", strings.TrimRight(registry, "/"), url.QueryEscape(agentID))
}

// AgentID returns configured, or a new random id when it is empty.
func AgentID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	return "agent-" + uuid.NewString()[:8]
}
