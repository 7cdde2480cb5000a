// Package config reads runtime settings from the environment (and an
// optional .env file) plus the optional YAML crew file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/KamdynS/agentcrew/crew"
)

const (
	DefaultMCPPort    = 8080
	DefaultBridgePort = 6000
	DefaultDomain     = "localhost"
)

// Config is the resolved runtime configuration.
type Config struct {
	OpenAIKey    string
	AnthropicKey string
	// Provider is the preferred provider, "openai" or "anthropic". Empty
	// means the first one with a key.
	Provider string
	Model    string

	SerperAPIKey string
	OutputDir    string
	CrewFile     string

	RedisURL     string
	CacheTTL     time.Duration
	DatabaseURL  string
	// MCPServerURL is an http(s) URL or "stdio:<command>".
	MCPServerURL string

	MCPPort    int
	BridgePort int

	DomainName   string
	CertFile     string
	KeyFile      string
	AgentBaseURL string
	RegistryURL  string
	AgentID      string

	LogLevel string
	Verbose  bool
}

// Load reads .env files (missing ones are ignored) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }
	c := &Config{
		OpenAIKey:    get("OPENAI_API_KEY"),
		AnthropicKey: get("ANTHROPIC_API_KEY"),
		Provider:     strings.ToLower(get("CREW_PROVIDER")),
		Model:        get("CREW_MODEL"),
		SerperAPIKey: get("SERPER_API_KEY"),
		OutputDir:    or(get("CREW_OUTPUT_DIR"), "."),
		CrewFile:     get("CREW_CONFIG"),
		RedisURL:     get("REDIS_URL"),
		DatabaseURL:  get("DATABASE_URL"),
		MCPServerURL: get("MCP_SERVER_URL"),
		DomainName:   or(get("DOMAIN_NAME"), DefaultDomain),
		CertFile:     get("CERT_FILE"),
		KeyFile:      get("KEY_FILE"),
		AgentBaseURL: get("AGENT_BASE_URL"),
		RegistryURL:  get("REGISTRY_URL"),
		AgentID:      get("AGENT_ID"),
		LogLevel:     or(strings.ToLower(get("LOG_LEVEL")), "info"),
	}

	var err error
	if c.MCPPort, err = port(get("PORT"), DefaultMCPPort); err != nil {
		return nil, err
	}
	if c.BridgePort, err = port(get("PORT"), DefaultBridgePort); err != nil {
		return nil, err
	}
	if v := get("CREW_CACHE_TTL"); v != "" {
		if c.CacheTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("CREW_CACHE_TTL: %w", err)
		}
	}
	if v := get("CREW_VERBOSE"); v != "" {
		if c.Verbose, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("CREW_VERBOSE: %w", err)
		}
	}
	switch c.Provider {
	case "", "openai", "anthropic":
	default:
		return nil, fmt.Errorf("CREW_PROVIDER: unknown provider %q", c.Provider)
	}
	return c, nil
}

// HasLLMKey reports whether any provider key is configured.
func (c *Config) HasLLMKey() bool { return c.OpenAIKey != "" || c.AnthropicKey != "" }

// LoadCrewFile parses a YAML crew file. An empty path returns nil.
func LoadCrewFile(path string) (*crew.Overrides, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crew file: %w", err)
	}
	return ParseCrewFile(data)
}

// ParseCrewFile decodes crew overrides, rejecting unknown keys.
func ParseCrewFile(data []byte) (*crew.Overrides, error) {
	var o crew.Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return &o, nil
		}
		return nil, fmt.Errorf("parse crew file: %w", err)
	}
	for key := range o.Agents {
		if key != crew.KeySummarizer && key != crew.KeyAnswerer {
			return nil, fmt.Errorf("crew file: unknown agent %q", key)
		}
	}
	for key := range o.Tasks {
		if key != crew.KeySummarize && key != crew.KeyAnswer {
			return nil, fmt.Errorf("crew file: unknown task %q", key)
		}
	}
	return &o, nil
}

func port(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	p, err := strconv.Atoi(v)
	if err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("PORT: invalid port %q", v)
	}
	return p, nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
