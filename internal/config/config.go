// Package config loads the server's environment configuration and the
// client's YAML configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Server holds the server process settings, read from the environment.
type Server struct {
	Port string
}

// LoadServer reads the server configuration. A .env file is loaded
// when present; real environment variables win over it.
func LoadServer() Server {
	godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return Server{Port: port}
}

// Side configures one of the two conversational roles.
type Side struct {
	Language string `yaml:"language"`
}

// Client holds the terminal endpoint settings.
type Client struct {
	ServerURL string `yaml:"server_url"`
	StreamID  string `yaml:"stream_id"`
	SideA     Side   `yaml:"side_a"`
	SideB     Side   `yaml:"side_b"`

	// RenderCeilingSeconds bounds how long a response may play before
	// the turn is forced over. Zero keeps the built-in default.
	RenderCeilingSeconds int `yaml:"render_ceiling_seconds"`
}

// LoadClient reads and validates a client configuration file.
func LoadClient(path string) (*Client, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Client{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8080"
	}
	if cfg.StreamID == "" {
		cfg.StreamID = "main"
	}
	if cfg.SideA.Language == "" || cfg.SideB.Language == "" {
		return nil, fmt.Errorf("config: both side languages are required")
	}
	if cfg.RenderCeilingSeconds < 0 {
		return nil, fmt.Errorf("config: render_ceiling_seconds must not be negative")
	}
	return cfg, nil
}
