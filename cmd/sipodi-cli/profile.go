package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultProfileName = ".sipodi.yaml"
	passwordEnv        = "SIPODI_PASSWORD"
)

// Profile models ~/.sipodi.yaml.
type Profile struct {
	BaseURL string        `yaml:"base_url"`
	Email   string        `yaml:"email"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultProfileName
	}
	return filepath.Join(home, defaultProfileName)
}

// LoadProfile reads and validates the profile at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	p.BaseURL = strings.TrimSpace(p.BaseURL)
	p.Email = strings.TrimSpace(p.Email)
	if p.BaseURL == "" {
		return nil, errors.New("profile: base_url is required")
	}
	if p.Email == "" {
		return nil, errors.New("profile: email is required")
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return &p, nil
}
