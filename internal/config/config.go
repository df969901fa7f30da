// Package config loads the Instapaper credentials file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Credentials holds everything needed for the xAuth token exchange.
// Password may be empty; some Instapaper accounts have none.
type Credentials struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
}

// Load reads and validates the credentials file at path.
func Load(path string) (Credentials, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from a flag
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf(
				"configuration file not found at %s; create it with your Instapaper credentials (see instapaper_config.example.json)",
				path,
			)
		}
		return Credentials{}, fmt.Errorf("read %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := creds.validate(); err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", path, err)
	}
	return creds, nil
}

func (c Credentials) validate() error {
	var missing []string
	if strings.TrimSpace(c.ConsumerKey) == "" {
		missing = append(missing, "consumer_key")
	}
	if strings.TrimSpace(c.ConsumerSecret) == "" {
		missing = append(missing, "consumer_secret")
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
