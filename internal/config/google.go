package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GoogleClientFile is a Google OAuth client secret file as downloaded from the cloud console.
// Desktop clients carry an "installed" section and web clients a "web" section.
type GoogleClientFile struct {
	Installed *GoogleClient `json:"installed,omitempty" validate:"required_without=Web"`
	Web       *GoogleClient `json:"web,omitempty" validate:"required_without=Installed"`
}

// GoogleClient holds the fields the Sheets publisher needs from a client secret file
type GoogleClient struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ClientSecret string   `json:"client_secret" validate:"required"`
	ProjectID    string   `json:"project_id,omitempty"`
	AuthURI      string   `json:"auth_uri" validate:"required,url"`
	TokenURI     string   `json:"token_uri" validate:"required,url"`
	CertURL      string   `json:"auth_provider_x509_cert_url,omitempty" validate:"omitempty,url"`
	RedirectURIs []string `json:"redirect_uris,omitempty" validate:"dive,uri"`
}

// Client returns the section present in the file, preferring the desktop one
func (f *GoogleClientFile) Client() *GoogleClient {
	if f.Installed != nil {
		return f.Installed
	}
	return f.Web
}

// GoogleClient reads the OAuth client secret file. An oauthClientPath in the config wins;
// otherwise oauthClient.<env>.json is looked up like the config file itself.
func (c *Config) GoogleClient(env string) (*GoogleClientFile, error) {
	path := c.OAuthClientPath
	if path == "" {
		found, err := findFile(googleClientFileName(env))
		if err != nil {
			return nil, fmt.Errorf("failed to find oauth client file: %w", err)
		}
		path = found
	}
	return ReadGoogleClientFile(path)
}

// ReadGoogleClientFile parses and validates a client secret file
func ReadGoogleClientFile(path string) (*GoogleClientFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var file GoogleClientFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file %s: %w", filepath.Base(path), err)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid oauth client file %s: %w", filepath.Base(path), err)
	}
	return &file, nil
}

func googleClientFileName(env string) string {
	if env == "" {
		return "oauthClient.json"
	}
	return "oauthClient." + env + ".json"
}
