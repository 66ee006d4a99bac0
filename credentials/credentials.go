// Package credentials implements the flat credentials file read by the
// translation backends.
//
// The file is a JSON object with one block per engine:
//
//	{
//	    "openai": { "openai_key": "sk-..." },
//	    "amazon": { "aws_access_key": "AKIA...", "aws_secret_key": "..." }
//	}
//
// Default location: $XDG_DATA_HOME/jsontrans/credentials.json
// (fallback ~/.local/share/jsontrans/credentials.json). File permissions
// are 0600. A missing block for the selected engine surfaces as an auth
// error in the backend adapter, never as a partial run.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "jsontrans"
	fileName    = "credentials.json"
)

// OpenAI holds the completion backend credentials.
type OpenAI struct {
	Key string `json:"openai_key"`
}

// Amazon holds the AWS Translate credentials.
type Amazon struct {
	AccessKey string `json:"aws_access_key"`
	SecretKey string `json:"aws_secret_key"`
}

// File is the parsed credentials file. A nil block means no credentials
// were stored for that engine.
type File struct {
	OpenAI *OpenAI `json:"openai,omitempty"`
	Amazon *Amazon `json:"amazon,omitempty"`
}

// dataDir returns the XDG data directory for jsontrans.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// DataDir returns the jsontrans data directory path.
// Default: ~/.local/share/jsontrans (or $XDG_DATA_HOME/jsontrans).
func DataDir() string {
	dir, err := dataDir()
	if err != nil {
		return ""
	}
	return dir
}

// DefaultPath returns the default credentials file path for display and
// flag defaults.
func DefaultPath() string {
	dir, err := dataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, fileName)
}

// Load reads the credentials file at path. A missing file yields an empty
// File, not an error: whether credentials are required depends on the
// selected engine.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the credentials file with 0600 permissions.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// SetOpenAI stores the completion backend key.
func (f *File) SetOpenAI(key string) {
	f.OpenAI = &OpenAI{Key: key}
}

// SetAmazon stores the AWS Translate key pair.
func (f *File) SetAmazon(accessKey, secretKey string) {
	f.Amazon = &Amazon{AccessKey: accessKey, SecretKey: secretKey}
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
