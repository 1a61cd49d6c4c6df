// Package secret loads shared tokens from key files.
package secret

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileProvider reads a shared token from a key file. The token is read
// once and cached; the file is the deploy-time source of truth.
type FileProvider struct {
	path string

	once  sync.Once
	token string
	err   error
}

// NewFileProvider creates a provider for the given key file path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Token returns the trimmed token from the key file. An absent or empty
// file is an error so a misdeploy cannot silently disable authorization.
func (p *FileProvider) Token() (string, error) {
	p.once.Do(func() {
		raw, err := os.ReadFile(p.path)
		if err != nil {
			p.err = fmt.Errorf("read key file %s: %w", p.path, err)
			return
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			p.err = fmt.Errorf("key file %s is empty", p.path)
			return
		}
		p.token = token
	})
	return p.token, p.err
}

// Static is a fixed-token provider (primarily for testing).
type Static string

// Token returns the fixed token.
func (s Static) Token() (string, error) {
	if s == "" {
		return "", fmt.Errorf("static token is empty")
	}
	return string(s), nil
}
