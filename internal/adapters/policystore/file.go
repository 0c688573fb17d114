package policystore

import (
	"context"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/policy"
)

// FileSource loads policies from a YAML or JSON file
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed policy source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the policy file path
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and validates the policy file
func (s *FileSource) Load(ctx context.Context) ([]core.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return policy.LoadFile(s.path)
}

// StaticSource serves a fixed policy set
type StaticSource struct {
	policies []core.Policy
}

// NewStaticSource creates a source that always returns the given policies
func NewStaticSource(policies []core.Policy) *StaticSource {
	return &StaticSource{policies: policies}
}

// Load returns a copy of the policy set
func (s *StaticSource) Load(ctx context.Context) ([]core.Policy, error) {
	out := make([]core.Policy, len(s.policies))
	copy(out, s.policies)
	return out, nil
}
