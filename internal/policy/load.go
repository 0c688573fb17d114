package policy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/safety"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy is returned when a policy document fails validation
var ErrInvalidPolicy = errors.New("invalid policy")

// Document is the on-disk policy file layout. A bare list of policies is
// accepted as well.
type Document struct {
	Policies []core.Policy `yaml:"policies" json:"policies"`
}

// ParseDocument decodes a YAML or JSON policy document and validates it
func ParseDocument(data []byte) ([]core.Policy, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var policies []core.Policy
	if trimmed[0] == '[' || trimmed[0] == '-' {
		if err := yaml.Unmarshal(trimmed, &policies); err != nil {
			return nil, fmt.Errorf("failed to parse policy list: %w", err)
		}
	} else {
		var doc Document
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse policy document: %w", err)
		}
		policies = doc.Policies
	}

	if err := Validate(policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// LoadFile reads and validates a policy file
func LoadFile(path string) ([]core.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	policies, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy file %s: %w", path, err)
	}
	return policies, nil
}

// Validate checks the structural requirements of a policy set. Unknown
// action types and duplicate ids are fatal; condition errors are not, those
// policies are skipped at evaluation time (see CompileErrors).
func Validate(policies []core.Policy) error {
	var errs []error
	seen := make(map[string]bool, len(policies))

	for i, p := range policies {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("%w: policy #%d has no id", ErrInvalidPolicy, i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("%w: duplicate policy id %q", ErrInvalidPolicy, id))
		}
		seen[id] = true

		if _, err := safety.TierFor(p.Action.Type); err != nil {
			errs = append(errs, fmt.Errorf("%w: policy %q: %w", ErrInvalidPolicy, id, err))
		}
		if p.Action.ConfidenceMin < 0 || p.Action.ConfidenceMin > 1 {
			errs = append(errs, fmt.Errorf("%w: policy %q: confidence_min %v outside [0,1]",
				ErrInvalidPolicy, id, p.Action.ConfidenceMin))
		}
		if c := p.Action.Confidence; c != nil && (*c < 0 || *c > 1) {
			errs = append(errs, fmt.Errorf("%w: policy %q: confidence %v outside [0,1]",
				ErrInvalidPolicy, id, *c))
		}
	}

	return errors.Join(errs...)
}

// CompileErrors returns the condition errors of each policy that will be
// skipped during evaluation, keyed by policy id
func CompileErrors(policies []core.Policy) map[string]error {
	out := make(map[string]error)
	for _, p := range policies {
		if _, err := Compile(p.Condition); err != nil {
			out[p.ID] = err
		}
	}
	return out
}
