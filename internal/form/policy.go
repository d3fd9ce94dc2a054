// internal/form/policy.go
//
// Onatrix – Forms subsystem: validation policies.
//
// Context
//   A Policy is the single, serializable rule set for one form: which fields
//   exist, their labels, whether they are required, the pattern each value
//   must match, and the message shown for each failure.  The server validates
//   against it, the renderer builds markup from it, and the browser script
//   receives the very same Policy as JSON, so the rules are declared once.
//
//   Two policies ship built in:
//     •  "international" – E.164 phone numbers and a RFC-style address check.
//     •  "sweden"        – Swedish mobile/landline numbers and a simple
//                          address check.
//   Operators may add or override policies with YAML files under
//   forms.policies_dir.
//
// Workflow
//   •  NewRegistry returns a Registry seeded with the built-in policies.
//   •  LoadDir parses every “*.yaml” / “*.yml” in a directory and registers
//      the result, replacing built-ins of the same name.
//   •  Get offers read-only access by name.
//
// Notes
//   Patterns must compile under both RE2 and ECMAScript, so lookarounds and
//   backreferences are not allowed.  Length limits use MaxLength instead, and
//   LocalMaxLength bounds the part of an address before its last “@”.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Field types understood by the renderer.
const (
	TypeText   = "text"
	TypeEmail  = "email"
	TypeTel    = "tel"
	TypeSelect = "select"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FieldRule describes one field of a Policy.
type FieldRule struct {
	Name            string `yaml:"name"             json:"name"                      validate:"required"`
	Label           string `yaml:"label"            json:"label"                     validate:"required"`
	Type            string `yaml:"type"             json:"type"                      validate:"required,oneof=text email tel select"`
	Placeholder     string `yaml:"placeholder"      json:"placeholder,omitempty"`
	Required        bool   `yaml:"required"         json:"required"`
	Pattern         string `yaml:"pattern"          json:"pattern,omitempty"`
	MaxLength       int    `yaml:"max_length"       json:"maxLength,omitempty"       validate:"gte=0"`
	LocalMaxLength  int    `yaml:"local_max_length" json:"localMaxLength,omitempty"  validate:"gte=0"`
	RequiredMessage string `yaml:"required_message" json:"requiredMessage,omitempty" validate:"required_if=Required true"`
	PatternMessage  string `yaml:"pattern_message"  json:"patternMessage,omitempty"  validate:"required_with=Pattern"`
	ChoiceMessage   string `yaml:"choice_message"   json:"-"`

	re *regexp.Regexp
}

// Policy is a named, ordered list of field rules.
type Policy struct {
	Name   string      `yaml:"name"   json:"name"   validate:"required"`
	Fields []FieldRule `yaml:"fields" json:"fields" validate:"required,min=1,dive"`
}

// Field returns the rule for name, or nil.
func (p *Policy) Field(name string) *FieldRule {
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			return &p.Fields[i]
		}
	}
	return nil
}

// FieldNames returns the field names in declaration order.
func (p *Policy) FieldNames() []string {
	out := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		out[i] = f.Name
	}
	return out
}

// compile checks structural rules and compiles every pattern.
func (p *Policy) compile() error {
	if err := structCheck.Struct(p); err != nil {
		return fmt.Errorf("policy %q: %w", p.Name, err)
	}
	seen := make(map[string]struct{}, len(p.Fields))
	for i := range p.Fields {
		f := &p.Fields[i]
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("policy %q: duplicate field %q", p.Name, f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return fmt.Errorf("policy %q: field %q: invalid pattern: %w", p.Name, f.Name, err)
		}
		f.re = re
	}
	return nil
}

var structCheck = validator.New(validator.WithRequiredStructEnabled())

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry maps policy name → *Policy.  Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

// NewRegistry returns a Registry holding the built-in policies.
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[string]*Policy)}
	for _, p := range builtinPolicies() {
		if err := r.Register(p); err != nil {
			panic(err) // built-ins are compiled into the binary
		}
	}
	return r
}

// Register validates p and adds it, replacing any policy of the same name.
func (r *Registry) Register(p *Policy) error {
	if err := p.compile(); err != nil {
		return err
	}
	r.mu.Lock()
	r.policies[p.Name] = p
	r.mu.Unlock()
	return nil
}

// Get returns the policy called name.
func (r *Registry) Get(name string) (*Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	return p, ok
}

// Names lists registered policies, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.policies))
	for n := range r.policies {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// LoadPolicy parses one YAML file.  It never touches a Registry.
func LoadPolicy(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", path, err)
	}
	if err := p.compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// LoadDir registers every YAML policy found directly under dir and returns
// how many were loaded.  A missing directory is not an error.
func (r *Registry) LoadDir(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read policies dir %s: %w", dir, err)
	}

	n := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		p, err := LoadPolicy(filepath.Join(dir, e.Name()))
		if err != nil {
			return n, err // fail fast so issues surface loudly.
		}
		if err := r.Register(p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Built-in policies
// -----------------------------------------------------------------------------

const (
	// PolicyInternational accepts E.164 numbers and RFC-style addresses,
	// including bracketed IP literals.
	PolicyInternational = "international"
	// PolicySweden accepts Swedish numbers in +46 or national 0 form.
	PolicySweden = "sweden"
)

const (
	internationalEmail = `^[A-Za-z0-9!#$%&'*+/=?^_{|}~-]+(?:\.[A-Za-z0-9!#$%&'*+/=?^_{|}~-]+)*@(?:(?:[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?\.)+[A-Za-z]{2,}|\[(?:IPv6:[A-Fa-f0-9]{0,4}(?::[A-Fa-f0-9]{0,4}){2,7}|(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?))\])$`
	internationalPhone = `^\+?[1-9]\d{1,14}$`
	swedenEmail        = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	swedenPhone        = `^(\+46[1-9]\d{8}|0[1-9]\d{8})$`
)

func builtinPolicies() []*Policy {
	intl := callbackPolicy(PolicyInternational, internationalEmail, internationalPhone)
	intl.Field("Email").LocalMaxLength = 64
	return []*Policy{
		intl,
		callbackPolicy(PolicySweden, swedenEmail, swedenPhone),
	}
}

// callbackPolicy builds the four-field callback form with the given email
// and phone patterns.
func callbackPolicy(name, emailPattern, phonePattern string) *Policy {
	return &Policy{
		Name: name,
		Fields: []FieldRule{
			{
				Name:            "Name",
				Label:           "Name",
				Type:            TypeText,
				Required:        true,
				MaxLength:       200,
				RequiredMessage: "Name is required",
			},
			{
				Name:            "Email",
				Label:           "Email address",
				Type:            TypeEmail,
				Required:        true,
				Pattern:         emailPattern,
				MaxLength:       254,
				RequiredMessage: "Email is required",
				PatternMessage:  "Invalid email address format",
			},
			{
				Name:            "Phone",
				Label:           "Phone number",
				Type:            TypeTel,
				Required:        true,
				Pattern:         phonePattern,
				RequiredMessage: "Phone is required",
				PatternMessage:  "Invalid phone number",
			},
			{
				Name:            "SelectedOption",
				Label:           "Option",
				Type:            TypeSelect,
				Required:        true,
				RequiredMessage: "Please select an option",
				ChoiceMessage:   "Please select a valid option",
			},
		},
	}
}
