package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Supported forge types.
const (
	ForgeGitHub    = "github"
	ForgeGitLab    = "gitlab"
	ForgeBitbucket = "bitbucket"
)

// DefaultTimeout applies when forge.timeout is unset.
const DefaultTimeout = 30 * time.Second

// ErrNotFound is returned by Find when no configuration
// file exists in the searched locations.
var ErrNotFound = errors.New(
	"config file not found in default locations",
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the content of a repoprov.yaml file.
type Config struct {
	Forge      Forge      `yaml:"forge"`
	Token      string     `yaml:"token"`
	Repository Repository `yaml:"repository"`
	Templates  Templates  `yaml:"templates"`
	Clone      Clone      `yaml:"clone"`
}

// Forge selects and locates the hosting service.
type Forge struct {
	Type       string `yaml:"type"`
	Host       string `yaml:"host"`
	ProjectKey string `yaml:"project_key"`
	User       string `yaml:"user"`
	// Timeout is a Go duration string such as "45s".
	Timeout string `yaml:"timeout"`
}

// Repository holds defaults for the repository to
// create.
type Repository struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Private     bool   `yaml:"private"`
	AutoInit    bool   `yaml:"auto_init"`
}

// Templates configures starter-file rendering.
type Templates struct {
	Dir            string            `yaml:"dir"`
	StartTag       string            `yaml:"start_tag"`
	EndTag         string            `yaml:"end_tag"`
	VarFiles       []string          `yaml:"var_files"`
	Vars           map[string]string `yaml:"vars"`
	SystemPackages []string          `yaml:"system_packages"`
}

// Clone configures the optional local checkout.
type Clone struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file
// is given.
func Default() *Config {
	return &Config{
		Forge: Forge{
			Type:    ForgeGitHub,
			Timeout: DefaultTimeout.String(),
		},
	}
}

// Load reads path, resolves the token, applies defaults
// and validates the result.
func Load(path string) (*Config, error) {
	const errCtx = "loading config"

	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return cfg, nil
}

// Parse decodes YAML data and post-processes it like
// Load.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	cfg.Token = ResolveToken(cfg.Token)

	if cfg.Forge.Type == "" {
		cfg.Forge.Type = ForgeGitHub
	}

	cfg.Forge.Type = strings.ToLower(cfg.Forge.Type)

	if cfg.Forge.Timeout == "" {
		cfg.Forge.Timeout = DefaultTimeout.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the forge selection and timeout.
func (c *Config) Validate() error {
	const errCtx = "invalid config"

	switch c.Forge.Type {
	case ForgeGitHub, ForgeGitLab:
	case ForgeBitbucket:
		if c.Forge.Host == "" {
			return fmt.Errorf(
				"%s: forge.host is required for bitbucket",
				errCtx,
			)
		}

		if c.Forge.ProjectKey == "" {
			return fmt.Errorf(
				"%s: forge.project_key is required for bitbucket",
				errCtx,
			)
		}
	default:
		return fmt.Errorf(
			"%s: unknown forge.type %q", errCtx, c.Forge.Type,
		)
	}

	if _, err := c.TimeoutDuration(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// TimeoutDuration parses forge.timeout. An empty value
// yields DefaultTimeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Forge.Timeout == "" {
		return DefaultTimeout, nil
	}

	d, err := time.ParseDuration(c.Forge.Timeout)
	if err != nil {
		return 0, fmt.Errorf("forge.timeout: %w", err)
	}

	if d <= 0 {
		return 0, fmt.Errorf(
			"forge.timeout: must be positive, got %s", d,
		)
	}

	return d, nil
}

// TemplateVars returns templates.vars as NAME=VALUE
// pairs sorted by name.
func (c *Config) TemplateVars() []string {
	names := make([]string, 0, len(c.Templates.Vars))
	for k := range c.Templates.Vars {
		names = append(names, k)
	}

	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, k := range names {
		out = append(out, k+"="+c.Templates.Vars[k])
	}

	return out
}

// Find searches the standard locations for a
// configuration file and returns the first match.
func Find() (string, error) {
	locations := []string{".", ".config"}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		locations = append(
			locations,
			home,
			filepath.Join(home, ".config"),
		)
	}

	return findIn(locations)
}

func findIn(locations []string) (string, error) {
	patterns := []string{
		".repoprov.yaml",
		".repoprov.yml",
		"repoprov.yaml",
		"repoprov.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			pa := filepath.Join(loc, pat)
			if st, err := os.Stat(pa); err == nil && !st.IsDir() {
				return pa, nil
			}
		}
	}

	return "", ErrNotFound
}

// ResolveToken expands ${VAR} references in raw and,
// when the result names an existing file, returns that
// file's trimmed content instead.
func ResolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(
		raw,
		func(match string) string {
			name := envVarPattern.FindStringSubmatch(match)[1]

			val, ok := os.LookupEnv(name)
			if !ok || val == "" {
				slog.Warn(
					"environment variable is not set",
					"name", name,
				)
			}

			return val
		},
	)

	st, err := os.Stat(resolved)
	if err != nil || st.IsDir() {
		return resolved
	}

	data, err := os.ReadFile(resolved) //nolint:gosec // token file named by the user
	if err != nil {
		slog.Warn(
			"reading token file",
			"path", resolved,
			"error", err,
		)

		return resolved
	}

	slog.Debug("read token from file", "path", resolved)

	return strings.TrimSpace(string(data))
}
