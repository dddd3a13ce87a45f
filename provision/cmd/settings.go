package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/repoprov/config"
	"github.com/byte4ever/repoprov/templating"
)

// settings is the merged view of the config file and
// the command-line flags. Flags win when set.
type settings struct {
	configPath string

	forgeType  string
	host       string
	projectKey string
	user       string
	timeout    string

	token       string
	name        string
	description string
	private     bool
	autoInit    bool

	templatesDir   string
	startTag       string
	endTag         string
	varFiles       []string
	vars           []string
	systemPackages []string

	cloneDir string
	output   string
}

func (s *settings) bindTemplateFlags(cmd *cobra.Command) {
	fl := cmd.Flags()

	fl.StringVarP(&s.name, "name", "n", "", "Repository name")
	fl.StringVarP(
		&s.description, "description", "d", "",
		"Repository description",
	)
	fl.StringVar(
		&s.configPath, "config", "",
		"Config file (default: search repoprov.yaml)",
	)
	fl.StringVar(
		&s.templatesDir, "templates-dir", "",
		"Directory overriding built-in templates",
	)
	fl.StringArrayVar(
		&s.varFiles, "var-file", nil,
		"KEY VALUE variable file (repeatable)",
	)
	fl.StringArrayVar(
		&s.vars, "var", nil,
		"Template variable NAME=VALUE (repeatable)",
	)
	fl.StringArrayVar(
		&s.systemPackages, "system-package", nil,
		"System package for packages.txt (repeatable)",
	)
}

// load reads the config file and fills every value not
// set on the command line.
func (s *settings) load(cmd *cobra.Command) error {
	const errCtx = "loading settings"

	cfg, err := loadConfig(s.configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	fl := cmd.Flags()

	pick := func(flag string, dst *string, val string) {
		if fl.Lookup(flag) == nil || !fl.Changed(flag) {
			*dst = val
		}
	}

	pick("forge", &s.forgeType, cfg.Forge.Type)
	pick("host", &s.host, cfg.Forge.Host)
	pick("project-key", &s.projectKey, cfg.Forge.ProjectKey)
	pick("user", &s.user, cfg.Forge.User)
	pick("timeout", &s.timeout, cfg.Forge.Timeout)
	pick("templates-dir", &s.templatesDir, cfg.Templates.Dir)
	pick("clone-dir", &s.cloneDir, cfg.Clone.Dir)

	if !fl.Changed("name") {
		s.name = cfg.Repository.Name
	}

	if !fl.Changed("description") {
		s.description = cfg.Repository.Description
	}

	if fl.Lookup("private") == nil || !fl.Changed("private") {
		s.private = cfg.Repository.Private
	}

	if fl.Lookup("auto-init") == nil || !fl.Changed("auto-init") {
		s.autoInit = cfg.Repository.AutoInit
	}

	if s.token == "" {
		s.token = cfg.Token
	}

	s.startTag = cfg.Templates.StartTag
	s.endTag = cfg.Templates.EndTag
	s.varFiles = append(
		append([]string(nil), cfg.Templates.VarFiles...),
		s.varFiles...,
	)
	s.vars = append(cfg.TemplateVars(), s.vars...)

	if !fl.Changed("system-package") {
		s.systemPackages = cfg.Templates.SystemPackages
	}

	s.forgeType = strings.ToLower(s.forgeType)

	if s.name == "" {
		return fmt.Errorf(
			"%s: repository name must be set (--name)",
			errCtx,
		)
	}

	return nil
}

// engine returns the template engine for s.
func (s *settings) engine() *templating.Engine {
	return &templating.Engine{
		StartTag: s.startTag,
		EndTag:   s.endTag,
		Dir:      s.templatesDir,
		VarFiles: s.varFiles,
	}
}

// starterOptions returns the rendering options for s.
func (s *settings) starterOptions() templating.StarterOptions {
	return templating.StarterOptions{
		RepoName:       s.name,
		Description:    s.description,
		SystemPackages: s.systemPackages,
		Vars:           s.vars,
	}
}

// loadConfig loads path, or the first file found in the
// standard locations when path is empty. No file at all
// yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := config.Find()
		if errors.Is(err, config.ErrNotFound) {
			return config.Default(), nil
		}

		if err != nil {
			return nil, err
		}

		slog.Debug("using config file", "path", found)
		path = found
	}

	return config.Load(path)
}
