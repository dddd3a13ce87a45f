package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/byte4ever/repoprov/config"
	"github.com/byte4ever/repoprov/forge"
	"github.com/byte4ever/repoprov/forge/bitbucket"
	"github.com/byte4ever/repoprov/forge/github"
	"github.com/byte4ever/repoprov/forge/gitlab"
)

// forgeSettings bundles the host selection values
// needed by newFactory.
type forgeSettings struct {
	kind       string
	host       string
	projectKey string
	user       string
	timeout    time.Duration
}

// newFactory returns the forge.Factory for fs.kind.
// Pattern: Factory -- selects platform implementation
// at runtime.
//
// For GitHub, a host given as a URL is used as the API
// root and a bare hostname as a GitHub Enterprise host.
func newFactory(fs forgeSettings) (forge.Factory, error) {
	const errCtx = "creating forge factory"

	switch fs.kind {
	case config.ForgeGitHub, "":
		cfg := github.Config{Timeout: fs.timeout}

		switch {
		case isURL(fs.host):
			cfg.BaseURL = fs.host
		case fs.host != "":
			cfg.EnterpriseHost = fs.host
		}

		return github.NewFactory(cfg), nil

	case config.ForgeGitLab:
		return gitlab.NewFactory(gitlab.Config{
			Host:    fs.host,
			Timeout: fs.timeout,
		}), nil

	case config.ForgeBitbucket:
		if fs.host == "" || fs.projectKey == "" {
			return nil, fmt.Errorf(
				"%s: bitbucket needs --host and --project-key",
				errCtx,
			)
		}

		return bitbucket.NewFactory(bitbucket.Config{
			BaseURL:    fs.host,
			ProjectKey: fs.projectKey,
			User:       fs.user,
			Timeout:    fs.timeout,
		}), nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown forge %q", errCtx, fs.kind,
		)
	}
}

// tokenEnv lists the environment variables consulted,
// in order, when no --token is given.
func tokenEnv(kind string) []string {
	envs := []string{"REPOPROV_TOKEN"}

	switch kind {
	case config.ForgeGitLab:
		envs = append(envs, "GITLAB_TOKEN")
	case config.ForgeBitbucket:
		envs = append(envs, "BITBUCKET_TOKEN")
	default:
		envs = append(envs, "GITHUB_TOKEN")
	}

	return envs
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://")
}
