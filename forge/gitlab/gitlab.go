package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/repoprov/forge"
)

const (
	forgeName = "gitlab"

	// DefaultTimeout bounds every API call when Config
	// leaves Timeout unset.
	DefaultTimeout = 30 * time.Second

	defaultBranch = "main"
)

// Config holds the settings needed to create a GitLab
// forge provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// AccessToken is a personal access token used for
	// authentication.
	AccessToken string
	// Timeout bounds each HTTP call. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// Provider creates projects and files on GitLab.
//
// Pattern: Strategy -- implements forge.Forge.
type Provider struct {
	client *gl.Client
}

// NewProvider validates cfg and returns a Provider
// bound to its access token. Client-side retries are
// disabled: every failure is terminal.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
		gl.WithHTTPClient(&http.Client{Timeout: timeout}),
		gl.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{client: client}, nil
}

// NewFactory returns a forge.Factory building one
// Provider per token from cfg.
func NewFactory(cfg Config) forge.Factory {
	return func(token string) (forge.Forge, error) {
		c := cfg
		c.AccessToken = token

		return NewProvider(c)
	}
}

// Authenticate returns the username of the token
// owner.
func (p *Provider) Authenticate(
	ctx context.Context,
) (string, error) {
	user, resp, err := p.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		return "", classify(
			forge.OpAuthenticate, resp, err,
		)
	}

	return user.Username, nil
}

// CreateRepository creates a project named req.Name in
// the token owner's namespace.
func (p *Provider) CreateRepository(
	ctx context.Context,
	req forge.RepositoryRequest,
) (forge.RepositoryHandle, error) {
	visibility := gl.PublicVisibility
	if req.Private {
		visibility = gl.PrivateVisibility
	}

	branch := req.DefaultBranch
	if branch == "" {
		branch = defaultBranch
	}

	opts := gl.CreateProjectOptions{
		Name:                 gl.Ptr(req.Name),
		Path:                 gl.Ptr(req.Name),
		Description:          gl.Ptr(req.Description),
		Visibility:           gl.Ptr(visibility),
		InitializeWithReadme: gl.Ptr(req.AutoInit),
		DefaultBranch:        gl.Ptr(branch),
	}

	created, resp, err := p.client.Projects.CreateProject(
		&opts, gl.WithContext(ctx),
	)
	if err != nil {
		return forge.RepositoryHandle{}, classify(
			forge.OpCreateRepository, resp, err,
		)
	}

	slog.Info(
		"created project",
		"url", created.WebURL,
	)

	owner := ""
	if created.Namespace != nil {
		owner = created.Namespace.FullPath
	}

	// An empty project reports no default branch yet.
	if created.DefaultBranch != "" {
		branch = created.DefaultBranch
	}

	return forge.RepositoryHandle{
		Owner:         owner,
		Name:          created.Path,
		FullName:      created.PathWithNamespace,
		HTMLURL:       created.WebURL,
		CloneURL:      created.HTTPURLToRepo,
		DefaultBranch: branch,
	}, nil
}

// UploadFile creates req.Path with one commit on the
// default branch. Content is sent base64 encoded.
func (p *Provider) UploadFile(
	ctx context.Context,
	handle forge.RepositoryHandle,
	req forge.FileUploadRequest,
) (forge.FileCommit, error) {
	branch := handle.DefaultBranch
	if branch == "" {
		branch = defaultBranch
	}

	opts := gl.CreateFileOptions{
		Branch:        gl.Ptr(branch),
		Encoding:      gl.Ptr("base64"),
		Content:       gl.Ptr(req.EncodedContent()),
		CommitMessage: gl.Ptr(req.CommitMessage),
	}

	info, resp, err := p.client.RepositoryFiles.CreateFile(
		handle.FullName, req.Path, &opts,
		gl.WithContext(ctx),
	)
	if err != nil {
		return forge.FileCommit{}, classify(
			forge.OpUploadFile, resp, err,
		)
	}

	// GitLab reports neither the commit nor the blob
	// id on file creation.
	return forge.FileCommit{Path: info.FilePath}, nil
}

// classify turns a client-go failure into a
// *forge.Error.
func classify(
	op forge.Op,
	resp *gl.Response,
	err error,
) error {
	if resp == nil || resp.Response == nil {
		return forge.NewTransportError(forgeName, op, err)
	}

	body := err.Error()

	var glErr *gl.ErrorResponse
	if errors.As(err, &glErr) && len(glErr.Body) > 0 {
		body = string(glErr.Body)
	}

	slog.Debug(
		"gitlab response",
		"status", resp.StatusCode,
		"body", body,
	)

	return forge.NewRemoteError(
		forgeName, op, resp.StatusCode, body, err,
	)
}
