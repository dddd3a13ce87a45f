package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/repoprov/forge"
)

const (
	forgeName = "github"

	// DefaultTimeout bounds every API call when Config
	// leaves Timeout unset.
	DefaultTimeout = 30 * time.Second
)

// Config holds the settings needed to create a GitHub
// forge provider.
type Config struct {
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// BaseURL overrides the API root URL. It wins over
	// EnterpriseHost and is mostly useful in tests.
	BaseURL string
	// Timeout bounds each HTTP call. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// Provider creates repositories and files on GitHub.
//
// Pattern: Strategy -- implements forge.Forge.
type Provider struct {
	client *gh.Client
}

// NewProvider validates cfg and returns a Provider
// bound to its access token.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := gh.NewClient(
		&http.Client{Timeout: timeout},
	).WithAuthToken(cfg.AccessToken)

	switch {
	case cfg.BaseURL != "":
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}

		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: base url: %w", errCtx, err,
			)
		}

		client.BaseURL = u

	case cfg.EnterpriseHost != "":
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
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

// Authenticate returns the login of the token owner.
func (p *Provider) Authenticate(
	ctx context.Context,
) (string, error) {
	user, resp, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return "", classify(
			forge.OpAuthenticate, resp, err,
		)
	}

	return user.GetLogin(), nil
}

// CreateRepository creates req.Name in the token
// owner's account (POST /user/repos).
func (p *Provider) CreateRepository(
	ctx context.Context,
	req forge.RepositoryRequest,
) (forge.RepositoryHandle, error) {
	repo := &gh.Repository{
		Name:        gh.Ptr(req.Name),
		Description: gh.Ptr(req.Description),
		Private:     gh.Ptr(req.Private),
		AutoInit:    gh.Ptr(req.AutoInit),
	}

	created, resp, err := p.client.Repositories.Create(
		ctx, "", repo,
	)
	if err != nil {
		return forge.RepositoryHandle{}, classify(
			forge.OpCreateRepository, resp, err,
		)
	}

	slog.Info(
		"created repository",
		"url", created.GetHTMLURL(),
	)

	return forge.RepositoryHandle{
		Owner:         created.GetOwner().GetLogin(),
		Name:          created.GetName(),
		FullName:      created.GetFullName(),
		HTMLURL:       created.GetHTMLURL(),
		CloneURL:      created.GetCloneURL(),
		DefaultBranch: created.GetDefaultBranch(),
	}, nil
}

// UploadFile creates req.Path with one commit
// (PUT /repos/{owner}/{repo}/contents/{path}). The
// content is sent base64 encoded and no blob SHA is
// supplied, so an existing file is a PathConflict.
func (p *Provider) UploadFile(
	ctx context.Context,
	handle forge.RepositoryHandle,
	req forge.FileUploadRequest,
) (forge.FileCommit, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(req.CommitMessage),
		// go-github marshals []byte as base64, which
		// is exactly req.EncodedContent().
		Content: req.Content,
	}

	if handle.DefaultBranch != "" {
		opts.Branch = gh.Ptr(handle.DefaultBranch)
	}

	res, resp, err := p.client.Repositories.CreateFile(
		ctx, handle.Owner, handle.Name, req.Path, opts,
	)
	if err != nil {
		return forge.FileCommit{}, classify(
			forge.OpUploadFile, resp, err,
		)
	}

	return forge.FileCommit{
		Path:      req.Path,
		CommitSHA: res.Commit.GetSHA(),
		BlobSHA:   res.GetContent().GetSHA(),
	}, nil
}

// classify turns a go-github failure into a
// *forge.Error. Rate limit errors are rejections, not
// authentication failures.
func classify(
	op forge.Op,
	resp *gh.Response,
	err error,
) error {
	if resp == nil || resp.Response == nil {
		return forge.NewTransportError(forgeName, op, err)
	}

	body := responseBody(resp, err)

	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
	)

	if errors.As(err, &rateErr) ||
		errors.As(err, &abuseErr) {
		return &forge.Error{
			Forge:      forgeName,
			Kind:       forge.KindRemoteRejected,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        err,
		}
	}

	return forge.NewRemoteError(
		forgeName, op, resp.StatusCode, body, err,
	)
}

// responseBody returns the raw error body. go-github
// re-populates the body after parsing it; when that is
// not possible the parsed error text is used.
func responseBody(resp *gh.Response, err error) string {
	if resp.Body != nil {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			slog.Warn(
				"cannot read response body",
				"error", readErr,
			)
		} else if len(rb) > 0 {
			slog.Debug(
				"github response",
				"status", resp.StatusCode,
				"body", string(rb),
			)

			return string(rb)
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		var sb strings.Builder

		sb.WriteString(ghErr.Message)

		for _, e := range ghErr.Errors {
			sb.WriteString("; ")
			sb.WriteString(e.Message)
		}

		return sb.String()
	}

	return err.Error()
}
