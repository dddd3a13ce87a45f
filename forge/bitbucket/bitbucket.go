package bitbucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/repoprov/forge"
)

const (
	forgeName = "bitbucket"

	// DefaultTimeout bounds every API call when Config
	// leaves Timeout unset.
	DefaultTimeout = 30 * time.Second

	defaultBranch = "main"
	apiPrefix     = "/rest/api/1.0"
)

// Config holds the settings needed to create a
// Bitbucket Server forge provider.
type Config struct {
	// BaseURL is the Bitbucket Server root URL
	// (e.g. "https://bb.example.com").
	BaseURL string
	// ProjectKey is the project that receives new
	// repositories (e.g. "PROJ").
	ProjectKey string
	// User enables basic auth with AccessToken as the
	// password. Leave empty to send a bearer token.
	User string
	// AccessToken is an HTTP access token or password.
	AccessToken string
	// Timeout bounds each HTTP call. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// Provider creates repositories and files on Bitbucket
// Server.
//
// Pattern: Strategy -- implements forge.Forge.
type Provider struct {
	baseURL    string
	projectKey string
	user       string
	token      string
	client     *http.Client
}

type project struct {
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

type link struct {
	Href string `json:"href"`
	Name string `json:"name,omitempty"`
}

type links struct {
	Clone []link `json:"clone,omitempty"`
	Self  []link `json:"self,omitempty"`
}

type repository struct {
	Slug          string  `json:"slug,omitempty"`
	Name          string  `json:"name,omitempty"`
	ScmID         string  `json:"scmId,omitempty"`
	Description   string  `json:"description,omitempty"`
	Public        bool    `json:"public"`
	Forkable      bool    `json:"forkable"`
	DefaultBranch string  `json:"defaultBranch,omitempty"`
	Project       project `json:"project"`
	Links         links   `json:"links"`
}

type commit struct {
	ID        string `json:"id"`
	DisplayID string `json:"displayId"`
}

// NewProvider validates cfg and returns a Provider
// bound to its access token.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating bitbucket provider"

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf(
			"%s: base url must be set",
			errCtx,
		)
	}

	if cfg.ProjectKey == "" {
		return nil, fmt.Errorf(
			"%s: project key must be set", errCtx,
		)
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		projectKey: cfg.ProjectKey,
		user:       cfg.User,
		token:      cfg.AccessToken,
		client:     &http.Client{Timeout: timeout},
	}, nil
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

// Authenticate checks that the token can read the
// target project and returns the project key, which
// owns the repositories created by this provider.
func (p *Provider) Authenticate(
	ctx context.Context,
) (string, error) {
	var prj project

	if err := p.call(
		ctx,
		forge.OpAuthenticate,
		http.MethodGet,
		p.projectPath(),
		nil, "",
		&prj,
	); err != nil {
		return "", err
	}

	return prj.Key, nil
}

// CreateRepository creates req.Name in the configured
// project. Bitbucket answers 409 when the name is
// taken.
func (p *Provider) CreateRepository(
	ctx context.Context,
	req forge.RepositoryRequest,
) (forge.RepositoryHandle, error) {
	const errCtx = "creating bitbucket repository"

	branch := req.DefaultBranch
	if branch == "" {
		branch = defaultBranch
	}

	payload, err := json.Marshal(&repository{
		Name:          req.Name,
		ScmID:         "git",
		Description:   req.Description,
		Public:        !req.Private,
		Forkable:      true,
		DefaultBranch: branch,
	})
	if err != nil {
		return forge.RepositoryHandle{}, fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	var created repository

	if err := p.call(
		ctx,
		forge.OpCreateRepository,
		http.MethodPost,
		p.projectPath()+"/repos",
		bytes.NewReader(payload),
		"application/json; charset=utf-8",
		&created,
	); err != nil {
		return forge.RepositoryHandle{}, err
	}

	slog.Info(
		"created repository",
		"project", created.Project.Key,
		"slug", created.Slug,
	)

	return forge.RepositoryHandle{
		Owner:         created.Project.Key,
		Name:          created.Slug,
		FullName:      forge.FullName(created.Project.Key, created.Slug),
		HTMLURL:       firstHref(created.Links.Self, ""),
		CloneURL:      firstHref(created.Links.Clone, "http"),
		DefaultBranch: branch,
	}, nil
}

// UploadFile commits req.Path through the browse
// endpoint as a multipart form. No source commit is
// sent, so an existing file is a PathConflict.
func (p *Provider) UploadFile(
	ctx context.Context,
	handle forge.RepositoryHandle,
	req forge.FileUploadRequest,
) (forge.FileCommit, error) {
	const errCtx = "uploading bitbucket file"

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("content", req.Path)
	if err != nil {
		return forge.FileCommit{}, fmt.Errorf(
			"%s: build form: %w", errCtx, err,
		)
	}

	if _, err := fw.Write(req.Content); err != nil {
		return forge.FileCommit{}, fmt.Errorf(
			"%s: build form: %w", errCtx, err,
		)
	}

	fields := map[string]string{
		"message": req.CommitMessage,
		"branch":  handle.DefaultBranch,
	}

	for _, key := range []string{"message", "branch"} {
		if fields[key] == "" {
			continue
		}

		if err := mw.WriteField(key, fields[key]); err != nil {
			return forge.FileCommit{}, fmt.Errorf(
				"%s: build form: %w", errCtx, err,
			)
		}
	}

	if err := mw.Close(); err != nil {
		return forge.FileCommit{}, fmt.Errorf(
			"%s: build form: %w", errCtx, err,
		)
	}

	var created commit

	if err := p.call(
		ctx,
		forge.OpUploadFile,
		http.MethodPut,
		p.projectPath()+"/repos/"+
			url.PathEscape(handle.Name)+
			"/browse/"+escapePath(req.Path),
		&buf,
		mw.FormDataContentType(),
		&created,
	); err != nil {
		return forge.FileCommit{}, err
	}

	return forge.FileCommit{
		Path:      req.Path,
		CommitSHA: created.ID,
	}, nil
}

func (p *Provider) projectPath() string {
	return apiPrefix + "/projects/" +
		url.PathEscape(p.projectKey)
}

// call sends one authenticated request and decodes a
// 2xx JSON answer into out. Any other answer, or a 2xx
// body that is not JSON, becomes a *forge.Error carrying
// the verbatim body.
func (p *Provider) call(
	ctx context.Context,
	op forge.Op,
	method string,
	path string,
	body io.Reader,
	contentType string,
	out any,
) error {
	const errCtx = "calling bitbucket"

	req, err := http.NewRequestWithContext(
		ctx, method, p.baseURL+path, body,
	)
	if err != nil {
		return fmt.Errorf(
			"%s: build request: %w", errCtx, err,
		)
	}

	req.Header.Set("Accept", "application/json")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if p.user != "" {
		req.SetBasicAuth(p.user, p.token)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return forge.NewTransportError(forgeName, op, err)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return forge.NewTransportError(forgeName, op, err)
	}

	slog.Debug(
		"bitbucket response",
		"status", resp.Status,
		"body", string(rb),
	)

	if resp.StatusCode < http.StatusOK ||
		resp.StatusCode >= http.StatusMultipleChoices {
		return forge.NewRemoteError(
			forgeName, op, resp.StatusCode, string(rb), nil,
		)
	}

	if out == nil || len(rb) == 0 {
		return nil
	}

	if err := json.Unmarshal(rb, out); err != nil {
		return &forge.Error{
			Forge:      forgeName,
			Kind:       forge.KindRemoteRejected,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(rb),
			Err: fmt.Errorf(
				"%s: decode response: %w", errCtx, err,
			),
		}
	}

	return nil
}

// firstHref returns the first link named name, or the
// first link at all when name is empty.
func firstHref(ls []link, name string) string {
	for _, l := range ls {
		if name == "" || l.Name == name {
			return l.Href
		}
	}

	return ""
}

// escapePath escapes each segment of a slash separated
// repository path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}
