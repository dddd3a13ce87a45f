package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/byte4ever/repoprov/commitmsg"
	"github.com/byte4ever/repoprov/digester"
	"github.com/byte4ever/repoprov/forge"
)

// tokenUser is the basic-auth user paired with an API
// token. GitHub requires a non-empty value; GitLab and
// Bitbucket ignore it.
const tokenUser = "x-access-token"

// ErrFileMismatch is returned by Verify when a file in
// the clone differs from what was uploaded.
var ErrFileMismatch = errors.New("file mismatch")

// Options describes a clone.
type Options struct {
	// URL is the repository clone URL.
	URL string
	// Dir is the destination. It must not exist or be
	// empty.
	Dir string
	// Token authenticates HTTP(S) URLs. Ignored for
	// local paths.
	Token string
	// Branch restricts the clone to one branch. Empty
	// means the remote HEAD.
	Branch string
}

// Repo is a local clone of a provisioned repository.
// Create with Clone, and call Clean when done.
type Repo struct {
	// Dir is the filesystem location of the clone.
	Dir string
	// Head is the commit checked out.
	Head string

	repo *git.Repository
}

// Clone checks out opts.URL into opts.Dir.
func Clone(ctx context.Context, opts Options) (*Repo, error) {
	const errCtx = "cloning repository"

	if opts.URL == "" || opts.Dir == "" {
		return nil, fmt.Errorf(
			"%s: url and dir must be set", errCtx,
		)
	}

	co := &git.CloneOptions{
		URL:          opts.URL,
		Auth:         authFor(opts.URL, opts.Token),
		SingleBranch: opts.Branch != "",
		Tags:         git.NoTags,
	}

	if opts.Branch != "" {
		co.ReferenceName = plumbing.NewBranchReferenceName(
			opts.Branch,
		)
	}

	rp, err := git.PlainCloneContext(ctx, opts.Dir, false, co)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, opts.URL, err,
		)
	}

	head, err := rp.Head()
	if err != nil {
		return nil, fmt.Errorf(
			"%s: resolve HEAD: %w", errCtx, err,
		)
	}

	slog.Info(
		"cloned repository",
		"dir", opts.Dir,
		"head", head.Hash().String(),
	)

	return &Repo{
		Dir:  opts.Dir,
		Head: head.Hash().String(),
		repo: rp,
	}, nil
}

// Clean removes the local clone directory.
func (r *Repo) Clean() error {
	const errCtx = "cleaning repository"

	if err := os.RemoveAll(r.Dir); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// BlobSHA returns the blob id of path in the HEAD tree.
func (r *Repo) BlobSHA(path string) (string, error) {
	const errCtx = "reading blob id"

	tree, err := r.headTree()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	f, err := tree.File(path)
	if err != nil {
		return "", fmt.Errorf(
			"%s: %s: %w", errCtx, path, err,
		)
	}

	return f.Hash.String(), nil
}

// Verify checks that every uploaded file is present in
// the HEAD tree with the uploaded content.
func (r *Repo) Verify(files []forge.FileUploadRequest) error {
	const errCtx = "verifying clone"

	for _, f := range files {
		sha, err := r.BlobSHA(f.Path)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if !digester.Verify(f.Content, sha) {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, f.Path, ErrFileMismatch,
			)
		}
	}

	return nil
}

// ProvisionedPaths returns the file paths named by the
// provisioning trailers of the commits reachable from
// HEAD, oldest first.
func (r *Repo) ProvisionedPaths() ([]string, error) {
	const errCtx = "reading provisioning history"

	iter, err := r.repo.Log(&git.LogOptions{
		From: plumbing.NewHash(r.Head),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var paths []string

	err = iter.ForEach(func(c *object.Commit) error {
		if p := commitmsg.ExtractPath(c.Message); p != "" {
			paths = append(paths, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slices.Reverse(paths)

	return paths, nil
}

func (r *Repo) headTree() (*object.Tree, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, err
	}

	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}

	return commit.Tree()
}

// authFor returns basic auth for HTTP(S) endpoints
// when a token is given, nil otherwise.
func authFor(url string, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}

	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil
	}

	if !strings.HasPrefix(ep.Protocol, "http") {
		return nil
	}

	return &http.BasicAuth{
		Username: tokenUser,
		Password: token,
	}
}
