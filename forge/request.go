package forge

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks a request rejected locally,
// before any remote call.
var ErrInvalidRequest = errors.New("invalid request")

// RepositoryRequest describes the repository to create.
// Name uniqueness is enforced by the remote service and
// never checked locally.
type RepositoryRequest struct {
	// Name is the repository name. Must be non-empty.
	Name string
	// Description is the repository description.
	Description string
	// Private requests a private repository.
	Private bool
	// OwnerToken is the access token of the account
	// that will own the repository.
	OwnerToken string
	// AutoInit asks the host to create an initial
	// commit. Leave false when uploading a README.md,
	// since the generated one would conflict.
	AutoInit bool
	// DefaultBranch is honoured only by hosts that
	// accept it at creation time.
	DefaultBranch string
}

// Validate checks the local input constraints: a
// non-empty name and a non-empty token. An empty token
// is reported as an Unauthorized forge error.
func (r RepositoryRequest) Validate() error {
	const errCtx = "validating repository request"

	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf(
			"%s: %w: name must be set",
			errCtx, ErrInvalidRequest,
		)
	}

	if r.OwnerToken == "" {
		return &Error{
			Kind: KindUnauthorized,
			Op:   OpAuthenticate,
			Err:  errors.New("access token must be set"),
		}
	}

	return nil
}

// String hides the token so requests can be logged.
func (r RepositoryRequest) String() string {
	return fmt.Sprintf(
		"RepositoryRequest{Name:%q Private:%t}",
		r.Name, r.Private,
	)
}

// FileUploadRequest describes one file to commit.
type FileUploadRequest struct {
	// Path is the repository-relative file path.
	Path string
	// Content is the raw file content.
	Content []byte
	// CommitMessage is the message of the commit
	// created by the upload.
	CommitMessage string
}

// EncodedContent returns the standard base64 encoding
// of Content. It is always derived, never stored.
func (r FileUploadRequest) EncodedContent() string {
	return base64.StdEncoding.EncodeToString(r.Content)
}

// RepositoryHandle identifies and addresses a created
// repository.
type RepositoryHandle struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
}

// FileCommit is what one upload produced. BlobSHA is
// empty when the host does not report it.
type FileCommit struct {
	Path      string `json:"path"`
	CommitSHA string `json:"commit_sha,omitempty"`
	BlobSHA   string `json:"blob_sha,omitempty"`
}

// FullName joins owner and name the way hosts address
// repositories.
func FullName(owner, name string) string {
	return owner + "/" + name
}
