package forge

import (
	"context"
	"errors"
)

// Pattern: Strategy -- swap hosting platform without
// changing the provisioning sequence.

// Forge creates repositories and commits files on a
// source-control hosting platform. One Forge value is
// bound to one access token.
type Forge interface {
	// Authenticate resolves the login of the account
	// owning the token without creating anything.
	Authenticate(ctx context.Context) (string, error)

	// CreateRepository creates a new repository in the
	// token owner's namespace.
	CreateRepository(
		ctx context.Context,
		req RepositoryRequest,
	) (RepositoryHandle, error)

	// UploadFile creates one file at req.Path on the
	// default branch of handle, producing one commit.
	UploadFile(
		ctx context.Context,
		handle RepositoryHandle,
		req FileUploadRequest,
	) (FileCommit, error)
}

// Factory builds a Forge bound to token. It is called
// once per provisioning run so the token is never kept
// beyond it.
type Factory func(token string) (Forge, error)

// errNotImplemented is returned by Funcs for a nil
// field.
var errNotImplemented = errors.New(
	"forge operation not implemented",
)

// Funcs adapts plain functions to the Forge interface.
// A nil field makes the matching method fail.
type Funcs struct {
	AuthenticateFunc func(
		ctx context.Context,
	) (string, error)

	CreateRepositoryFunc func(
		ctx context.Context,
		req RepositoryRequest,
	) (RepositoryHandle, error)

	UploadFileFunc func(
		ctx context.Context,
		handle RepositoryHandle,
		req FileUploadRequest,
	) (FileCommit, error)
}

// Authenticate delegates to AuthenticateFunc.
func (f Funcs) Authenticate(
	ctx context.Context,
) (string, error) {
	if f.AuthenticateFunc == nil {
		return "", errNotImplemented
	}

	return f.AuthenticateFunc(ctx)
}

// CreateRepository delegates to CreateRepositoryFunc.
func (f Funcs) CreateRepository(
	ctx context.Context,
	req RepositoryRequest,
) (RepositoryHandle, error) {
	if f.CreateRepositoryFunc == nil {
		return RepositoryHandle{}, errNotImplemented
	}

	return f.CreateRepositoryFunc(ctx, req)
}

// UploadFile delegates to UploadFileFunc. An empty
// commit message is replaced with "Add <path>".
func (f Funcs) UploadFile(
	ctx context.Context,
	handle RepositoryHandle,
	req FileUploadRequest,
) (FileCommit, error) {
	if f.UploadFileFunc == nil {
		return FileCommit{}, errNotImplemented
	}

	if req.CommitMessage == "" {
		req.CommitMessage = "Add " + req.Path
	}

	return f.UploadFileFunc(ctx, handle, req)
}
