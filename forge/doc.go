// Package forge defines the contract between the repository provisioner
// and a source-control hosting platform (a "forge"), along with the
// request, handle and error types shared by every implementation.
//
// A Forge is built per access token through a Factory, so credentials
// never outlive the provisioning call that supplied them. Implementations
// exist for GitHub, GitLab and Bitbucket Server in sub-packages. Funcs is
// a convenience adapter that lets plain functions satisfy the interface.
//
// Remote failures are reported as *Error values whose Kind is matched with
// errors.Is against ErrUnauthorized, ErrAlreadyExists, ErrPathConflict,
// ErrRemoteRejected and ErrTransport.
package forge
