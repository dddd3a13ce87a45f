// Package workspace clones a provisioned repository with go-git and checks
// that the committed files match what was uploaded.
package workspace
