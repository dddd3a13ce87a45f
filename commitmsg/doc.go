// Package commitmsg generates and parses the commit messages of
// provisioning uploads. Each message carries a subject line followed by
// trailer lines naming the tool and the file the commit introduced, so a
// provisioned commit can be recognised later in the repository history.
package commitmsg
