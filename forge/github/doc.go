// Package github implements a forge.Forge that creates repositories and
// commits files on GitHub (cloud or enterprise) through the REST API.
// Configure with a Config carrying the personal access token. Set
// EnterpriseHost for GitHub Enterprise installations.
package github
