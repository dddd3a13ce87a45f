// Package config loads repoprov.yaml files with goccy/go-yaml.
//
// Tokens may be written inline, as ${ENV_VAR} references, or as the
// path of a file holding the token. Command-line flags override every
// value read here.
package config
