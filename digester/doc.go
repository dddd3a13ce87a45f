// Package digester computes git blob object ids for file content so an
// upload can be checked against the blob SHA reported by the host.
package digester
