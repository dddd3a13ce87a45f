// Package provision creates a repository on a forge and commits a list
// of files into it, one commit per file, in order.
//
// A run authenticates first, so a bad token fails before anything is
// created. It stops at the first failed upload without rolling back. The
// returned *StepError tells which step failed, which files were already
// committed and whether the repository exists.
package provision
