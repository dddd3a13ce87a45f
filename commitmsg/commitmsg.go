package commitmsg

import (
	"path"
	"strings"
)

const (
	toolTrailer = "Provisioned-By: repoprov"
	pathTrailer = "Provisioned-Path: "
)

// subjects maps well-known starter files to the subject
// line of their commit.
var subjects = map[string]string{
	"app.py":           "Add application entry point",
	"requirements.txt": "Add requirements",
	"packages.txt":     "Add system packages",
	"README.md":        "Add README",
}

// Subject returns the subject line for a file path.
// Unknown files get "Add <path>".
func Subject(filePath string) string {
	if s, ok := subjects[path.Base(filePath)]; ok {
		return s
	}

	return "Add " + filePath
}

// ForFile produces the full commit message for
// filePath: the subject (or override when non-empty),
// a blank line and the provisioning trailers.
func ForFile(filePath string, override string) string {
	subject := override
	if subject == "" {
		subject = Subject(filePath)
	}

	var sb strings.Builder

	sb.WriteString(subject)
	sb.WriteString("\n\n")
	sb.WriteString(toolTrailer)
	sb.WriteByte('\n')
	sb.WriteString(pathTrailer)
	sb.WriteString(filePath)
	sb.WriteByte('\n')

	return sb.String()
}

// IsProvisioned reports whether msg was produced by
// ForFile.
func IsProvisioned(msg string) bool {
	for _, line := range strings.Split(msg, "\n") {
		if strings.TrimSpace(line) == toolTrailer {
			return true
		}
	}

	return false
}

// ExtractPath returns the file path recorded in a
// provisioning commit message, or "" when msg carries
// no path trailer.
func ExtractPath(msg string) string {
	if !IsProvisioned(msg) {
		return ""
	}

	for _, line := range strings.Split(msg, "\n") {
		if p, ok := strings.CutPrefix(
			strings.TrimSpace(line), pathTrailer,
		); ok {
			return p
		}
	}

	return ""
}
