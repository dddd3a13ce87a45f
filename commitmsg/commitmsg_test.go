package commitmsg_test

import (
	"strings"
	"testing"

	"github.com/byte4ever/repoprov/commitmsg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject_known_files(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"app.py", "Add application entry point"},
		{"requirements.txt", "Add requirements"},
		{"packages.txt", "Add system packages"},
		{"README.md", "Add README"},
		{"docs/README.md", "Add README"},
		{".streamlit/config.toml", "Add .streamlit/config.toml"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, commitmsg.Subject(tt.path), tt.path)
	}
}

func TestForFile_produces_trailers(t *testing.T) {
	t.Parallel()

	msg := commitmsg.ForFile("app.py", "")

	require.True(t, strings.HasPrefix(msg, "Add application entry point\n\n"))
	assert.Contains(t, msg, "Provisioned-By: repoprov")
	assert.Contains(t, msg, "Provisioned-Path: app.py")
}

func TestForFile_override_subject(t *testing.T) {
	t.Parallel()

	msg := commitmsg.ForFile("app.py", "Add YouTube live app")

	assert.True(t, strings.HasPrefix(msg, "Add YouTube live app\n"))
}

func TestExtractPath_roundtrip(t *testing.T) {
	t.Parallel()

	msg := commitmsg.ForFile("requirements.txt", "")

	assert.True(t, commitmsg.IsProvisioned(msg))
	assert.Equal(t, "requirements.txt", commitmsg.ExtractPath(msg))
}

func TestExtractPath_regular_commit(t *testing.T) {
	t.Parallel()

	msg := "Fix typo\n\nProvisioned-Path: app.py\n"

	assert.False(t, commitmsg.IsProvisioned(msg))
	assert.Empty(t, commitmsg.ExtractPath(msg))
}
