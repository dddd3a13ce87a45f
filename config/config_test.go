package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repoprov/config"
)

func writeFile(
	tb testing.TB,
	dir string,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

func TestLoad_full(t *testing.T) {
	t.Parallel()

	pa := writeFile(t, t.TempDir(), "repoprov.yaml", `
forge:
  type: GitHub
  timeout: 45s
token: ghp_inline
repository:
  name: demo-app
  description: A demo
  private: true
templates:
  dir: ./tpl
  var_files: [stamp.txt]
  vars:
    team: data
    owner: alice
  system_packages: [ffmpeg]
clone:
  dir: /tmp/demo
`)

	cfg, err := config.Load(pa)
	require.NoError(t, err)

	assert.Equal(t, config.ForgeGitHub, cfg.Forge.Type)
	assert.Equal(t, "ghp_inline", cfg.Token)
	assert.Equal(t, config.Repository{
		Name:        "demo-app",
		Description: "A demo",
		Private:     true,
	}, cfg.Repository)
	assert.Equal(t, []string{"ffmpeg"}, cfg.Templates.SystemPackages)
	assert.Equal(t, []string{"stamp.txt"}, cfg.Templates.VarFiles)
	assert.Equal(t, "/tmp/demo", cfg.Clone.Dir)
	assert.Equal(
		t,
		[]string{"owner=alice", "team=data"},
		cfg.TemplateVars(),
	)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
}

func TestLoad_defaults(t *testing.T) {
	t.Parallel()

	pa := writeFile(t, t.TempDir(), "repoprov.yaml", "repository:\n  name: x\n")

	cfg, err := config.Load(pa)
	require.NoError(t, err)

	assert.Equal(t, config.ForgeGitHub, cfg.Forge.Type)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTimeout, d)
}

func TestLoad_missing_file(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.ErrorContains(t, err, "loading config")
}

func TestParse_invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown forge",
			yaml: "forge: {type: svn}",
			want: "unknown forge.type",
		},
		{
			name: "bitbucket without host",
			yaml: "forge: {type: bitbucket, project_key: TM}",
			want: "forge.host",
		},
		{
			name: "bitbucket without project",
			yaml: `forge: {type: bitbucket, host: "https://bb"}`,
			want: "forge.project_key",
		},
		{
			name: "bad timeout",
			yaml: "forge: {timeout: soon}",
			want: "forge.timeout",
		},
		{
			name: "negative timeout",
			yaml: "forge: {timeout: -1s}",
			want: "must be positive",
		},
		{
			name: "not yaml",
			yaml: "forge: [unclosed",
			want: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Parse([]byte(tt.yaml))

			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParse_bitbucket(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(`
forge:
  type: bitbucket
  host: https://bb.example.com
  project_key: TM
  user: admin
`))
	require.NoError(t, err)

	assert.Equal(t, config.Forge{
		Type:       config.ForgeBitbucket,
		Host:       "https://bb.example.com",
		ProjectKey: "TM",
		User:       "admin",
		Timeout:    "30s",
	}, cfg.Forge)
}

//nolint:paralleltest // uses t.Setenv
func TestResolveToken_env(t *testing.T) {
	t.Setenv("REPOPROV_TEST_TOKEN", "ghp_from_env")

	assert.Equal(
		t,
		"ghp_from_env",
		config.ResolveToken("${REPOPROV_TEST_TOKEN}"),
	)
	assert.Equal(
		t,
		"pre-ghp_from_env",
		config.ResolveToken("pre-${REPOPROV_TEST_TOKEN}"),
	)
	assert.Empty(
		t,
		config.ResolveToken("${REPOPROV_TEST_UNSET_TOKEN}"),
	)
}

//nolint:paralleltest // uses t.Setenv
func TestLoad_token_from_env_file(t *testing.T) {
	dir := t.TempDir()
	tokFile := writeFile(t, dir, "token", "  ghp_from_file\n")

	t.Setenv("REPOPROV_TEST_TOKEN_FILE", tokFile)

	pa := writeFile(
		t, dir, "repoprov.yaml",
		"token: ${REPOPROV_TEST_TOKEN_FILE}\n",
	)

	cfg, err := config.Load(pa)
	require.NoError(t, err)
	assert.Equal(t, "ghp_from_file", cfg.Token)
}

func TestResolveToken_plain(t *testing.T) {
	t.Parallel()

	assert.Empty(t, config.ResolveToken(""))
	assert.Equal(t, "ghp_plain_value", config.ResolveToken("ghp_plain_value"))
}

func TestFindIn(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()

	want := writeFile(t, second, "repoprov.yml", "")

	got, err := config.FindInForTest([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	hidden := writeFile(t, first, ".repoprov.yaml", "")

	got, err = config.FindInForTest([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, hidden, got)
}

func TestFindIn_not_found(t *testing.T) {
	t.Parallel()

	_, err := config.FindInForTest([]string{t.TempDir()})

	assert.ErrorIs(t, err, config.ErrNotFound)
}
