package templating_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repoprov/commitmsg"
	"github.com/byte4ever/repoprov/forge"
	"github.com/byte4ever/repoprov/templating"
)

// helper creates a temporary file with content and
// returns its path.
func writeTemp(
	tb testing.TB,
	dir string,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, name)
	require.NoError(tb, os.MkdirAll(filepath.Dir(pa), 0o750))
	require.NoError(tb, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

func paths(reqs []forge.FileUploadRequest) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Path)
	}

	return out
}

func TestStarter_default_order(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	reqs, err := en.Starter(templating.StarterOptions{
		RepoName:    "demo-app",
		Description: "A demo",
	})
	require.NoError(t, err)

	assert.Equal(
		t,
		[]string{"app.py", "requirements.txt", "README.md"},
		paths(reqs),
	)

	for _, r := range reqs {
		assert.NotEmpty(t, r.Content, r.Path)
		assert.Equal(t, commitmsg.ForFile(r.Path, ""), r.CommitMessage)
	}

	assert.Contains(t, string(reqs[0].Content), `st.title("demo-app")`)
	assert.Contains(t, string(reqs[0].Content), `st.write("A demo")`)
	assert.Contains(t, string(reqs[1].Content), "streamlit")
	assert.Contains(t, string(reqs[2].Content), "# demo-app\n")
	assert.Contains(
		t,
		string(reqs[2].Content),
		"git clone https://github.com/<your-username>/demo-app.git",
	)
}

func TestStarter_description_quoted_for_python(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	reqs, err := en.Starter(templating.StarterOptions{
		RepoName:    "demo",
		Description: "My \"cool\" app\nline2 C:\\tmp",
	})
	require.NoError(t, err)

	app := string(reqs[0].Content)

	assert.Contains(
		t, app, `st.write("My \"cool\" app\nline2 C:\\tmp")`,
	)
	assert.Contains(t, app, `st.title("demo")`)
	assert.Contains(t, app, `file_name="demo" + ".csv"`)
	assert.NotContains(t, app, "\nline2")

	// README keeps the text as written.
	assert.Contains(
		t, string(reqs[2].Content), "My \"cool\" app\nline2",
	)
}

func TestStarter_system_packages(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	reqs, err := en.Starter(templating.StarterOptions{
		RepoName:       "demo-app",
		CloneURL:       "https://github.com/alice/demo-app.git",
		SystemPackages: []string{"ffmpeg", "libsm6"},
	})
	require.NoError(t, err)

	require.Equal(
		t,
		[]string{
			"app.py", "requirements.txt",
			"packages.txt", "README.md",
		},
		paths(reqs),
	)
	assert.Equal(t, "ffmpeg\nlibsm6\n", string(reqs[2].Content))
	assert.Contains(
		t,
		string(reqs[3].Content),
		"git clone https://github.com/alice/demo-app.git",
	)
}

func TestStarter_missing_name(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	reqs, err := en.Starter(templating.StarterOptions{})

	assert.Nil(t, reqs)
	assert.ErrorContains(t, err, "repo name")
}

func TestStarter_dir_override_and_custom_tags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeTemp(t, dir, "app.py", "print('<%repo_name%>')\n")
	writeTemp(t, dir, "extra/notes.txt", "<%owner%> <%unknown%>\n")

	en := templating.Engine{
		StartTag: "<%",
		EndTag:   "%>",
		Dir:      dir,
	}

	reqs, err := en.Starter(templating.StarterOptions{
		RepoName: "demo",
		Files:    []string{"app.py", "extra/notes.txt"},
		Vars:     []string{"owner=team-{repo_name}"},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "print('demo')\n", string(reqs[0].Content))
	assert.Equal(
		t,
		"team-demo <%unknown%>\n",
		string(reqs[1].Content),
	)
}

func TestStarter_var_files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	varFile := writeTemp(
		t, dir, "vars.txt",
		"team platform squad\nnospace\n",
	)
	writeTemp(t, dir, "OWNERS", "{{team}}\n")

	en := templating.Engine{
		Dir:      dir,
		VarFiles: []string{varFile},
	}

	reqs, err := en.Starter(templating.StarterOptions{
		RepoName: "demo",
		Files:    []string{"OWNERS"},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "platform squad\n", string(reqs[0].Content))
}

func TestStarter_missing_var_file(t *testing.T) {
	t.Parallel()

	en := templating.Engine{
		VarFiles: []string{
			filepath.Join(t.TempDir(), "nope.txt"),
		},
	}

	_, err := en.Starter(templating.StarterOptions{
		RepoName: "demo",
	})

	assert.ErrorContains(t, err, "loading variable files")
}

func TestStarter_bad_var(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	_, err := en.Starter(templating.StarterOptions{
		RepoName: "demo",
		Vars:     []string{"novalue"},
	})

	assert.ErrorContains(t, err, "NAME=value")
}

func TestStarter_unknown_template(t *testing.T) {
	t.Parallel()

	en := templating.Engine{Dir: t.TempDir()}

	_, err := en.Starter(templating.StarterOptions{
		RepoName: "demo",
		Files:    []string{"missing.txt"},
	})

	assert.ErrorContains(t, err, "missing.txt")
}

func TestRender_rejects_escaping_names(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	for _, name := range []string{"../etc/passwd", "/etc/passwd", "."} {
		_, err := en.Render(name, nil)
		assert.ErrorContains(t, err, "invalid name", name)
	}
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := templating.WriteFiles(dir, []forge.FileUploadRequest{
		{Path: "app.py", Content: []byte("a")},
		{Path: "docs/README.md", Content: []byte("b")},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "docs", "README.md")) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestLoadVarFiles_later_file_wins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	a := writeTemp(t, dir, "a.txt", "K one\r\nONLY a\n")
	b := writeTemp(t, dir, "b.txt", "K two\n")

	vars, err := templating.LoadVarFiles([]string{a, b})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"K":    "two",
		"ONLY": "a",
	}, vars)
}
