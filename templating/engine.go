package templating

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/repoprov/commitmsg"
	"github.com/byte4ever/repoprov/forge"
)

//go:embed starter
var starterFS embed.FS

// Starter file names, in upload order.
const (
	AppFile          = "app.py"
	RequirementsFile = "requirements.txt"
	PackagesFile     = "packages.txt"
	ReadmeFile       = "README.md"
)

// Engine expands starter-file templates using variable
// files and explicit variables.
type Engine struct {
	StartTag string
	EndTag   string
	// Dir holds template overrides. A file in Dir wins
	// over the built-in template of the same name.
	Dir string
	// VarFiles are "KEY VALUE" files loaded as the base
	// variable set.
	VarFiles []string
}

// StarterOptions describes the starter set to render.
type StarterOptions struct {
	// RepoName fills {{repo_name}}, and {{repo_name_py}}
	// as a quoted Python string. Required.
	RepoName string
	// Description fills {{description}}, and
	// {{description_py}} as a quoted Python string.
	Description string
	// CloneURL fills {{clone_url}}. Defaults to a
	// github.com placeholder URL.
	CloneURL string
	// SystemPackages adds packages.txt listing one
	// package per line when non-empty.
	SystemPackages []string
	// Files replaces the default file list. Names are
	// looked up in Dir, then in the built-in set.
	Files []string
	// Vars are NAME=VALUE pairs overriding every other
	// variable.
	Vars []string
}

// DefaultFiles returns the default upload order. The
// system packages file is included only when packages
// are requested.
func DefaultFiles(withPackages bool) []string {
	if withPackages {
		return []string{
			AppFile, RequirementsFile, PackagesFile, ReadmeFile,
		}
	}

	return []string{AppFile, RequirementsFile, ReadmeFile}
}

// Starter renders the starter set into upload requests,
// in order, each with its provisioning commit message.
//
// Variable precedence, lowest first:
//  1. lines of VarFiles;
//  2. repo_name, description, clone_url and
//     system_packages from opts;
//  3. opts.Vars, whose values may reference the two
//     layers below with single-brace tags.
func (en *Engine) Starter(
	opts StarterOptions,
) ([]forge.FileUploadRequest, error) {
	const errCtx = "rendering starter files"

	if opts.RepoName == "" {
		return nil, fmt.Errorf(
			"%s: repo name must be set", errCtx,
		)
	}

	ctx, err := en.context(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	files := opts.Files
	if len(files) == 0 {
		files = DefaultFiles(len(opts.SystemPackages) > 0)
	}

	reqs := make([]forge.FileUploadRequest, 0, len(files))

	for _, name := range files {
		content, err := en.Render(name, ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		reqs = append(reqs, forge.FileUploadRequest{
			Path:          name,
			Content:       content,
			CommitMessage: commitmsg.ForFile(name, ""),
		})
	}

	return reqs, nil
}

// Render expands the template called name against ctx.
// Unknown tags are preserved verbatim.
func (en *Engine) Render(
	name string,
	ctx map[string]interface{},
) ([]byte, error) {
	const errCtx = "rendering template"

	tpl, err := en.readTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	startTag, endTag := en.tags()

	out := fasttemplate.ExecuteStringStd(
		string(tpl), startTag, endTag, ctx,
	)

	return []byte(out), nil
}

// WriteFiles writes rendered requests under dir,
// creating parent directories as needed.
func WriteFiles(
	dir string,
	reqs []forge.FileUploadRequest,
) error {
	const errCtx = "writing starter files"

	for _, req := range reqs {
		pa := filepath.Join(dir, filepath.FromSlash(req.Path))

		if err := os.MkdirAll(
			filepath.Dir(pa), 0o755,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		//nolint:gosec // generated sources are world readable
		if err := os.WriteFile(
			pa, req.Content, 0o644,
		); err != nil {
			return fmt.Errorf(
				"%s: %s: %w", errCtx, req.Path, err,
			)
		}
	}

	return nil
}

// tags returns the configured start/end tags, falling
// back to double-brace defaults.
func (en *Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = "{{"
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = "}}"
	}

	return startTag, endTag
}

// context builds the variable map for opts.
func (en *Engine) context(
	opts StarterOptions,
) (map[string]interface{}, error) {
	ctx, err := LoadVarFiles(en.VarFiles)
	if err != nil {
		return nil, err
	}

	cloneURL := opts.CloneURL
	if cloneURL == "" {
		cloneURL = "https://github.com/<your-username>/" +
			opts.RepoName + ".git"
	}

	ctx["repo_name"] = opts.RepoName
	ctx["description"] = opts.Description
	// The _py variants are Python string literals; every
	// escape strconv.Quote emits is also a Python escape.
	ctx["repo_name_py"] = strconv.Quote(opts.RepoName)
	ctx["description_py"] = strconv.Quote(opts.Description)
	ctx["clone_url"] = cloneURL
	ctx["system_packages"] = strings.Join(
		opts.SystemPackages, "\n",
	)

	if err := resolveVars(opts.Vars, ctx); err != nil {
		return nil, err
	}

	return ctx, nil
}

// LoadVarFiles reads "KEY VALUE" files and merges them
// into a single map. The first space is the delimiter;
// lines without one are skipped.
func LoadVarFiles(
	files []string,
) (map[string]interface{}, error) {
	const errCtx = "loading variable files"

	vars := make(map[string]interface{})

	for _, vf := range files {
		content, err := os.ReadFile(vf) //nolint:gosec // paths from configuration
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		for _, line := range strings.Split(
			string(content), "\n",
		) {
			parts := strings.SplitN(
				strings.TrimRight(line, "\r"), " ", 2,
			)
			if len(parts) == 2 {
				vars[parts[0]] = parts[1]
			}
		}
	}

	return vars, nil
}

// resolveVars processes NAME=VALUE pairs. Each value is
// expanded against ctx using single-brace tags, then
// stored as both "NAME" and "variables.NAME".
func resolveVars(
	vars []string,
	ctx map[string]interface{},
) error {
	const errCtx = "resolving variables"

	base := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		base[k] = v
	}

	for _, vr := range vars {
		parts := strings.SplitN(vr, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf(
				"%s: variable must be NAME=value, got %s",
				errCtx, vr,
			)
		}

		val := fasttemplate.ExecuteStringStd(
			parts[1], "{", "}", base,
		)

		ctx[parts[0]] = val
		ctx["variables."+parts[0]] = val
	}

	return nil
}

// readTemplate returns the override in Dir when present,
// the built-in template otherwise.
func (en *Engine) readTemplate(name string) ([]byte, error) {
	const errCtx = "reading template"

	clean := filepath.ToSlash(filepath.Clean(name))
	if clean == "." || strings.HasPrefix(clean, "../") ||
		filepath.IsAbs(name) {
		return nil, fmt.Errorf(
			"%s: invalid name %q", errCtx, name,
		)
	}

	if en.Dir != "" {
		content, err := os.ReadFile( //nolint:gosec // name is cleaned above
			filepath.Join(en.Dir, filepath.FromSlash(clean)),
		)
		if err == nil {
			return content, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	}

	content, err := starterFS.ReadFile("starter/" + clean)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, name, err,
		)
	}

	return content, nil
}
