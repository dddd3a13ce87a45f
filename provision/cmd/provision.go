package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/repoprov/config"
	"github.com/byte4ever/repoprov/forge"
	"github.com/byte4ever/repoprov/provision"
	"github.com/byte4ever/repoprov/workspace"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func newProvisionCmd(a *app) *cobra.Command {
	st := &settings{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a repository and commit the starter files",
		Example: `  repoprov provision --name demo-app --description "My app"
  repoprov provision --name demo-app --forge gitlab --private
  GITHUB_TOKEN=... repoprov provision --name demo-app --clone-dir ./demo-app`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runProvision(cmd, st)
		},
	}

	st.bindTemplateFlags(cmd)

	fl := cmd.Flags()
	fl.BoolVar(&st.private, "private", false, "Create a private repository")
	fl.BoolVar(
		&st.autoInit, "auto-init", false,
		"Let the host create an initial commit (conflicts with README.md)",
	)
	fl.StringVarP(
		&st.token, "token", "t", "",
		"Access token (default: $REPOPROV_TOKEN, then the host token variable)",
	)
	fl.StringVar(
		&st.forgeType, "forge", config.ForgeGitHub,
		"Hosting service: github, gitlab or bitbucket",
	)
	fl.StringVar(
		&st.host, "host", "",
		"Host URL or GitHub Enterprise hostname",
	)
	fl.StringVar(
		&st.projectKey, "project-key", "",
		"Bitbucket project receiving the repository",
	)
	fl.StringVar(
		&st.user, "user", "",
		"Bitbucket user for basic auth",
	)
	fl.StringVar(
		&st.timeout, "timeout", config.DefaultTimeout.String(),
		"Timeout of each API call",
	)
	fl.StringVar(
		&st.cloneDir, "clone-dir", "",
		"Clone the new repository here and verify its files",
	)
	fl.StringVarP(
		&st.output, "output", "o", outputText,
		"Report format: text or json",
	)

	return cmd
}

func (a *app) runProvision(cmd *cobra.Command, st *settings) error {
	const errCtx = "provisioning"

	fromFlag := st.token != ""

	if err := st.load(cmd); err != nil {
		return err
	}

	if !fromFlag {
		if tok := a.envToken(st.forgeType); tok != "" {
			st.token = tok
		}
	}

	if st.output != outputText && st.output != outputJSON {
		return fmt.Errorf(
			"%s: unknown output format %q", errCtx, st.output,
		)
	}

	timeout, err := (&config.Config{
		Forge: config.Forge{Timeout: st.timeout},
	}).TimeoutDuration()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	factory, err := newFactory(forgeSettings{
		kind:       st.forgeType,
		host:       st.host,
		projectKey: st.projectKey,
		user:       st.user,
		timeout:    timeout,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	files, err := st.engine().Starter(st.starterOptions())
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var progress func(provision.Event)
	if st.output == outputText {
		progress = func(ev provision.Event) {
			printEvent(cmd.ErrOrStderr(), ev, len(files))
		}
	}

	pv := &provision.Provisioner{
		Factory:  factory,
		Logger:   slog.Default(),
		Observer: progress,
	}

	res, runErr := pv.Run(
		cmd.Context(),
		forge.RepositoryRequest{
			Name:        st.name,
			Description: st.description,
			Private:     st.private,
			OwnerToken:  st.token,
			AutoInit:    st.autoInit,
		},
		files,
	)

	rep := newReport(st.forgeType, res, runErr)

	if runErr == nil && st.cloneDir != "" {
		rep.Clone = cloneAndVerify(cmd, st, res, files)
	}

	if err := rep.write(cmd.OutOrStdout(), st.output); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if runErr != nil {
		return runErr
	}

	if rep.Clone != nil && rep.Clone.Error != "" {
		return fmt.Errorf(
			"%s: clone: %s", errCtx, rep.Clone.Error,
		)
	}

	return nil
}

// cloneAndVerify clones the new repository into
// st.cloneDir and checks the committed files.
func cloneAndVerify(
	cmd *cobra.Command,
	st *settings,
	res provision.Result,
	files []forge.FileUploadRequest,
) *cloneReport {
	cr := &cloneReport{Dir: st.cloneDir}

	rp, err := workspace.Clone(cmd.Context(), workspace.Options{
		URL:    res.Handle.CloneURL,
		Dir:    st.cloneDir,
		Token:  st.token,
		Branch: res.Handle.DefaultBranch,
	})
	if err != nil {
		cr.Error = err.Error()

		return cr
	}

	cr.Head = rp.Head

	if err := rp.Verify(files); err != nil {
		cr.Error = err.Error()

		return cr
	}

	cr.Verified = true

	if cr.Provisioned, err = rp.ProvisionedPaths(); err != nil {
		slog.Warn("reading clone history", "error", err)
	}

	return cr
}

// envToken returns the first non-empty token variable
// for kind.
func (a *app) envToken(kind string) string {
	for _, name := range tokenEnv(strings.ToLower(kind)) {
		if v := a.getenv(name); v != "" {
			return v
		}
	}

	return ""
}

// stepOf returns the failed step of err, if any.
func stepOf(err error) (*provision.StepError, bool) {
	var se *provision.StepError
	if errors.As(err, &se) {
		return se, true
	}

	return nil, false
}
