package main

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/repoprov/forge"
	"github.com/byte4ever/repoprov/provision"
)

// report is the outcome printed by the provision
// command.
type report struct {
	Forge      string                  `json:"forge"`
	Repository *forge.RepositoryHandle `json:"repository,omitempty"`
	Commits    []forge.FileCommit      `json:"commits"`
	Clone      *cloneReport            `json:"clone,omitempty"`
	Failure    *failureReport          `json:"failure,omitempty"`
}

type cloneReport struct {
	Dir      string `json:"dir"`
	Head     string `json:"head,omitempty"`
	Verified bool   `json:"verified"`
	// Provisioned lists the files whose commits carry
	// the provisioning trailer, oldest first.
	Provisioned []string `json:"provisioned,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type failureReport struct {
	Step        string `json:"step"`
	Path        string `json:"path,omitempty"`
	Kind        string `json:"kind,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	Message     string `json:"message"`
	RepoCreated bool   `json:"repo_created"`
}

func newReport(
	forgeName string,
	res provision.Result,
	err error,
) *report {
	rep := &report{
		Forge:   forgeName,
		Commits: res.Commits,
	}

	if err == nil {
		handle := res.Handle
		rep.Repository = &handle

		return rep
	}

	fr := &failureReport{Message: err.Error()}

	if se, ok := stepOf(err); ok {
		fr.Step = string(se.Step)
		fr.Path = se.Path
		fr.RepoCreated = se.RepoCreated()
		rep.Commits = se.Uploaded

		if se.RepoCreated() {
			handle := se.Handle
			rep.Repository = &handle
		}
	}

	if kind, ok := forge.KindOf(err); ok {
		fr.Kind = kind.String()
	}

	var fe *forge.Error
	if errors.As(err, &fe) {
		fr.StatusCode = fe.StatusCode
	}

	rep.Failure = fr

	return rep
}

func (r *report) write(w io.Writer, format string) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}

		return nil
	}

	r.writeText(w)

	return nil
}

func (r *report) writeText(w io.Writer) {
	if r.Failure != nil {
		fmt.Fprintf(w, "Provisioning failed at step %q", r.Failure.Step)

		if r.Failure.Path != "" {
			fmt.Fprintf(w, " (%s)", r.Failure.Path)
		}

		fmt.Fprintf(w, ": %s\n", r.Failure.Message)

		if r.Repository != nil {
			fmt.Fprintf(
				w,
				"Repository %s was created and is left in place: %s\n",
				r.Repository.FullName, r.Repository.HTMLURL,
			)
		}

		if len(r.Commits) > 0 {
			fmt.Fprintln(w, "Files already committed:")

			for _, c := range r.Commits {
				fmt.Fprintf(w, "  %s %s\n", c.Path, c.CommitSHA)
			}
		}

		return
	}

	fmt.Fprintf(w, "Repository created: %s\n", r.Repository.FullName)
	fmt.Fprintf(w, "URL:   %s\n", r.Repository.HTMLURL)
	fmt.Fprintf(w, "Clone: %s\n", r.Repository.CloneURL)

	if len(r.Commits) > 0 {
		fmt.Fprintln(w, "Commits:")

		for _, c := range r.Commits {
			fmt.Fprintf(w, "  %s %s\n", c.Path, c.CommitSHA)
		}
	}

	if r.Clone != nil {
		switch {
		case r.Clone.Error != "":
			fmt.Fprintf(w, "Clone failed: %s\n", r.Clone.Error)
		case r.Clone.Verified:
			fmt.Fprintf(
				w, "Cloned into %s at %s (files verified)\n",
				r.Clone.Dir, r.Clone.Head,
			)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Go to https://share.streamlit.io/")
	fmt.Fprintf(w, "  2. Click \"New app\" and select %s\n", r.Repository.FullName)
	fmt.Fprintln(w, "  3. Set the main file path to app.py")
	fmt.Fprintln(w, "  4. Click \"Deploy!\"")
}

// printEvent writes one progress line for ev.
func printEvent(w io.Writer, ev provision.Event, total int) {
	switch ev.State {
	case provision.StateAuthenticated:
		fmt.Fprintln(w, "[ok] authenticated")
	case provision.StateRepoCreated:
		fmt.Fprintf(w, "[ok] created %s\n", ev.Handle.FullName)
	case provision.StateFileUploaded:
		fmt.Fprintf(
			w, "[ok] committed %s (%d/%d)\n",
			ev.Path, ev.Index+1, total,
		)
	case provision.StateComplete:
		fmt.Fprintln(w, "[ok] done")
	case provision.StateFailed:
		fmt.Fprintf(w, "[!!] %v\n", ev.Err)
	}
}
