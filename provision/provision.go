package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/byte4ever/repoprov/digester"
	"github.com/byte4ever/repoprov/forge"
)

// State is the progress of one provisioning run.
type State int

// Provisioning states. Failed is absorbing.
const (
	StateNotStarted State = iota
	StateAuthenticated
	StateRepoCreated
	StateFileUploaded
	StateComplete
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateAuthenticated:
		return "Authenticated"
	case StateRepoCreated:
		return "RepoCreated"
	case StateFileUploaded:
		return "FileUploaded"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step names the operation a StepError failed in.
type Step string

// Provisioning steps, in execution order.
const (
	StepValidate         Step = "validate"
	StepConnect          Step = "connect"
	StepAuthenticate     Step = "authenticate"
	StepCreateRepository Step = "create repository"
	StepUploadFile       Step = "upload file"
)

// errNoFactory is returned when a Provisioner has no
// forge factory.
var errNoFactory = errors.New("forge factory must be set")

// Event reports one state transition.
type Event struct {
	State State
	// Handle is set from StateRepoCreated on.
	Handle forge.RepositoryHandle
	// Path and Commit are set for StateFileUploaded, and
	// Path for a failed upload.
	Path   string
	Commit forge.FileCommit
	// Index is the zero-based position of Path in the
	// upload list.
	Index int
	// Err is set for StateFailed.
	Err error
}

// Observer receives every Event of a run, in order, on
// the calling goroutine.
type Observer func(Event)

// StepError describes a failed run. The repository may
// already exist and some files may already be
// committed; nothing is rolled back.
type StepError struct {
	Step Step
	// Path is the file being uploaded when Step is
	// StepUploadFile.
	Path string
	// Handle is the created repository, zero when
	// creation did not succeed.
	Handle forge.RepositoryHandle
	// Uploaded lists the files committed before the
	// failure, in order.
	Uploaded []forge.FileCommit
	Err      error
}

// Error implements error.
func (e *StepError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf(
			"provisioning repository: %s %s: %v",
			e.Step, e.Path, e.Err,
		)
	}

	return fmt.Sprintf(
		"provisioning repository: %s: %v", e.Step, e.Err,
	)
}

// Unwrap returns the underlying error so errors.Is
// matches the forge error kinds.
func (e *StepError) Unwrap() error {
	return e.Err
}

// RepoCreated reports whether the repository exists
// remotely despite the failure.
func (e *StepError) RepoCreated() bool {
	return e.Handle.FullName != ""
}

// Result is the outcome of a successful run.
type Result struct {
	Handle  forge.RepositoryHandle `json:"repository"`
	Commits []forge.FileCommit     `json:"commits"`
}

// Provisioner creates a repository and commits the
// starter files, one commit per file.
type Provisioner struct {
	// Factory builds the forge client for each run from
	// the request token.
	Factory forge.Factory
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Observer is optional.
	Observer Observer
}

// Provision runs the full sequence and returns the
// repository handle. Any failure is a *StepError.
func (p *Provisioner) Provision(
	ctx context.Context,
	req forge.RepositoryRequest,
	files []forge.FileUploadRequest,
) (forge.RepositoryHandle, error) {
	res, err := p.Run(ctx, req, files)
	if err != nil {
		return forge.RepositoryHandle{}, err
	}

	return res.Handle, nil
}

// Run is Provision also returning the commits
// produced.
//
// Sequence:
//  1. validate req and files locally;
//  2. build a forge for req.OwnerToken;
//  3. authenticate;
//  4. create the repository;
//  5. upload files in order, stopping at the first
//     failure.
func (p *Provisioner) Run(
	ctx context.Context,
	req forge.RepositoryRequest,
	files []forge.FileUploadRequest,
) (Result, error) {
	lg := p.logger().With("repository", req.Name)

	fail := func(se *StepError) (Result, error) {
		lg.Error(
			"provisioning failed",
			"step", string(se.Step),
			"path", se.Path,
			"uploaded", len(se.Uploaded),
			"error", se.Err,
		)
		p.emit(Event{
			State:  StateFailed,
			Handle: se.Handle,
			Path:   se.Path,
			Index:  len(se.Uploaded),
			Err:    se,
		})

		return Result{}, se
	}

	if err := validate(req, files); err != nil {
		return fail(&StepError{Step: StepValidate, Err: err})
	}

	if p.Factory == nil {
		return fail(&StepError{Step: StepConnect, Err: errNoFactory})
	}

	fg, err := p.Factory(req.OwnerToken)
	if err != nil {
		return fail(&StepError{Step: StepConnect, Err: err})
	}

	owner, err := fg.Authenticate(ctx)
	if err != nil {
		return fail(&StepError{Step: StepAuthenticate, Err: err})
	}

	lg.Debug("authenticated", "owner", owner)
	p.emit(Event{State: StateAuthenticated})

	handle, err := fg.CreateRepository(ctx, req)
	if err != nil {
		return fail(&StepError{
			Step: StepCreateRepository,
			Err:  err,
		})
	}

	lg.Info("repository created", "full_name", handle.FullName)
	p.emit(Event{State: StateRepoCreated, Handle: handle})

	commits := make([]forge.FileCommit, 0, len(files))

	for i, file := range files {
		commit, err := fg.UploadFile(ctx, handle, file)
		if err != nil {
			return fail(&StepError{
				Step:     StepUploadFile,
				Path:     file.Path,
				Handle:   handle,
				Uploaded: commits,
				Err:      err,
			})
		}

		if commit.Path == "" {
			commit.Path = file.Path
		}

		if commit.BlobSHA != "" &&
			!digester.Verify(file.Content, commit.BlobSHA) {
			lg.Warn(
				"blob digest mismatch",
				"path", file.Path,
				"want", digester.BlobSHA(file.Content),
				"got", commit.BlobSHA,
			)
		}

		commits = append(commits, commit)

		lg.Info(
			"file committed",
			"path", file.Path,
			"commit", commit.CommitSHA,
		)
		p.emit(Event{
			State:  StateFileUploaded,
			Handle: handle,
			Path:   file.Path,
			Commit: commit,
			Index:  i,
		})
	}

	p.emit(Event{State: StateComplete, Handle: handle})

	return Result{Handle: handle, Commits: commits}, nil
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.Default()
}

func (p *Provisioner) emit(ev Event) {
	if p.Observer != nil {
		p.Observer(ev)
	}
}

// validate checks the request and rejects files with an
// empty path.
func validate(
	req forge.RepositoryRequest,
	files []forge.FileUploadRequest,
) error {
	if err := req.Validate(); err != nil {
		return err
	}

	for i, f := range files {
		if f.Path == "" {
			return fmt.Errorf(
				"%w: file %d has an empty path",
				forge.ErrInvalidRequest, i,
			)
		}
	}

	return nil
}
