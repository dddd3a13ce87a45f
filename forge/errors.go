package forge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a forge failure.
type Kind int

// Failure kinds. All of them are terminal for the
// current provisioning run.
const (
	KindRemoteRejected Kind = iota
	KindUnauthorized
	KindAlreadyExists
	KindPathConflict
	KindTransport
)

// Sentinels matched by errors.Is against an *Error.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrAlreadyExists  = errors.New("repository already exists")
	ErrPathConflict   = errors.New("file already exists")
	ErrRemoteRejected = errors.New("rejected by remote")
	ErrTransport      = errors.New("transport failure")
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindPathConflict:
		return "PathConflict"
	case KindTransport:
		return "Transport"
	default:
		return "RemoteRejected"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindAlreadyExists:
		return ErrAlreadyExists
	case KindPathConflict:
		return ErrPathConflict
	case KindTransport:
		return ErrTransport
	default:
		return ErrRemoteRejected
	}
}

// Op names the forge call that failed.
type Op string

// Forge operations.
const (
	OpAuthenticate     Op = "authenticate"
	OpCreateRepository Op = "create repository"
	OpUploadFile       Op = "upload file"
)

// Error is a classified forge failure. StatusCode and
// Body are zero for transport failures.
type Error struct {
	// Forge names the platform ("github", "gitlab"...).
	Forge string
	// Kind is the failure class.
	Kind Kind
	// Op is the call that failed.
	Op Op
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Body is the raw response body, kept verbatim for
	// diagnosis.
	Body string
	// Err is the underlying client error, if any.
	Err error
}

// Error renders kind, operation, status and body.
func (e *Error) Error() string {
	var sb strings.Builder

	if e.Forge != "" {
		sb.WriteString(e.Forge)
		sb.WriteString(": ")
	}

	sb.WriteString(string(e.Op))
	sb.WriteString(": ")
	sb.WriteString(e.Kind.String())

	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}

	if e.Body != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Body)
	} else if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying client error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewRemoteError classifies a non-2xx response of op.
func NewRemoteError(
	forgeName string,
	op Op,
	status int,
	body string,
	err error,
) *Error {
	return &Error{
		Forge:      forgeName,
		Kind:       Classify(op, status, body),
		Op:         op,
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
}

// NewTransportError wraps a failure that produced no
// HTTP response.
func NewTransportError(
	forgeName string,
	op Op,
	err error,
) *Error {
	return &Error{
		Forge: forgeName,
		Kind:  KindTransport,
		Op:    op,
		Err:   err,
	}
}

// KindOf returns the kind of err, and false when err
// carries no *Error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if !errors.As(err, &fe) {
		return KindRemoteRejected, false
	}

	return fe.Kind, true
}

// Classify maps an HTTP status and body of op to a
// Kind:
//   - 429, or 403 mentioning a rate limit: RemoteRejected
//   - 401 and other 403: Unauthorized
//   - 409, or 400/422 reporting a name collision:
//     AlreadyExists on create, PathConflict on upload
//   - anything else: RemoteRejected
func Classify(op Op, status int, body string) Kind {
	lower := strings.ToLower(body)

	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusForbidden &&
			isRateLimitMessage(lower):
		return KindRemoteRejected

	case status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		return KindUnauthorized

	case isCollision(status, lower):
		switch op {
		case OpCreateRepository:
			return KindAlreadyExists
		case OpUploadFile:
			return KindPathConflict
		default:
			return KindRemoteRejected
		}

	default:
		return KindRemoteRejected
	}
}

// isRateLimitMessage reports whether a lower-cased 403
// body is a rate limit rather than a permission issue.
func isRateLimitMessage(lower string) bool {
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}

// isCollision reports whether the response says the
// resource already exists. GitHub answers 422 with
// "already exists" for repositories and "sha wasn't
// supplied" for files; GitLab answers 400 with "has
// already been taken"; Bitbucket answers 409.
func isCollision(status int, lower string) bool {
	if status == http.StatusConflict {
		return true
	}

	if status != http.StatusUnprocessableEntity &&
		status != http.StatusBadRequest {
		return false
	}

	return strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "already been taken") ||
		strings.Contains(lower, `"sha" wasn't supplied`)
}
