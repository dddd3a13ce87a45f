package forge_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/repoprov/forge"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		op     forge.Op
		status int
		body   string
		want   forge.Kind
	}{
		{
			name:   "bad credentials",
			op:     forge.OpCreateRepository,
			status: http.StatusUnauthorized,
			body:   `{"message":"Bad credentials"}`,
			want:   forge.KindUnauthorized,
		},
		{
			name:   "forbidden",
			op:     forge.OpUploadFile,
			status: http.StatusForbidden,
			body:   `{"message":"Resource not accessible by personal access token"}`,
			want:   forge.KindUnauthorized,
		},
		{
			name:   "rate limited 403",
			op:     forge.OpCreateRepository,
			status: http.StatusForbidden,
			body:   `{"message":"API rate limit exceeded for user ID 1."}`,
			want:   forge.KindRemoteRejected,
		},
		{
			name:   "secondary rate limit 429",
			op:     forge.OpCreateRepository,
			status: http.StatusTooManyRequests,
			want:   forge.KindRemoteRejected,
		},
		{
			name:   "github repo name collision",
			op:     forge.OpCreateRepository,
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"Repository creation failed.","errors":[{"message":"name already exists on this account"}]}`,
			want:   forge.KindAlreadyExists,
		},
		{
			name:   "github file without sha",
			op:     forge.OpUploadFile,
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`,
			want:   forge.KindPathConflict,
		},
		{
			name:   "gitlab project taken",
			op:     forge.OpCreateRepository,
			status: http.StatusBadRequest,
			body:   `{"message":{"name":["has already been taken"]}}`,
			want:   forge.KindAlreadyExists,
		},
		{
			name:   "gitlab file exists",
			op:     forge.OpUploadFile,
			status: http.StatusBadRequest,
			body:   `{"message":"A file with this name already exists"}`,
			want:   forge.KindPathConflict,
		},
		{
			name:   "bitbucket conflict on create",
			op:     forge.OpCreateRepository,
			status: http.StatusConflict,
			want:   forge.KindAlreadyExists,
		},
		{
			name:   "other validation failure",
			op:     forge.OpCreateRepository,
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"name is too long"}`,
			want:   forge.KindRemoteRejected,
		},
		{
			name:   "repo vanished mid upload",
			op:     forge.OpUploadFile,
			status: http.StatusNotFound,
			body:   `{"message":"Not Found"}`,
			want:   forge.KindRemoteRejected,
		},
		{
			name:   "server error",
			op:     forge.OpUploadFile,
			status: http.StatusBadGateway,
			want:   forge.KindRemoteRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(
				t,
				tt.want,
				forge.Classify(tt.op, tt.status, tt.body),
			)
		})
	}
}

func TestError_Is_matches_kind_sentinel(t *testing.T) {
	t.Parallel()

	err := forge.NewRemoteError(
		"github",
		forge.OpCreateRepository,
		http.StatusUnprocessableEntity,
		"name already exists on this account",
		nil,
	)

	assert.ErrorIs(t, err, forge.ErrAlreadyExists)
	assert.NotErrorIs(t, err, forge.ErrPathConflict)
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Contains(t, err.Error(), "HTTP 422")
	assert.Contains(t, err.Error(), "name already exists")
}

func TestError_transport_unwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := forge.NewTransportError(
		"gitlab", forge.OpAuthenticate, cause,
	)

	assert.ErrorIs(t, err, forge.ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.Equal(
		t,
		"gitlab: authenticate: Transport: dial tcp: connection refused",
		err.Error(),
	)
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(
		errors.New("context"),
		forge.NewRemoteError(
			"github", forge.OpUploadFile,
			http.StatusUnauthorized, "", nil,
		),
	)

	kind, ok := forge.KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, forge.KindUnauthorized, kind)

	_, ok = forge.KindOf(errors.New("plain"))
	assert.False(t, ok)
}
