package forge_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/repoprov/forge"
)

func TestRepositoryRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     forge.RepositoryRequest
		wantErr error
	}{
		{
			name: "valid",
			req: forge.RepositoryRequest{
				Name:       "demo-app",
				OwnerToken: "tok",
			},
		},
		{
			name: "blank name",
			req: forge.RepositoryRequest{
				Name:       "  ",
				OwnerToken: "tok",
			},
			wantErr: forge.ErrInvalidRequest,
		},
		{
			name: "missing token",
			req: forge.RepositoryRequest{
				Name: "demo-app",
			},
			wantErr: forge.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRepositoryRequest_String_hides_token(
	t *testing.T,
) {
	t.Parallel()

	req := forge.RepositoryRequest{
		Name:       "demo-app",
		OwnerToken: "ghp_secret",
	}

	assert.NotContains(t, req.String(), "ghp_secret")
	assert.Contains(t, req.String(), "demo-app")
}

func TestFileUploadRequest_EncodedContent(t *testing.T) {
	t.Parallel()

	req := forge.FileUploadRequest{
		Path:    "requirements.txt",
		Content: []byte("streamlit\npandas\n"),
	}

	got := req.EncodedContent()

	decoded, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	assert.Equal(t, req.Content, decoded)

	// Derived on every call from the current content.
	req.Content = []byte("numpy\n")
	assert.Equal(t, "bnVtcHkK", req.EncodedContent())
}

func TestFullName(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t, "alice/demo-app",
		forge.FullName("alice", "demo-app"),
	)
}
