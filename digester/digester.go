package digester

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// BlobSHA returns the git blob object id of content,
// hex encoded.
func BlobSHA(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

// Verify reports whether sha is the blob id of content.
// Comparison ignores case.
func Verify(content []byte, sha string) bool {
	return strings.EqualFold(BlobSHA(content), sha)
}

// FileBlobSHA computes the blob id of the file at path.
func FileBlobSHA(path string) (string, error) {
	const errCtx = "calculating blob sha"

	content, err := os.ReadFile(path) //nolint:gosec // path is caller-provided by design
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return BlobSHA(content), nil
}
