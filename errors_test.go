package pseud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconstructRemoteErrorKnownKinds(t *testing.T) {
	err := reconstructRemoteError("ServiceNotFoundError", "echo", "")
	var notFound *ServiceNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "echo", notFound.Name)

	err = reconstructRemoteError("UnauthorizedError", "bad creds", "")
	var unauthorized *UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)

	err = reconstructRemoteError("TimeoutError", "", "")
	var timeout *TimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestReconstructRemoteErrorUnknownKindFallsBackToRemoteError(t *testing.T) {
	err := reconstructRemoteError("ValueError", "boom", "line 1\nline 2")
	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)
	assert.Equal(t, "ValueError", remote.Kind)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "line 1")
}
