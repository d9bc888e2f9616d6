package fault_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/mailshield/fault"
)

func reply(status int, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header}
}

func TestFromResponse_SuccessIsNil(t *testing.T) {
	assert.NoError(t, fault.FromResponse("getLists", reply(200, nil), []byte(`{}`)))
	assert.NoError(t, fault.FromResponse("getLists", nil, nil))
}

func TestFromResponse_ServerErrorKeepsRetryAfterHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")

	err := fault.FromResponse("sendCampaign", reply(503, header), []byte(`{"error":"maintenance"}`))

	var remote *fault.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 503, remote.StatusCode)
	assert.Equal(t, "maintenance", remote.Message)
	assert.Equal(t, 7*time.Second, remote.RetryAfter)

	f := fault.Classify(err)
	assert.Equal(t, fault.ServerError, f.Kind)
	assert.Equal(t, 7*time.Second, f.RetryAfter)
}

func TestFromResponse_TruncatesOnRuneBoundary(t *testing.T) {
	// The cut at 512 bytes lands inside the two-byte "é".
	body := strings.Repeat("a", 511) + strings.Repeat("é", 10)

	err := fault.FromResponse("addSubscriber", reply(500, nil), []byte(body))

	var remote *fault.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.True(t, utf8.ValidString(remote.Message))
	assert.Equal(t, strings.Repeat("a", 511)+"...", remote.Message)
}

func TestFromResponse_KeepsWholeRunesUpToLimit(t *testing.T) {
	body := strings.Repeat("é", 300)

	err := fault.FromResponse("addSubscriber", reply(500, nil), []byte(body))

	var remote *fault.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.True(t, utf8.ValidString(remote.Message))
	assert.Equal(t, strings.Repeat("é", 256)+"...", remote.Message)
}
