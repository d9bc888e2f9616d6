package scrub_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/mailshield/internal/scrub"
)

const token = "acb-7f3e9c2d"

func TestError_NilError(t *testing.T) {
	assert.Nil(t, scrub.Error(nil, token))
}

func TestError_EmptySecret(t *testing.T) {
	original := errors.New("some error")
	assert.Equal(t, original, scrub.Error(original, ""))
}

func TestError_NoSecretInMessage(t *testing.T) {
	original := errors.New("connection refused")
	assert.Equal(t, original, scrub.Error(original, token))
}

func TestError_ScrubsSecret(t *testing.T) {
	original := fmt.Errorf("Post https://acumbamail.com/api/1/addSubscriber/?auth_token=%s: dial tcp: no such host", token)
	result := scrub.Error(original, token)

	require.NotEqual(t, original, result)
	assert.Contains(t, result.Error(), "[REDACTED]")
	assert.NotContains(t, result.Error(), token)
}

func TestError_MultipleSecrets(t *testing.T) {
	original := errors.New("user=alice pass=hunter2 token=" + token)
	result := scrub.Error(original, "hunter2", token)
	assert.Equal(t, "user=alice pass=[REDACTED] token=[REDACTED]", result.Error())
}

func TestError_PreservesErrorChain(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	wrapped := fmt.Errorf("Post https://acumbamail.com/api/1/getLists/?auth_token=%s: %w", token, netErr)

	result := scrub.Error(wrapped, token)

	var opErr *net.OpError
	assert.True(t, errors.As(result, &opErr))
}

func TestSecret_NeverPrints(t *testing.T) {
	s := scrub.Secret(token)
	assert.Equal(t, token, s.Value())
	assert.False(t, s.IsEmpty())
	assert.True(t, scrub.Secret("").IsEmpty())

	assert.NotContains(t, fmt.Sprintf("%v %s %+v %#v", s, s, s, s), token)

	data, err := json.Marshal(map[string]scrub.Secret{"token": s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), token)

	var sb strings.Builder
	slog.New(slog.NewTextHandler(&sb, nil)).Info("calling", "token", s)
	assert.NotContains(t, sb.String(), token)
}
