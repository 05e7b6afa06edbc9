package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSubject(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskSubject("ana@example.com"))
	assert.Equal(t, "s***", MaskSubject("svc-reporting"))
	assert.Equal(t, "", MaskSubject(""))
}

func TestHelpers_ScrubCredentialsAndSubjects(t *testing.T) {
	InitGlobalLogger(false)
	var buf bytes.Buffer
	SetOutput(&buf)

	Error(errors.New("boom"), "login failed",
		"email", "ana@example.com",
		"Password", "hunter2",
		"token", "eyJhbGci",
		"attempt", 2,
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "a***@example.com", entry["email"])
	assert.Equal(t, "[redacted]", entry["Password"])
	assert.Equal(t, "[redacted]", entry["token"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestHelpers_DropOddFields(t *testing.T) {
	InitGlobalLogger(false)
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("odd", "only-key")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, "odd", entry["message"])
	assert.NotContains(t, entry, "only-key")
}
