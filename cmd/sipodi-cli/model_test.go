package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/pkg/client"
)

func update(t *testing.T, m uploadModel, msg tea.Msg) (uploadModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(uploadModel)
	require.True(t, ok)
	return out, cmd
}

func TestModelFollowsPipeline(t *testing.T) {
	m := newUploadModel("sertifikat.pdf", 2048, nil)
	assert.Contains(t, m.View(), "requesting upload URL")

	m, _ = update(t, m, stageMsg(client.UploadTransferring))
	m, _ = update(t, m, progressMsg{sent: 1024, total: 2048})
	assert.InDelta(t, 0.5, m.percent(), 0.001)
	assert.Contains(t, m.View(), "1.0 KB / 2.0 KB")

	m, cmd := update(t, m, doneMsg{result: &client.UploadResult{UploadID: "u-1"}})
	require.NotNil(t, cmd)
	assert.Equal(t, client.UploadConfirmed, m.stage)
	assert.Contains(t, m.View(), "u-1")
	assert.NotContains(t, m.View(), "q to abandon")
}

func TestModelShowsFailure(t *testing.T) {
	m := newUploadModel("foto.png", 10, nil)
	m, _ = update(t, m, doneMsg{err: &client.TransferError{StatusCode: 403}})

	assert.Equal(t, client.UploadFailed, m.stage)
	assert.Contains(t, m.View(), "storage responded 403")
}

func TestModelAbandonCancelsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newUploadModel("foto.png", 10, cancel)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.ErrorIs(t, m.err, context.Canceled)
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KB", humanBytes(1536))
	assert.Equal(t, "10.0 MB", humanBytes(10<<20))
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://localhost:8080/api/v1\nemail: guru@example.com\ntimeout: 5s\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1", p.BaseURL)
	assert.Equal(t, "guru@example.com", p.Email)
	assert.Equal(t, 5*time.Second, p.Timeout)

	require.NoError(t, os.WriteFile(path, []byte("email: guru@example.com\n"), 0o600))
	_, err = LoadProfile(path)
	assert.ErrorContains(t, err, "base_url")
}

func TestDescribe(t *testing.T) {
	err := describe(&client.ValidationError{APIError: client.APIError{
		Code:    "VALIDATION_ERROR",
		Message: "invalid upload payload",
		Details: []client.FieldError{{Field: "size", Message: "size exceeds 2097152 bytes"}},
	}})
	assert.True(t, strings.Contains(err.Error(), "size: size exceeds 2097152 bytes"))

	assert.EqualError(t, describe(context.Canceled), "upload abandoned")
	assert.Contains(t, describe(&client.TransferError{Err: errors.New("reset")}).Error(), "nothing was confirmed")
}
