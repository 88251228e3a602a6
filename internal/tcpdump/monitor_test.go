package tcpdump

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureArgs(t *testing.T) {
	assert.Equal(t, []string{"-l", DefaultFilter}, captureArgs(CaptureConfig{}))

	got := captureArgs(CaptureConfig{Interface: "eth0", Filter: "tcp port 80", Args: []string{"-s", "96"}})
	assert.Equal(t, []string{"-l", "-i", "eth0", "-s", "96", "tcp port 80"}, got)
}

func TestStartCaptureStreamsStdout(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	capture, err := StartCapture(context.Background(), CaptureConfig{Command: "echo", Filter: "tcp"})
	require.NoError(t, err)

	out, err := io.ReadAll(capture.Stdout())
	require.NoError(t, err)
	require.NoError(t, capture.Wait())
	assert.Equal(t, "-l tcp", strings.TrimSpace(string(out)))
}

func TestStartCaptureMissingBinary(t *testing.T) {
	_, err := StartCapture(context.Background(), CaptureConfig{Command: "handshakewatch-no-such-binary"})
	assert.Error(t, err)
}
