package xproc

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessID(t *testing.T) {
	assert.Equal(t, os.Getpid(), ProcessID())
}

func TestProcessName(t *testing.T) {
	assert.NotEmpty(t, ProcessName())
	assert.Equal(t, ProcessName(), ProcessName())
}

func TestResolveProcessName_Fallback(t *testing.T) {
	orig, origArgs := osExecutable, os.Args
	t.Cleanup(func() { osExecutable, os.Args = orig, origArgs })

	osExecutable = func() (string, error) { return "", errors.New("no exe") }
	os.Args = []string{"/usr/local/bin/xlockctl"}
	assert.Equal(t, "xlockctl", resolveProcessName())

	os.Args = []string{""}
	assert.Equal(t, "", resolveProcessName())

	osExecutable = func() (string, error) { return "/opt/bin/worker", nil }
	assert.Equal(t, "worker", resolveProcessName())
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "", baseName("/"))
	assert.Equal(t, "", baseName("."))
	assert.Equal(t, "app", baseName("/a/b/app"))
}
