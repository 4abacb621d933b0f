package pkg

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func TestCombinedWriter(t *testing.T) {
	stdout := &strings.Builder{}
	stdout.WriteString("boot\n")
	file := &strings.Builder{}

	cw := NewCombinedWriter(stdout, file)
	assert.Equal(t, 2, cw.Len())

	for _, line := range []string{"session started\n", "set completed\n"} {
		n, err := cw.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	assert.Equal(t, "boot\nsession started\nset completed\n", stdout.String())
	assert.Equal(t, "session started\nset completed\n", file.String())
}

func TestCombinedWriter_PartialFailure(t *testing.T) {
	sb := &strings.Builder{}
	cw := NewCombinedWriter(failingWriter{err: errors.New("disk full")}, sb)

	n, err := cw.Write([]byte("rest completed"))
	require.NoError(t, err)
	assert.Equal(t, len("rest completed"), n)
	assert.Equal(t, "rest completed", sb.String())
}

func TestCombinedWriter_AllFail(t *testing.T) {
	diskErr := errors.New("disk full")
	pipeErr := errors.New("broken pipe")
	cw := NewCombinedWriter(failingWriter{err: diskErr}, failingWriter{err: pipeErr})

	n, err := cw.Write([]byte("x"))
	assert.Zero(t, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, diskErr)
	assert.ErrorIs(t, err, pipeErr)
	assert.Len(t, multierr.Errors(err), 2)
}
