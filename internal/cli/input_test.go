package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func fakeTerminal(t *testing.T, tty bool, read func(int) ([]byte, error)) {
	t.Helper()
	origTTY, origRead, origFd := isTerminal, readPassword, stdinFd
	t.Cleanup(func() { isTerminal, readPassword, stdinFd = origTTY, origRead, origFd })

	stdinFd = func() int { return 0 }
	isTerminal = func(int) bool { return tty }
	readPassword = read
}

func TestGetSimpleText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"trims", "  Ann Lee \n", "Ann Lee", nil},
		{"first line only", "EUR\nUSD\n", "EUR", nil},
		{"last line without newline", "100.50", "100.50", nil},
		{"empty line", "\n", "", nil},
		{"eof", "", "", io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetSimpleText(lines(tt.input), "Amount", &out)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Amount\n> ", out.String())
		})
	}
}

func TestGetPassword_Terminal(t *testing.T) {
	fakeTerminal(t, true, func(int) ([]byte, error) { return []byte("s3cret-pass"), nil })

	var out bytes.Buffer
	pw, err := GetPassword(lines("not used\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret-pass"), pw)
	assert.Equal(t, "Enter password: \n", out.String())

	fakeTerminal(t, true, func(int) ([]byte, error) { return nil, errors.New("interrupted") })
	_, err = GetPassword(lines(""), &out)
	assert.ErrorContains(t, err, "read password")
}

func TestGetPassword_PipedInput(t *testing.T) {
	fakeTerminal(t, false, func(int) ([]byte, error) {
		t.Fatal("terminal read on piped input")
		return nil, nil
	})

	r := lines("s3cret-pass\nnext command\n")
	pw, err := GetPassword(r, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret-pass"), pw)

	rest, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "next command\n", rest)

	_, err = GetPassword(lines(""), io.Discard)
	assert.ErrorIs(t, err, io.EOF)
}
