package dispatch

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCommand(t *testing.T) {
	assert.Equal(t,
		[]string{"/bin/otpwatch", "confirm", "482913", "Messages"},
		ExpandCommand(nil, "/bin/otpwatch", "482913", "Messages"))

	tmpl := []string{"kitty", "--title", "otp {source}", "-e", "{exe}", "confirm", "{code}", "{source}"}
	assert.Equal(t,
		[]string{"kitty", "--title", "otp Mail", "-e", "/x", "confirm", "1234", "Mail"},
		ExpandCommand(tmpl, "/x", "1234", "Mail"))
}

func TestProcessSurface_Present(t *testing.T) {
	var got []string
	s := ProcessSurface{
		Exe: "/usr/local/bin/otpwatch",
		start: func(cmd *exec.Cmd) error {
			got = cmd.Args
			return nil
		},
	}
	require.NoError(t, s.Present(context.Background(), "724818", "Messages"))
	assert.Equal(t, []string{"/usr/local/bin/otpwatch", "confirm", "724818", "Messages"}, got)
}

func TestProcessSurface_StartFailure(t *testing.T) {
	s := ProcessSurface{Command: []string{"definitely-not-a-real-binary-otpwatch", "{code}"}, Exe: "x"}
	assert.Error(t, s.Present(context.Background(), "1234", "Mail"))
}
