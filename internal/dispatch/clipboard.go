package dispatch

import "github.com/atotto/clipboard"

// Clipboard is the system clipboard as seen by the dispatcher.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard talks to the OS clipboard (pbcopy, xclip, wl-copy, ...).
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Supported reports whether a clipboard utility was found on this system.
func Supported() bool { return !clipboard.Unsupported }
