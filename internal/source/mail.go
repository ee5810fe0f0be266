package source

import (
	"bufio"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/microcosm-cc/bluemonday"
)

// maxPartBytes bounds how much of a single MIME part is read.
const maxPartBytes = 1 << 20

// ErrNoTextBody is returned for mail without a text/plain or text/html part.
var ErrNoTextBody = errors.New("mail has no text body")

var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	// Keeps "code<br>123456" from collapsing into one token.
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// ParseMailFile reads an .eml or .emlx file and returns its body as plain
// text. text/plain parts win over text/html; attachments are ignored.
func ParseMailFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if strings.EqualFold(filepath.Ext(path), ".emlx") {
		r, err = emlxMessage(br)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
	}

	body, err := ParseMail(r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return body, nil
}

// ParseMail parses an RFC 5322 message and returns its body as plain text.
func ParseMail(r io.Reader) (string, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return "", fmt.Errorf("read message: %w", err)
	}

	var plain, htmlBody string
	walkErr := entity.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return err
		}
		ct, _, _ := part.Header.ContentType()
		if ct == "" {
			ct = "text/plain"
		}
		if strings.HasPrefix(ct, "multipart/") {
			return nil
		}
		if disp, _, _ := part.Header.ContentDisposition(); disp == "attachment" {
			return nil
		}

		switch {
		case ct == "text/plain" && plain == "":
			b, err := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))
			if err != nil {
				return err
			}
			plain = string(b)
		case ct == "text/html" && htmlBody == "":
			b, err := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))
			if err != nil {
				return err
			}
			htmlBody = string(b)
		}
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("walk message: %w", walkErr)
	}

	if text := strings.TrimSpace(plain); text != "" {
		return text, nil
	}
	if htmlBody != "" {
		if text := htmlToText(htmlBody); text != "" {
			return text, nil
		}
	}
	return "", ErrNoTextBody
}

// emlxMessage strips the Apple Mail .emlx framing: a decimal byte count on
// the first line, the message itself, then a trailing property list.
func emlxMessage(r *bufio.Reader) (io.Reader, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read emlx header: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad emlx byte count %q", strings.TrimSpace(line))
	}
	return io.LimitReader(r, n), nil
}

func htmlToText(s string) string {
	text := html.UnescapeString(htmlPolicy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}
