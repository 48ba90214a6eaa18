// Package domain contains the core concepts of the relay.
// Framing, sessions and rosters live here; no network or runtime logic should be added.
package domain

import (
	"chat-relay/errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Delimiter separates the sender identity from the message text on the stream channel.
const Delimiter = ":"

// Identity is the self-declared name of a stream peer. It is not authenticated.
type Identity string

// Frame is one logical stream message: "<identity>: <text>".
type Frame struct {
	Identity Identity
	Text     string
}

// ParseFrame splits raw on the first delimiter and trims both halves.
// Everything after the first delimiter is payload, colons included.
func ParseFrame(raw string) (Frame, error) {
	left, right, found := strings.Cut(raw, Delimiter)
	if !found {
		return Frame{}, errors.ErrMissingDelimiter
	}
	identity := strings.TrimSpace(left)
	if identity == "" {
		return Frame{}, errors.ErrEmptyIdentity
	}
	return Frame{
		Identity: Identity(identity),
		Text:     strings.TrimSpace(right),
	}, nil
}

// FormatFrame renders a frame the way it is written to recipients.
func FormatFrame(identity Identity, text string) string {
	return fmt.Sprintf("%s%s %s", identity, Delimiter, text)
}

func (f Frame) String() string {
	return FormatFrame(f.Identity, f.Text)
}

// Decode converts one read into text, replacing invalid UTF-8 sequences.
func Decode(buf []byte) string {
	if utf8.Valid(buf) {
		return string(buf)
	}
	return strings.ToValidUTF8(string(buf), string(utf8.RuneError))
}
