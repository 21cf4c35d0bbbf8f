package proto

import (
	"fmt"
	"io"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// replacementByte stands in for anything outside the 7-bit charset.
const replacementByte = '?'

// Encode converts text to a wire frame. Accents are folded to their base letters first
// (so "ă" goes out as "a"); any other non-ASCII rune becomes '?'.
// Frames longer than FrameSize are rejected rather than truncated.
func Encode(text string) ([]byte, error) {
	if !isASCII(text) {
		text = foldAccents(text)
	}

	buf := make([]byte, 0, len(text))
	for _, r := range text {
		if r > unicode.MaxASCII {
			buf = append(buf, replacementByte)
			continue
		}
		buf = append(buf, byte(r))
	}

	if len(buf) > FrameSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(buf), FrameSize)
	}
	return buf, nil
}

// Decode converts a frame back to text. Bytes above 0x7F decode as '?'.
// A truncated frame decodes to a prefix of the original text.
func Decode(frame []byte) string {
	out := make([]byte, len(frame))
	for i, b := range frame {
		if b > unicode.MaxASCII {
			b = replacementByte
		}
		out[i] = b
	}
	return string(out)
}

// ReadFrame performs one bounded read of at most FrameSize bytes.
// There is no length prefix: whatever arrives in that read is the frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	buf := make([]byte, FrameSize)
	n, err := r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// WriteFrame writes an encoded frame in a single call.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) > FrameSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(frame), FrameSize)
	}
	_, err := w.Write(frame)
	return err
}

// EncodeFields formats and encodes a message in one step.
func EncodeFields(f *Fields) ([]byte, error) {
	text, err := f.Format()
	if err != nil {
		return nil, err
	}
	return Encode(text)
}

func foldAccents(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
