// Package input reads keys and terminal focus reports without blocking the
// frame loop.
package input

import (
	"bufio"
)

const (
	keyEscape = 0x1b
	keyCtrlC  = 0x03
)

// Focus is a terminal focus change reported since the last read.
type Focus int

const (
	FocusUnchanged Focus = iota
	FocusGained          // ESC [ I
	FocusLost            // ESC [ O
)

// Input represents the current frame's input state.
type Input struct {
	Quit    bool
	Escape  bool
	Focus   Focus  // Last focus report seen; earlier ones are superseded
	Pressed []byte // Key bytes, excluding focus reports and other terminal replies
}

// Stream delivers input bytes via a channel. An escape sequence split across
// reads is held back until the rest of it arrives.
type Stream struct {
	ch      chan byte
	closed  bool
	pending []byte
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// Closed reports whether the underlying reader has ended.
func (s *Stream) Closed() bool {
	return s.closed
}

// ReadInput drains all available bytes from the stream (non-blocking).
func ReadInput(s *Stream) Input {
	buf := s.pending
	s.pending = nil
	fresh := 0

drain:
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				break drain
			}
			buf = append(buf, b)
			fresh++
		default:
			break drain
		}
	}

	in, rest := Parse(buf)
	if len(rest) == 0 {
		return in
	}

	// An incomplete sequence waits for one more read. If nothing else
	// arrived, a lone ESC was the key itself.
	if fresh > 0 && !s.closed {
		s.pending = append([]byte(nil), rest...)
		return in
	}
	if len(rest) == 1 && rest[0] == keyEscape {
		in.Escape = true
		in.Quit = true
		in.Pressed = append(in.Pressed, keyEscape)
	}
	return in
}

// Parse decodes buf into an Input. rest holds a trailing escape sequence that
// is not complete yet.
func Parse(buf []byte) (in Input, rest []byte) {
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b != keyEscape {
			applyByte(&in, b)
			continue
		}

		n, focus, complete := escapeSequence(buf[i:])
		if !complete {
			return in, buf[i:]
		}
		switch {
		case focus != FocusUnchanged:
			in.Focus = focus
		case n == 1:
			// ESC followed by a plain byte: the Escape key then that key
			in.Escape = true
			in.Quit = true
			in.Pressed = append(in.Pressed, keyEscape)
		}
		i += n - 1
	}
	return in, nil
}

// escapeSequence measures the sequence at the start of seq, which begins
// with ESC. Unknown sequences (arrow keys, OSC replies) are consumed whole so
// their bytes are never taken for keys.
func escapeSequence(seq []byte) (n int, focus Focus, complete bool) {
	if len(seq) < 2 {
		return 0, FocusUnchanged, false
	}

	switch seq[1] {
	case '[':
		// CSI: parameter and intermediate bytes, then a final byte in 0x40..0x7e
		for j := 2; j < len(seq); j++ {
			c := seq[j]
			if c < 0x40 || c > 0x7e {
				continue
			}
			if j == 2 {
				switch c {
				case 'I':
					focus = FocusGained
				case 'O':
					focus = FocusLost
				}
			}
			return j + 1, focus, true
		}
		return 0, FocusUnchanged, false
	case ']':
		// OSC: terminated by BEL or ST (ESC \)
		for j := 2; j < len(seq); j++ {
			if seq[j] == 0x07 {
				return j + 1, FocusUnchanged, true
			}
			if seq[j] == keyEscape && j+1 < len(seq) && seq[j+1] == '\\' {
				return j + 2, FocusUnchanged, true
			}
		}
		return 0, FocusUnchanged, false
	case 'O':
		// SS3: one more byte (F1-F4, application-mode arrows)
		if len(seq) < 3 {
			return 0, FocusUnchanged, false
		}
		return 3, FocusUnchanged, true
	case keyEscape:
		return 1, FocusUnchanged, true
	default:
		return 1, FocusUnchanged, true
	}
}

func applyByte(in *Input, b byte) {
	in.Pressed = append(in.Pressed, b)
	switch b {
	case 'q', 'Q', keyCtrlC:
		in.Quit = true
	}
}
