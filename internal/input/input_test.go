package input

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		quit    bool
		escape  bool
		focus   Focus
		pressed string
	}{
		{name: "empty"},
		{name: "plain keys", in: "ab", pressed: "ab"},
		{name: "q quits", in: "q", quit: true, pressed: "q"},
		{name: "shift q quits", in: "Q", quit: true, pressed: "Q"},
		{name: "ctrl c quits", in: "\x03", quit: true, pressed: "\x03"},
		{name: "focus in", in: "\x1b[I", focus: FocusGained},
		{name: "focus out", in: "\x1b[O", focus: FocusLost},
		{name: "last focus wins", in: "\x1b[O\x1b[I", focus: FocusGained},
		{name: "arrow keys ignored", in: "\x1b[A\x1b[D", pressed: ""},
		{name: "ss3 ignored", in: "\x1bOP", pressed: ""},
		{name: "osc reply ignored", in: "\x1b]11;rgb:0000/0000/0000\x07x", pressed: "x"},
		{name: "osc with st", in: "\x1b]11;rgb:ffff/ffff/ffff\x1b\\", pressed: ""},
		{name: "escape then key", in: "\x1bx", quit: true, escape: true, pressed: "\x1bx"},
		{name: "double escape", in: "\x1b\x1b[I", quit: true, escape: true, focus: FocusGained, pressed: "\x1b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, rest := Parse([]byte(tt.in))
			assert.Empty(t, rest)
			assert.Equal(t, tt.quit, in.Quit)
			assert.Equal(t, tt.escape, in.Escape)
			assert.Equal(t, tt.focus, in.Focus)
			assert.Equal(t, tt.pressed, string(in.Pressed))
		})
	}
}

func TestParse_IncompleteSequence(t *testing.T) {
	for _, tail := range []string{"\x1b", "\x1b[", "\x1b[1;", "\x1b]11;rgb", "\x1bO"} {
		in, rest := Parse([]byte("a" + tail))
		assert.Equal(t, "a", string(in.Pressed), "%q", tail)
		assert.Equal(t, tail, string(rest), "%q", tail)
		assert.False(t, in.Quit, "%q", tail)
	}
}

func newTestStream(bytes string) *Stream {
	s := &Stream{ch: make(chan byte, 64)}
	feed(s, bytes)
	return s
}

func feed(s *Stream, bytes string) {
	for i := 0; i < len(bytes); i++ {
		s.ch <- bytes[i]
	}
}

func TestReadInput_SplitFocusReport(t *testing.T) {
	s := newTestStream("\x1b")

	in := ReadInput(s)
	assert.False(t, in.Quit, "a trailing ESC waits for the next read")

	feed(s, "[O")
	in = ReadInput(s)
	assert.False(t, in.Quit)
	assert.Equal(t, FocusLost, in.Focus)
	assert.Empty(t, in.Pressed)
}

func TestReadInput_LoneEscapeQuits(t *testing.T) {
	s := newTestStream("\x1b")

	assert.False(t, ReadInput(s).Quit)

	in := ReadInput(s)
	assert.True(t, in.Quit)
	assert.True(t, in.Escape)
}

func TestReadInput_Empty(t *testing.T) {
	s := newTestStream("")
	in := ReadInput(s)
	assert.False(t, in.Quit)
	assert.Equal(t, FocusUnchanged, in.Focus)
	assert.Empty(t, in.Pressed)
}

func TestStartStream(t *testing.T) {
	s := StartStream(bufio.NewReader(strings.NewReader("hi\x1b[I")))

	var pressed []byte
	focus := FocusUnchanged
	require.Eventually(t, func() bool {
		in := ReadInput(s)
		pressed = append(pressed, in.Pressed...)
		if in.Focus != FocusUnchanged {
			focus = in.Focus
		}
		return s.Closed()
	}, time.Second, time.Millisecond)

	assert.Equal(t, "hi", string(pressed))
	assert.Equal(t, FocusGained, focus)
}
