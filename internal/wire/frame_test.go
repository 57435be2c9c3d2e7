package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	messages := []string{`{"id":"1","command":"ready"}`, `{"id":"2","command":"fetch_files"}`, `{}`}

	codecs := []Codec{LineCodec{}, LengthPrefixCodec{}}
	for _, codec := range codecs {
		t.Run(codec.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			for _, m := range messages {
				if err := codec.WriteFrame(&buf, []byte(m)); err != nil {
					t.Fatalf("WriteFrame(%s) error: %v", m, err)
				}
			}

			r := bufio.NewReader(&buf)
			for _, want := range messages {
				got, err := codec.ReadFrame(r)
				if err != nil {
					t.Fatalf("ReadFrame() error: %v", err)
				}
				if string(got) != want {
					t.Errorf("ReadFrame() = %s, want %s", got, want)
				}
			}
			if _, err := codec.ReadFrame(r); err != io.EOF {
				t.Errorf("ReadFrame() at end = %v, want io.EOF", err)
			}
		})
	}
}

func TestLineCodecSkipsBlankLines(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\n\n{\"a\":1}\r\n\n{\"b\":2}"))
	codec := LineCodec{}

	first, err := codec.ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() error: %v", err)
	}
	if string(first) != `{"a":1}` {
		t.Errorf("first frame = %s, want {\"a\":1}", first)
	}

	second, err := codec.ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() error: %v", err)
	}
	if string(second) != `{"b":2}` {
		t.Errorf("unterminated frame = %s, want {\"b\":2}", second)
	}
}

func TestLineCodecRejectsEmbeddedNewline(t *testing.T) {
	var buf bytes.Buffer
	if err := (LineCodec{}).WriteFrame(&buf, []byte("a\nb")); err == nil {
		t.Error("WriteFrame() with newline expected error, got nil")
	}
}

func TestFrameTooLarge(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64)

	t.Run("length read", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (LengthPrefixCodec{}).WriteFrame(&buf, payload); err != nil {
			t.Fatalf("WriteFrame() error: %v", err)
		}
		_, err := LengthPrefixCodec{MaxBytes: 16}.ReadFrame(bufio.NewReader(&buf))
		if !errors.Is(err, ErrFrameTooLarge) {
			t.Errorf("ReadFrame() error = %v, want ErrFrameTooLarge", err)
		}
	})

	t.Run("length write", func(t *testing.T) {
		var buf bytes.Buffer
		err := LengthPrefixCodec{MaxBytes: 16}.WriteFrame(&buf, payload)
		if !errors.Is(err, ErrFrameTooLarge) {
			t.Errorf("WriteFrame() error = %v, want ErrFrameTooLarge", err)
		}
	})

	t.Run("line read", func(t *testing.T) {
		r := bufio.NewReaderSize(bytes.NewReader(append(payload, '\n')), 16)
		_, err := LineCodec{MaxBytes: 16}.ReadFrame(r)
		if !errors.Is(err, ErrFrameTooLarge) {
			t.Errorf("ReadFrame() error = %v, want ErrFrameTooLarge", err)
		}
	})
}

func TestByName(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		hasError bool
	}{
		{"", "line", false},
		{"line", "line", false},
		{"length", "length", false},
		{"protobuf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := ByName(tt.name, 0)
			if tt.hasError {
				if err == nil {
					t.Errorf("ByName(%q) expected error, got nil", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("ByName(%q) unexpected error: %v", tt.name, err)
			}
			if codec.Name() != tt.wantName {
				t.Errorf("ByName(%q).Name() = %q, want %q", tt.name, codec.Name(), tt.wantName)
			}
		})
	}
}
