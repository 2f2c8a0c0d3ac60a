package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads lines from an input stream and gives up when the
// context is canceled.
type LineReader struct {
	reader      *bufio.Reader
	readingLock sync.Mutex
}

// NewLineReader creates a reader over r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReader(r)}
}

// ReadLine returns the next trimmed line. A final line without a newline is
// returned as-is; io.EOF is only returned when nothing was read.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.readingLock.Lock()
		defer r.readingLock.Unlock()

		value, err := r.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.value != "") {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

// PromptNote shows the current note for caseNumber and reads its replacement.
// An empty answer clears the note.
func PromptNote(ctx context.Context, w io.Writer, r *LineReader, caseNumber, current string) (string, error) {
	if current != "" {
		if _, err := fmt.Fprintf(w, "%s %s\n", SubtleStyle.Render("Current note:"), current); err != nil {
			return "", err
		}
	}
	if _, err := fmt.Fprint(w, FormatPrompt("Note for case "+caseNumber)); err != nil {
		return "", err
	}
	return r.ReadLine(ctx)
}
