package sink

import (
	"bufio"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/sentence-corpus/pkg/errors"
)

// TextFile is a LineSink writing one sentence per line through a buffer.
// Lines reach the file only on Flush or Close.
type TextFile struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// CreateTextFile creates or truncates path.
func CreateTextFile(path string) (*TextFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrOutput, "creating output file", err)
	}
	return &TextFile{path: path, f: f, w: bufio.NewWriterSize(f, 64*1024)}, nil
}

func (t *TextFile) AppendLine(text string) error {
	if _, err := t.w.WriteString(text); err != nil {
		return apperrors.New(apperrors.ErrOutput, "writing "+t.path, err)
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return apperrors.New(apperrors.ErrOutput, "writing "+t.path, err)
	}
	return nil
}

func (t *TextFile) Flush() error {
	if err := t.w.Flush(); err != nil {
		return apperrors.New(apperrors.ErrOutput, "flushing "+t.path, err)
	}
	return nil
}

// Close flushes buffered lines and closes the file. Later calls are no-ops.
func (t *TextFile) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	flushErr := t.Flush()
	if err := t.f.Close(); err != nil && flushErr == nil {
		return apperrors.New(apperrors.ErrOutput, "closing "+t.path, err)
	}
	return flushErr
}

