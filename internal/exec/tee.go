package exec

import "io"

// teeWriter duplicates writes to a capture buffer and a live destination.
type teeWriter struct {
	capture io.Writer
	live    io.Writer
}

func newTeeWriter(capture, live io.Writer) *teeWriter {
	return &teeWriter{capture: capture, live: live}
}

func (t *teeWriter) Write(p []byte) (int, error) {
	if _, err := t.live.Write(p); err != nil {
		return 0, err
	}
	return t.capture.Write(p)
}
