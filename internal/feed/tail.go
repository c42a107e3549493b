package feed

import (
	"bytes"
	"io"
	"os"
)

// Tailer reads a transcript file incrementally, returning only complete
// lines appended since the previous read.
type Tailer struct {
	path    string
	offset  int64
	partial []byte
}

// NewTailer creates a tailer positioned at the start of the file.
func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// ReadNew returns the complete lines appended since the last call. A file
// that shrank (rotated or truncated) is re-read from the beginning. A
// missing file yields no lines and no error; the next write will be picked
// up.
func (t *Tailer) ReadNew() ([][]byte, error) {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	var lines [][]byte
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(buf[:i], "\r")
		if len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
		buf = buf[i+1:]
	}
	t.partial = append([]byte(nil), buf...)
	return lines, nil
}
