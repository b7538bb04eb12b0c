// Package tail keeps the last lines written by a child process, for error messages.
package tail

import (
	"bytes"
	"strings"
	"sync"
)

// maxPartial caps an unterminated line; older bytes of it are discarded.
const maxPartial = 4 << 10

// Ring is an io.Writer that keeps the last max lines written to it.
type Ring struct {
	mu      sync.Mutex
	lines   []string
	max     int
	next    int
	full    bool
	partial bytes.Buffer
}

// NewRing creates a Ring keeping n lines. n below one keeps one.
func NewRing(n int) *Ring {
	n = max(n, 1)
	return &Ring{lines: make([]string, n), max: n}
}

func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partial.Write(p)
	for {
		data := r.partial.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		r.add(string(bytes.TrimRight(data[:i], "\r")))
		r.partial.Next(i + 1)
	}
	if over := r.partial.Len() - maxPartial; over > 0 {
		r.partial.Next(over)
	}
	return len(p), nil
}

func (r *Ring) add(line string) {
	if line == "" {
		return
	}
	r.lines[r.next] = line
	r.next = (r.next + 1) % r.max
	if r.next == 0 {
		r.full = true
	}
}

// String returns the kept lines, oldest first, including an unterminated last line.
func (r *Ring) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	if r.full {
		out = append(out, r.lines[r.next:]...)
	}
	out = append(out, r.lines[:r.next]...)
	if r.partial.Len() > 0 {
		out = append(out, r.partial.String())
	}
	return strings.Join(out, "\n")
}
