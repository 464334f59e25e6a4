// Package scanner turns raw keystrokes from a keyboard-wedge barcode scanner into discrete
// barcode events.
package scanner

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	DefaultQuietInterval = 100 * time.Millisecond
	DefaultMinLength     = 8
)

// Mode decides who owns raw key events.
type Mode int

const (
	// ModeHardwareScan gives every key to the buffer.
	ModeHardwareScan Mode = iota
	// ModeTextEntry is used while an unrelated text field has focus; the buffer ignores keys.
	ModeTextEntry
)

func (m Mode) String() string {
	if m == ModeTextEntry {
		return "text_entry"
	}
	return "hardware_scan"
}

type Option func(*Buffer)

func WithQuietInterval(d time.Duration) Option {
	return func(b *Buffer) { b.quiet = d }
}

func WithMinLength(n int) Option {
	return func(b *Buffer) { b.minLen = n }
}

// Buffer accumulates characters until Enter arrives or the input goes quiet.
type Buffer struct {
	mu     sync.Mutex
	buf    strings.Builder
	timer  *time.Timer
	gen    uint64
	quiet  time.Duration
	minLen int
	mode   Mode

	out       chan string
	done      chan struct{}
	closeOnce sync.Once
}

func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		quiet:  DefaultQuietInterval,
		minLen: DefaultMinLength,
		mode:   ModeHardwareScan,
		out:    make(chan string, 16),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scans delivers one string per completed scan.
func (b *Buffer) Scans() <-chan string {
	return b.out
}

func (b *Buffer) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// SetMode switches key ownership. Leaving hardware-scan mode drops any partial input.
func (b *Buffer) SetMode(m Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = m
	if m != ModeHardwareScan {
		b.resetLocked()
	}
}

// Key feeds one raw character and reports whether the buffer consumed it.
func (b *Buffer) Key(r rune) bool {
	b.mu.Lock()
	if b.mode != ModeHardwareScan || b.isClosed() {
		b.mu.Unlock()
		return false
	}

	if r == '\n' || r == '\r' {
		code := strings.TrimSpace(b.buf.String())
		b.resetLocked()
		b.mu.Unlock()
		if code != "" {
			b.emit(code)
		}
		return true
	}

	b.buf.WriteRune(r)
	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.quiet, func() { b.onQuiet(gen) })
	b.mu.Unlock()
	return true
}

// Feed is Key for every rune of s.
func (b *Buffer) Feed(s string) int {
	consumed := 0
	for _, r := range s {
		if b.Key(r) {
			consumed++
		}
	}
	return consumed
}

// Close stops pending timers and closes the scan channel.
func (b *Buffer) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.resetLocked()
		close(b.done)
		b.mu.Unlock()
	})
}

func (b *Buffer) onQuiet(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || b.buf.Len() == 0 {
		b.mu.Unlock()
		return
	}
	code := strings.TrimSpace(b.buf.String())
	b.resetLocked()
	b.mu.Unlock()

	// short bursts are stray keystrokes
	if utf8.RuneCountInString(code) < b.minLen {
		return
	}
	b.emit(code)
}

func (b *Buffer) emit(code string) {
	select {
	case b.out <- code:
	case <-b.done:
	}
}

func (b *Buffer) resetLocked() {
	b.buf.Reset()
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Buffer) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
