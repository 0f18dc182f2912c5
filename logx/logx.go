// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package logx builds the loggers both servers use: logrus writing to
// stderr, plus a ring of recent errors and notices kept in memory so the
// /logs admin page can show them without grepping files. Loggers are
// constructed in main and passed down; there is no package-level logger.
package logx

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TimestampedMsg is a formatted log line with its timestamp.
type TimestampedMsg struct {
	Time time.Time
	Msg  string
}

// TimeStr formats the timestamp the way the /logs page shows it.
func (m *TimestampedMsg) TimeStr() string {
	return m.Time.Format("2006-01-02 15:04:05")
}

type ringBuf struct {
	msgs []TimestampedMsg
	pos  int
	full bool
}

func newRingBuf(capacity int) *ringBuf {
	return &ringBuf{msgs: make([]TimestampedMsg, capacity)}
}

func (b *ringBuf) add(t time.Time, s string) {
	if b.pos == cap(b.msgs) {
		b.pos = 0
		b.full = true
	}
	b.msgs[b.pos] = TimestampedMsg{t, s}
	b.pos++
}

// ordered returns copies of the messages, newest first. Copies, because a
// later add may overwrite a slot while the caller still reads the result.
func (b *ringBuf) ordered() []*TimestampedMsg {
	size := b.pos
	if b.full {
		size = cap(b.msgs)
	}
	res := make([]*TimestampedMsg, size)
	for i := 0; i < size; i++ {
		p := b.pos - 1 - i
		if p < 0 {
			p = cap(b.msgs) + p
		}
		m := b.msgs[p]
		res[i] = &m
	}
	return res
}

// Ring is a logrus hook that remembers the most recent errors and notices.
type Ring struct {
	mu      sync.Mutex
	errors  *ringBuf
	notices *ringBuf
}

// NewRing creates a Ring keeping up to errorsMax errors and noticesMax
// other lines.
func NewRing(errorsMax, noticesMax int) *Ring {
	return &Ring{
		errors:  newRingBuf(errorsMax),
		notices: newRingBuf(noticesMax),
	}
}

// Levels implements logrus.Hook.
func (r *Ring) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (r *Ring) Fire(e *logrus.Entry) error {
	msg := e.Message
	if len(e.Data) > 0 {
		msg = fmt.Sprintf("%s %v", e.Message, e.Data)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Level <= logrus.ErrorLevel {
		r.errors.add(e.Time, msg)
	} else {
		r.notices.add(e.Time, msg)
	}
	return nil
}

// Errors returns the remembered errors, newest first.
func (r *Ring) Errors() []*TimestampedMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors.ordered()
}

// Notices returns the remembered notices, newest first.
func (r *Ring) Notices() []*TimestampedMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices.ordered()
}

// New builds a logger with an attached Ring. verbose enables debug level.
func New(verbose bool) (*logrus.Logger, *Ring) {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	ring := NewRing(256, 256)
	log.AddHook(ring)
	return log, ring
}
