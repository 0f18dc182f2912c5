// This code is in Public Domain. Take all the code you want, I'll just write more.
package logx

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingSeparatesErrorsFromNotices(t *testing.T) {
	log, ring := New(false)
	log.SetOutput(io.Discard)

	log.Error("boom")
	log.Info("fine")
	log.Warn("meh")

	errors := ring.Errors()
	require.Len(t, errors, 1)
	assert.Equal(t, "boom", errors[0].Msg)

	notices := ring.Notices()
	require.Len(t, notices, 2)
	// newest first
	assert.Equal(t, "meh", notices[0].Msg)
	assert.Equal(t, "fine", notices[1].Msg)
}

func TestRingWrapsAround(t *testing.T) {
	ring := NewRing(3, 3)
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.AddHook(ring)

	for _, msg := range []string{"one", "two", "three", "four"} {
		log.Error(msg)
	}

	errors := ring.Errors()
	require.Len(t, errors, 3)
	assert.Equal(t, "four", errors[0].Msg)
	assert.Equal(t, "three", errors[1].Msg)
	assert.Equal(t, "two", errors[2].Msg)
}

func TestRingReadoutSurvivesLaterWrites(t *testing.T) {
	ring := NewRing(2, 2)
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.AddHook(ring)

	log.Error("first")
	got := ring.Errors()
	require.Len(t, got, 1)

	// wrap the ring, overwriting the slot "first" lived in
	log.Error("second")
	log.Error("third")

	assert.Equal(t, "first", got[0].Msg)
}

func TestRingIncludesFields(t *testing.T) {
	log, ring := New(false)
	log.SetOutput(io.Discard)

	log.WithField("path", "/boards").Error("request failed")

	errors := ring.Errors()
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Msg, "request failed")
	assert.Contains(t, errors[0].Msg, "/boards")
}
