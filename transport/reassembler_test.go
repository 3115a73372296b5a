package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sduiterm/errors"
)

func TestReassembler_SingleChunk(t *testing.T) {
	r := NewReassembler(1024)

	text, complete, err := r.Ingest(Chunk{
		Data:          []byte(`{"topic":"ui/update"}`),
		PayloadOffset: 0,
		PayloadLen:    21,
	})
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, `{"topic":"ui/update"}`, text)
	assert.False(t, r.InFlight())
}

func TestReassembler_ThreeChunks(t *testing.T) {
	r := NewReassembler(1024)
	msg := []byte(`{"topic":"ui/layout","payload":{"type":"container"}}`)

	_, complete, err := r.Ingest(Chunk{
		Data: msg[:20], PayloadOffset: 0, PayloadLen: len(msg),
	})
	require.NoError(t, err)
	assert.False(t, complete)
	assert.True(t, r.InFlight())

	_, complete, err = r.Ingest(Chunk{
		Data: msg[20:40], PayloadOffset: 20, PayloadLen: len(msg),
	})
	require.NoError(t, err)
	assert.False(t, complete)

	text, complete, err := r.Ingest(Chunk{
		Data: msg[40:], PayloadOffset: 40, PayloadLen: len(msg),
	})
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, string(msg), text)
}

func TestReassembler_ChunkWithoutStart(t *testing.T) {
	r := NewReassembler(1024)

	_, _, err := r.Ingest(Chunk{Data: []byte("tail"), PayloadOffset: 8, PayloadLen: 12})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestReassembler_OffsetGap(t *testing.T) {
	r := NewReassembler(1024)

	_, _, err := r.Ingest(Chunk{Data: []byte("abcd"), PayloadOffset: 0, PayloadLen: 12})
	require.NoError(t, err)

	_, _, err = r.Ingest(Chunk{Data: []byte("wxyz"), PayloadOffset: 8, PayloadLen: 12})
	require.Error(t, err)
	assert.False(t, r.InFlight(), "a misaligned chunk discards the buffer")
}

func TestReassembler_Overrun(t *testing.T) {
	r := NewReassembler(1024)

	_, _, err := r.Ingest(Chunk{Data: []byte("abcd"), PayloadOffset: 0, PayloadLen: 8})
	require.NoError(t, err)

	_, _, err = r.Ingest(Chunk{Data: []byte("efghij"), PayloadOffset: 4, PayloadLen: 8})
	require.Error(t, err)
	assert.False(t, r.InFlight())
}

func TestReassembler_PayloadTooLarge(t *testing.T) {
	r := NewReassembler(16)

	_, _, err := r.Ingest(Chunk{Data: []byte("x"), PayloadOffset: 0, PayloadLen: 17})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestReassembler_DiscardMidMessage(t *testing.T) {
	r := NewReassembler(1024)

	_, _, err := r.Ingest(Chunk{Data: []byte("abcd"), PayloadOffset: 0, PayloadLen: 12})
	require.NoError(t, err)
	require.True(t, r.InFlight())

	r.Discard()
	assert.False(t, r.InFlight())

	// A fresh message starts cleanly after a discard
	text, complete, err := r.Ingest(Chunk{Data: []byte("hi"), PayloadOffset: 0, PayloadLen: 2})
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, "hi", text)
}

func TestReassembler_RestartAtOffsetZero(t *testing.T) {
	r := NewReassembler(1024)

	_, _, err := r.Ingest(Chunk{Data: []byte("abcd"), PayloadOffset: 0, PayloadLen: 12})
	require.NoError(t, err)

	// A new offset-zero chunk supersedes the in-flight message
	text, complete, err := r.Ingest(Chunk{Data: []byte("new"), PayloadOffset: 0, PayloadLen: 3})
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, "new", text)
}
