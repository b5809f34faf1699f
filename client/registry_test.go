package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/domainsync/domainsync/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_DuplicateName(t *testing.T) {
	r := NewRegistry(&testState{})
	require.NoError(t, Register(r, echoJob{}))

	err := Register(r, echoJob{Message: "other"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_DispatchDecodesPayload(t *testing.T) {
	s := &testState{}
	r := newTestRegistry(s)

	payload, err := json.Marshal(echoJob{Message: "hello"})
	require.NoError(t, err)

	err = r.Dispatch(context.Background(), &types.Job{Name: "Echo", Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, s.messages())
}

func TestRegistry_DispatchNullPayload(t *testing.T) {
	s := &testState{}
	r := newTestRegistry(s)

	err := r.Dispatch(context.Background(), &types.Job{Name: "Echo", Payload: json.RawMessage("null")})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, s.messages())
}

func TestRegistry_DispatchUnknownJob(t *testing.T) {
	r := newTestRegistry(&testState{})

	err := r.Dispatch(context.Background(), &types.Job{Name: "DoesNotExist", Payload: json.RawMessage("{}")})
	assert.ErrorIs(t, err, ErrUnknownJob)
	assert.True(t, IsPermanent(err))
}

func TestRegistry_DispatchInvalidPayload(t *testing.T) {
	r := newTestRegistry(&testState{})

	err := r.Dispatch(context.Background(), &types.Job{Name: "Echo", Payload: json.RawMessage(`{"message":42}`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.True(t, IsPermanent(err))
}

func TestRegistry_Names(t *testing.T) {
	r := newTestRegistry(&testState{})
	assert.Equal(t, []string{"Blocking", "Echo", "Flaky", "Panic", "Reject", "Slow"}, r.Names())
	assert.True(t, r.Exists("Echo"))
	assert.False(t, r.Exists("echo"))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("gone")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "gone", err.Error())

	assert.True(t, IsPermanent(errors.Join(errors.New("ctx"), err)))
	assert.False(t, IsPermanent(base))
}

type recordingEnqueuer struct {
	name    string
	payload []byte
	label   string
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, name string, payload []byte, contextLabel string) (int64, error) {
	e.name, e.payload, e.label = name, payload, contextLabel
	return 1, nil
}

func TestEnqueue_SerializesJob(t *testing.T) {
	e := &recordingEnqueuer{}
	id, err := Enqueue(context.Background(), e, echoJob{Message: "hi"}, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Echo", e.name)
	assert.JSONEq(t, `{"message":"hi"}`, string(e.payload))
	assert.Equal(t, "test", e.label)
}
