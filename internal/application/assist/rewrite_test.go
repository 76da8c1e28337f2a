package assist

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/pkg/errors"
)

func TestRewriteReplacesSelectionWithStream(t *testing.T) {
	m := &fakeChatModel{chunks: []string{"dog ", "stood"}}
	h := newHarness(t, m)
	doc := h.openDoc(t, 4, 11)
	svc := NewRewriteService(h.rt)

	sess, err := svc.Start(context.Background(), "p1", "c1", entity.ModeRewrite)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, sess.TargetRange)
	assert.Equal(t, entity.Range{Start: 4, End: 11}, *sess.TargetRange)

	events := collectEvents(t, h, sess.ID)
	assert.Equal(t, []entity.EventKind{
		entity.EventThinking,
		entity.EventChunk,
		entity.EventChunk,
		entity.EventThinkingEnd,
		entity.EventEnd,
		entity.EventClosed,
	}, kinds(events))

	assert.Equal(t, "The dog stood on the mat.", doc.Buffer.Text())
	assert.Equal(t, entity.SessionCommitted, sess.State())

	ctrl, err := svc.Controller("p1", "c1")
	require.NoError(t, err)
	assert.False(t, ctrl.Busy())
	assert.Nil(t, ctrl.Active())

	prompt := m.lastPrompt()
	assert.Contains(t, prompt, "cat sat")
	assert.Contains(t, prompt, "The cat sat on the mat.")
	assert.Contains(t, prompt, "wry, short sentences")

	ok, err := h.locker.Acquire(context.Background(), "doc:p1/c1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "document lock released at end")
}

func TestRewriteIgnoresSecondRequestWhileInFlight(t *testing.T) {
	gate := make(chan struct{})
	m := &fakeChatModel{chunks: []string{"dog"}, gate: gate}
	h := newHarness(t, m)
	doc := h.openDoc(t, 4, 7)
	svc := NewRewriteService(h.rt)

	first, err := svc.Start(context.Background(), "p1", "c1", entity.ModeRewrite)
	require.NoError(t, err)
	require.NotNil(t, first)
	afterFirst := doc.Buffer.Text()
	assert.Equal(t, "The  sat on the mat.", afterFirst)

	doc.Buffer.SetSelection(entity.Range{Start: 5, End: 8})
	second, err := svc.Start(context.Background(), "p1", "c1", entity.ModeShorten)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, afterFirst, doc.Buffer.Text(), "ignored request leaves the document untouched")

	close(gate)
	collectEvents(t, h, first.ID)
	assert.Equal(t, 1, m.calls())
}

func TestRewriteEmptySelectionIsNoop(t *testing.T) {
	m := &fakeChatModel{chunks: []string{"x"}}
	h := newHarness(t, m)
	doc := h.openDoc(t, 0, 0)
	doc.Buffer.SetCursor(3)
	svc := NewRewriteService(h.rt)

	sess, err := svc.Start(context.Background(), "p1", "c1", entity.ModeLengthen)
	require.NoError(t, err)
	assert.Nil(t, sess)

	assert.Equal(t, "The cat sat on the mat.", doc.Buffer.Text())
	assert.Equal(t, 0, m.calls())
	assert.Empty(t, h.resolver.seen)

	ctrl, err := svc.Controller("p1", "c1")
	require.NoError(t, err)
	assert.False(t, ctrl.Busy())
}

func TestRewriteErrorMarkerAfterPartialChunks(t *testing.T) {
	m := &fakeChatModel{chunks: []string{"Partial "}, recvErr: stderrors.New("connection reset")}
	h := newHarness(t, m)
	doc := h.openDoc(t, 4, 11)
	svc := NewRewriteService(h.rt)

	sess, err := svc.Start(context.Background(), "p1", "c1", entity.ModeShorten)
	require.NoError(t, err)
	require.NotNil(t, sess)

	events := collectEvents(t, h, sess.ID)
	assert.Equal(t, []entity.EventKind{
		entity.EventThinking,
		entity.EventChunk,
		entity.EventThinkingEnd,
		entity.EventError,
		entity.EventClosed,
	}, kinds(events))
	assert.Equal(t, "connection reset", events[3].Message)

	assert.Equal(t, "The Partial [Shorten Error: connection reset] on the mat.", doc.Buffer.Text())
	assert.Equal(t, entity.SessionFailed, sess.State())

	ctrl, err := svc.Controller("p1", "c1")
	require.NoError(t, err)
	assert.False(t, ctrl.Busy(), "flag cleared after error")
}

func TestRewriteConfigurationErrorBeforeDeletion(t *testing.T) {
	h := newHarness(t, &fakeChatModel{})
	h.resolver.err = errors.ConfigurationError("openai api key is not configured")
	doc := h.openDoc(t, 4, 11)
	svc := NewRewriteService(h.rt)

	sess, err := svc.Start(context.Background(), "p1", "c1", entity.ModeRewrite)
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Equal(t, "The cat sat on the mat.", doc.Buffer.Text())

	ctrl, err := svc.Controller("p1", "c1")
	require.NoError(t, err)
	assert.False(t, ctrl.Busy())
}

func TestRewriteBusyWhenDocumentLockHeld(t *testing.T) {
	h := newHarness(t, &fakeChatModel{chunks: []string{"x"}})
	doc := h.openDoc(t, 4, 11)
	ok, err := h.locker.Acquire(context.Background(), "doc:p1/c1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	svc := NewRewriteService(h.rt)
	sess, err := svc.Start(context.Background(), "p1", "c1", entity.ModeRewrite)
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, errors.HasCode(err, errors.CodeBusy))
	assert.Equal(t, "The cat sat on the mat.", doc.Buffer.Text())
}

func TestRewriteRejectsNonSelectionMode(t *testing.T) {
	h := newHarness(t, &fakeChatModel{})
	h.openDoc(t, 4, 11)
	svc := NewRewriteService(h.rt)

	_, err := svc.Start(context.Background(), "p1", "c1", entity.ModeCritique)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidParam))

	_, err = svc.Start(context.Background(), "p1", "missing", entity.ModeRewrite)
	assert.True(t, errors.HasCode(err, errors.CodeDocumentNotOpen))
}

func TestErrorMarker(t *testing.T) {
	assert.Equal(t, "[Lengthen Error: request timed out]", ErrorMarker(entity.ModeLengthen, "request timed out"))
}
