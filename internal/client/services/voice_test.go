package services

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/capture"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
	"github.com/dmitrijs2005/sitekeeper/internal/testutil/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const voicePath = "/api/voice/update"

type voiceEnv struct {
	*env
	dev    *fakeDevice
	voice  *Voice
	closed *atomic.Int32
}

func newVoiceEnv(t *testing.T, chunks ...[]byte) *voiceEnv {
	t.Helper()
	e := newEnv(t, models.AssetsVariant)
	e.srv.SeedMaterial(models.Material{ID: 7, Name: "Drywall Screws", Unit: "box", Quantity: 4, MinStock: 5})
	e.srv.SetVoiceResult(models.VoiceResult{
		Transcript: "add five boxes of drywall screws",
		Item:       "drywall screws",
		Action:     "add",
		Quantity:   5,
		Type:       "box",
	})
	e.login(t, "demo", "demo123")
	require.NoError(t, e.inv.Refresh(context.Background()))

	dev := &fakeDevice{chunks: chunks}
	closed := &atomic.Int32{}
	v := NewVoice(e.client, e.session, e.inv, dev, VoiceOptions{
		Constraints: capture.DefaultAudioConstraints,
		AutoClose:   50 * time.Millisecond,
		OnClose:     func() { closed.Add(1) },
	}, logging.Discard())
	t.Cleanup(v.Close)
	return &voiceEnv{env: e, dev: dev, voice: v, closed: closed}
}

func TestVoice_SuccessRefreshesOnceAndAutoCloses(t *testing.T) {
	ve := newVoiceEnv(t, []byte("RIFF"), []byte("data"))
	ctx := context.Background()
	assetsBefore := ve.srv.Calls(http.MethodGet, "/api/assets")
	materialsBefore := ve.srv.Calls(http.MethodGet, "/api/assets/materials")

	require.NoError(t, ve.voice.Start(ctx))
	assert.Equal(t, VoiceRecording, ve.voice.State())
	require.NoError(t, ve.voice.Stop())
	assert.Equal(t, VoiceStopped, ve.voice.State())
	assert.True(t, ve.dev.opened()[0].isClosed())

	res, err := ve.voice.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "drywall screws", res.Item)
	assert.Equal(t, 5, res.Quantity)
	assert.Equal(t, VoiceSucceeded, ve.voice.State())
	assert.Equal(t, []byte("RIFFdata"), ve.srv.LastAudio())

	assert.Equal(t, assetsBefore+1, ve.srv.Calls(http.MethodGet, "/api/assets"))
	assert.Equal(t, materialsBefore+1, ve.srv.Calls(http.MethodGet, "/api/assets/materials"))

	m, _ := ve.inv.Material(7)
	assert.Equal(t, 9, m.Quantity)
	assert.False(t, m.NeedsReorder())

	select {
	case <-ve.voice.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("voice capture did not auto-close")
	}
	assert.Equal(t, int32(1), ve.closed.Load())
	assert.Equal(t, materialsBefore+1, ve.srv.Calls(http.MethodGet, "/api/assets/materials"))
}

func TestVoice_StopWithoutAudioNeverUploads(t *testing.T) {
	ve := newVoiceEnv(t)
	ctx := context.Background()

	require.NoError(t, ve.voice.Start(ctx))
	err := ve.voice.Stop()
	require.ErrorIs(t, err, capture.ErrNoAudio)
	assert.Equal(t, "no audio recorded", err.Error())
	assert.Equal(t, VoiceIdle, ve.voice.State())
	assert.True(t, ve.dev.opened()[0].isClosed())

	_, err = ve.voice.Submit(ctx)
	require.ErrorIs(t, err, ErrNothingToSubmit)
	assert.Zero(t, ve.srv.Calls(http.MethodPost, voicePath))
}

func TestVoice_DeviceUnavailable(t *testing.T) {
	ve := newVoiceEnv(t)
	ve.dev.err = assert.AnError

	err := ve.voice.Start(context.Background())
	require.ErrorIs(t, err, capture.ErrDeviceUnavailable)
	assert.Equal(t, VoiceIdle, ve.voice.State())
	assert.ErrorIs(t, ve.voice.Err(), capture.ErrDeviceUnavailable)
}

func TestVoice_FailureKeepsRecordingForRetry(t *testing.T) {
	ve := newVoiceEnv(t, []byte("clip"))
	ctx := context.Background()
	require.NoError(t, ve.voice.Start(ctx))
	require.NoError(t, ve.voice.Stop())

	ve.srv.Fail(http.MethodPost, voicePath, fakeapi.Fault{Status: http.StatusBadRequest, Message: "Could not understand item name from audio", Times: 1})
	_, err := ve.voice.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, VoiceStopped, ve.voice.State())
	assert.True(t, ve.voice.HasAudio())
	assert.Error(t, ve.voice.Err())

	_, ok := ve.voice.Result()
	assert.False(t, ok)

	res, err := ve.voice.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "add", res.Action)
	assert.Equal(t, 2, ve.srv.Calls(http.MethodPost, voicePath))
}

func TestVoice_StartWhileRecordingDiscardsPrevious(t *testing.T) {
	ve := newVoiceEnv(t, []byte("clip"))
	ctx := context.Background()

	require.NoError(t, ve.voice.Start(ctx))
	require.NoError(t, ve.voice.Start(ctx))

	streams := ve.dev.opened()
	require.Len(t, streams, 2)
	assert.True(t, streams[0].isClosed())
	assert.False(t, streams[1].isClosed())
	assert.Equal(t, VoiceRecording, ve.voice.State())

	ve.voice.Clear()
	assert.True(t, streams[1].isClosed())
	assert.Equal(t, VoiceIdle, ve.voice.State())
}

func TestVoice_BusyWhileSubmitting(t *testing.T) {
	ve := newVoiceEnv(t, []byte("clip"))
	ctx := context.Background()
	require.NoError(t, ve.voice.Start(ctx))
	require.NoError(t, ve.voice.Stop())
	release := ve.srv.Hold(http.MethodPost, voicePath)

	done := make(chan error, 1)
	go func() {
		_, err := ve.voice.Submit(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return ve.srv.Calls(http.MethodPost, voicePath) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, VoiceSubmitting, ve.voice.State())

	require.ErrorIs(t, ve.voice.Start(ctx), ErrVoiceBusy)
	_, err := ve.voice.Submit(ctx)
	require.ErrorIs(t, err, ErrVoiceBusy)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, ve.srv.Calls(http.MethodPost, voicePath))
}

func TestVoice_CloseDiscardsLateResult(t *testing.T) {
	ve := newVoiceEnv(t, []byte("clip"))
	ctx := context.Background()
	require.NoError(t, ve.voice.Start(ctx))
	require.NoError(t, ve.voice.Stop())
	materialsBefore := ve.srv.Calls(http.MethodGet, "/api/assets/materials")
	release := ve.srv.Hold(http.MethodPost, voicePath)

	done := make(chan error, 1)
	go func() {
		_, err := ve.voice.Submit(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return ve.srv.Calls(http.MethodPost, voicePath) == 1 }, 2*time.Second, 5*time.Millisecond)

	ve.voice.Close()
	release()
	require.ErrorIs(t, <-done, ErrVoiceClosed)

	_, ok := ve.voice.Result()
	assert.False(t, ok)
	assert.Equal(t, materialsBefore, ve.srv.Calls(http.MethodGet, "/api/assets/materials"))
	assert.Equal(t, int32(1), ve.closed.Load())

	require.ErrorIs(t, ve.voice.Start(ctx), ErrVoiceClosed)
}

func TestVoice_StopWhenNotRecording(t *testing.T) {
	ve := newVoiceEnv(t)
	require.ErrorIs(t, ve.voice.Stop(), ErrNotRecording)
}

func TestVoiceState_String(t *testing.T) {
	assert.Equal(t, "idle", VoiceIdle.String())
	assert.Equal(t, "recording", VoiceRecording.String())
	assert.Equal(t, "stopped", VoiceStopped.String())
	assert.Equal(t, "submitting", VoiceSubmitting.String())
	assert.Equal(t, "succeeded", VoiceSucceeded.String())
	assert.Equal(t, "VoiceState(9)", VoiceState(9).String())
}

func TestVoice_EndedFollowsRecording(t *testing.T) {
	e := newEnv(t, models.AssetsVariant)
	e.login(t, "demo", "demo123")

	p := filepath.Join(t.TempDir(), "rec.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF0000WAVE"), 0o600))

	v := NewVoice(e.client, e.session, e.inv, capture.FileDevice{Path: p}, VoiceOptions{}, logging.Discard())
	t.Cleanup(v.Close)
	assert.Nil(t, v.Ended())

	require.NoError(t, v.Start(context.Background()))
	select {
	case <-v.Ended():
	case <-time.After(time.Second):
		t.Fatal("file recording did not end")
	}

	require.NoError(t, v.Stop())
	assert.True(t, v.HasAudio())
	assert.Nil(t, v.Ended())
}
