package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/capture"
	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/models"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
)

var (
	ErrVoiceBusy       = errors.New("voice update is being submitted")
	ErrNotRecording    = errors.New("not recording")
	ErrNothingToSubmit = errors.New("no recording to submit")
	ErrVoiceClosed     = errors.New("voice capture closed")
)

type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceRecording
	VoiceStopped
	VoiceSubmitting
	VoiceSucceeded
)

func (s VoiceState) String() string {
	switch s {
	case VoiceIdle:
		return "idle"
	case VoiceRecording:
		return "recording"
	case VoiceStopped:
		return "stopped"
	case VoiceSubmitting:
		return "submitting"
	case VoiceSucceeded:
		return "succeeded"
	default:
		return fmt.Sprintf("VoiceState(%d)", int(s))
	}
}

type VoiceOptions struct {
	Constraints capture.Constraints
	Filename    string
	ContentType string
	// AutoClose is how long a successful result stays up before Close runs.
	AutoClose time.Duration
	// OnClose is called once, after Close.
	OnClose func()
}

// Voice records a spoken inventory update, uploads it for transcription
// and refreshes the inventory with the outcome.
//
// A failed submission returns to the stopped state with the recording
// kept, so it can be retried. Results that arrive after Close, Clear or a
// new Start are dropped.
type Voice struct {
	client  client.Client
	session *Session
	inv     *Inventory
	device  capture.Device
	opts    VoiceOptions
	log     logging.Logger

	mu     sync.Mutex
	state  VoiceState
	rec    *capture.Session
	audio  []byte
	result *models.VoiceResult
	err    error
	gen    uint64
	timer  *time.Timer
	closed bool

	done      chan struct{}
	closeOnce sync.Once
}

func NewVoice(c client.Client, s *Session, inv *Inventory, dev capture.Device, opts VoiceOptions, log logging.Logger) *Voice {
	if opts.Filename == "" {
		opts.Filename = "recording.wav"
	}
	if opts.ContentType == "" {
		opts.ContentType = "audio/wav"
	}
	if opts.AutoClose <= 0 {
		opts.AutoClose = 3 * time.Second
	}
	return &Voice{
		client:  c,
		session: s,
		inv:     inv,
		device:  dev,
		opts:    opts,
		log:     log.With("module", "voice"),
		done:    make(chan struct{}),
	}
}

// Start opens the capture device. A recording already in progress is
// discarded first.
func (v *Voice) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrVoiceClosed
	}
	if v.state == VoiceSubmitting {
		v.mu.Unlock()
		return ErrVoiceBusy
	}
	prev := v.reset()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	if prev != nil {
		prev.Discard()
		v.log.Debug(ctx, "previous recording discarded", "session", prev.ID())
	}

	rec, err := capture.Start(ctx, v.device, v.opts.Constraints)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.gen {
		if rec != nil {
			rec.Discard()
		}
		return ErrVoiceClosed
	}
	if err != nil {
		v.err = err
		v.log.Warn(ctx, "capture device unavailable", "error", err)
		return fmt.Errorf("start recording: %w", err)
	}
	v.rec = rec
	v.state = VoiceRecording
	v.log.Debug(ctx, "recording", "session", rec.ID())
	return nil
}

// reset drops everything but the generation and returns the active capture
// session for the caller to release outside the lock.
func (v *Voice) reset() *capture.Session {
	rec := v.rec
	v.rec = nil
	v.state = VoiceIdle
	v.audio = nil
	v.result = nil
	v.err = nil
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	return rec
}

// Stop releases the device and keeps the recording for Submit. With
// nothing captured it returns capture.ErrNoAudio and goes back to idle.
func (v *Voice) Stop() error {
	v.mu.Lock()
	if v.state != VoiceRecording {
		v.mu.Unlock()
		return ErrNotRecording
	}
	rec := v.rec
	v.rec = nil
	gen := v.gen
	v.mu.Unlock()

	data, err := rec.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return ErrVoiceClosed
	}
	if err != nil {
		v.state = VoiceIdle
		v.err = err
		return err
	}
	v.audio = data
	v.state = VoiceStopped
	return nil
}

// Submit uploads the recording. On success the inventory is refreshed once
// and Close is scheduled after the auto-close delay.
func (v *Voice) Submit(ctx context.Context) (models.VoiceResult, error) {
	tok, err := v.session.RequireToken()
	if err != nil {
		return models.VoiceResult{}, err
	}

	v.mu.Lock()
	if v.state == VoiceSubmitting {
		v.mu.Unlock()
		return models.VoiceResult{}, ErrVoiceBusy
	}
	if v.state != VoiceStopped || len(v.audio) == 0 {
		v.mu.Unlock()
		return models.VoiceResult{}, ErrNothingToSubmit
	}
	v.state = VoiceSubmitting
	v.err = nil
	gen := v.gen
	up := client.VoiceUpload{Data: v.audio, Filename: v.opts.Filename, ContentType: v.opts.ContentType}
	v.mu.Unlock()

	res, err := v.client.SubmitVoice(ctx, tok, up)

	v.mu.Lock()
	if v.closed || gen != v.gen {
		v.mu.Unlock()
		v.log.Debug(ctx, "discarding voice result after close")
		return models.VoiceResult{}, ErrVoiceClosed
	}
	if err != nil {
		v.state = VoiceStopped
		v.err = err
		v.mu.Unlock()
		v.session.Observe(ctx, err)
		v.log.Warn(ctx, "voice update failed", "error", err)
		return models.VoiceResult{}, fmt.Errorf("submit voice update: %w", err)
	}
	v.state = VoiceSucceeded
	v.result = &res
	v.mu.Unlock()

	v.log.Info(ctx, "voice update applied", "item", res.Item, "action", res.Action, "quantity", res.Quantity)
	v.inv.reconcile(ctx)

	v.mu.Lock()
	if !v.closed && gen == v.gen && v.state == VoiceSucceeded {
		v.timer = time.AfterFunc(v.opts.AutoClose, v.Close)
	}
	v.mu.Unlock()
	return res, nil
}

// Clear discards the recording and any result and goes back to idle.
func (v *Voice) Clear() {
	v.mu.Lock()
	prev := v.reset()
	v.gen++
	v.mu.Unlock()

	if prev != nil {
		prev.Discard()
	}
}

// Close releases the device, cancels the auto-close timer and drops any
// result still in flight. It is safe to call more than once.
func (v *Voice) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		v.gen++
		prev := v.rec
		v.rec = nil
		if v.timer != nil {
			v.timer.Stop()
			v.timer = nil
		}
		v.mu.Unlock()

		if prev != nil {
			prev.Discard()
		}
		close(v.done)
		if v.opts.OnClose != nil {
			v.opts.OnClose()
		}
	})
}

// Ended is closed when the active recording's stream runs dry. It returns
// nil when nothing is recording.
func (v *Voice) Ended() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rec == nil {
		return nil
	}
	return v.rec.Done()
}

// Done is closed once Close has run.
func (v *Voice) Done() <-chan struct{} { return v.done }

func (v *Voice) State() VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Voice) Result() (models.VoiceResult, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.result == nil {
		return models.VoiceResult{}, false
	}
	return *v.result, true
}

// Err is the last recording or submission error.
func (v *Voice) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *Voice) HasAudio() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.audio) > 0
}
