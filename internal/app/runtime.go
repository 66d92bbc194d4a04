// Package app wires the avatar controller and speech coordinator into one
// frame loop and feeds them host commands.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/tutoravatar/internal/avatar"
	"github.com/normanking/tutoravatar/internal/cue"
	"github.com/normanking/tutoravatar/internal/metrics"
	"github.com/normanking/tutoravatar/internal/speech"
)

// Snapshot is what frame observers receive.
type Snapshot struct {
	Frame         uint64       `json:"frame"`
	Avatar        avatar.State `json:"avatar"`
	Speaking      bool         `json:"speaking"`
	SpeechEnabled bool         `json:"speech_enabled"`
}

// Runtime drains host commands once per frame, then ticks the speech
// coordinator and the avatar in that order.
type Runtime struct {
	avatar  *avatar.Controller
	speech  *speech.Coordinator
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending []Command
	ctx     context.Context

	omu       sync.RWMutex
	observers []func(Snapshot)

	frames uint64
}

// NewRuntime creates a runtime around an existing controller and
// coordinator.
func NewRuntime(ctrl *avatar.Controller, coord *speech.Coordinator, logger zerolog.Logger, m *metrics.Metrics) *Runtime {
	return &Runtime{
		avatar:  ctrl,
		speech:  coord,
		logger:  logger,
		metrics: m,
		ctx:     context.Background(),
	}
}

// Avatar returns the controller.
func (r *Runtime) Avatar() *avatar.Controller { return r.avatar }

// Speech returns the coordinator.
func (r *Runtime) Speech() *speech.Coordinator { return r.speech }

// Post queues a command for the next frame. Safe from any goroutine.
func (r *Runtime) Post(cmd Command) {
	r.mu.Lock()
	r.pending = append(r.pending, cmd)
	r.mu.Unlock()
}

// OnFrame registers an observer called at the end of every frame. It runs
// on the frame loop and must not block.
func (r *Runtime) OnFrame(fn func(Snapshot)) {
	r.omu.Lock()
	r.observers = append(r.observers, fn)
	r.omu.Unlock()
}

// Frame runs one frame at now.
func (r *Runtime) Frame(now time.Time) Snapshot {
	began := time.Now()

	r.mu.Lock()
	cmds := r.pending
	r.pending = nil
	ctx := r.ctx
	r.mu.Unlock()

	for _, cmd := range cmds {
		r.apply(ctx, cmd)
	}

	r.speech.Tick(now)
	r.avatar.Tick(now)

	r.frames++
	snap := Snapshot{
		Frame:         r.frames,
		Avatar:        r.avatar.State(),
		Speaking:      r.speech.Speaking(),
		SpeechEnabled: r.speech.Enabled(),
	}

	r.omu.RLock()
	for _, fn := range r.observers {
		fn(snap)
	}
	r.omu.RUnlock()

	r.metrics.ObserveFrame(time.Since(began))
	return snap
}

// Run drives Frame from a ticker until ctx is done. It is used when no
// window owns the loop.
func (r *Runtime) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = 60
	}
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	r.logger.Info().Int("fps", fps).Msg("Frame loop started")
	for {
		select {
		case <-ctx.Done():
			r.speech.Stop()
			r.logger.Info().Msg("Frame loop stopped")
			return nil
		case now := <-ticker.C:
			r.Frame(now)
		}
	}
}

// SetContext sets the context used for synthesizer calls when another
// loop owns Frame.
func (r *Runtime) SetContext(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
}

func (r *Runtime) apply(ctx context.Context, cmd Command) {
	if err := cmd.Validate(); err != nil {
		r.logger.Warn().Err(err).Msg("Ignoring command")
		return
	}

	switch cmd.Type {
	case CmdEmotion:
		r.avatar.SetEmotion(cmd.Name)
	case CmdGesture:
		r.avatar.TriggerGesture(cmd.Name)
	case CmdStart:
		r.speech.Start(cmd.Text, cmd.WPM)
	case CmdStop:
		r.speech.Stop()
	case CmdSpeak:
		r.speech.Speak(ctx, cmd.Text)
	case CmdTalkStart:
		r.avatar.StartTalking()
	case CmdTalkStop:
		r.avatar.StopTalking()
	case CmdMouth:
		r.avatar.SetMouthOpen(cmd.Amount)
	case CmdSpeechEnabled:
		r.speech.SetEnabled(cmd.Enabled)
	case CmdTutorResponse:
		r.tutorResponse(ctx, cmd)
	}
}

// tutorResponse plays a full tutor reply: face, gesture, then voice.
// Missing labels are filled in from the text.
func (r *Runtime) tutorResponse(ctx context.Context, cmd Command) {
	emotion, gesture := cmd.Emotion, cmd.Gesture
	if emotion == "" || gesture == "" {
		e, g := cue.Detect(cmd.Text, cue.Performance(cmd.Performance))
		if emotion == "" {
			emotion = string(e)
		}
		if gesture == "" {
			gesture = string(g)
		}
	}
	r.logger.Debug().Str("emotion", emotion).Str("gesture", gesture).Msg("Tutor response")

	r.avatar.SetEmotion(emotion)
	r.avatar.TriggerGesture(gesture)
	r.speech.Speak(ctx, cmd.Text)
}
