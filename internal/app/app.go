package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/diggers/internal/analyzer"
	"github.com/guidoenr/diggers/internal/audio"
	"github.com/guidoenr/diggers/internal/params"
	"github.com/guidoenr/diggers/internal/render"
	"github.com/guidoenr/diggers/internal/session"
	"github.com/guidoenr/diggers/internal/tempo"
	"github.com/guidoenr/diggers/internal/web"
	"golang.org/x/term"
)

// ErrBusy is returned by Toggle while the show is being prepared.
var ErrBusy = errors.New("show is loading")

// Source supplies mono audio to the analyser.
type Source interface {
	Recent(n int) []float32
	Buffer() []float32
	SampleRate() float64
	Name() string
}

// player is implemented by sources with their own transport.
type player interface {
	Start()
	Stop()
}

// Config configures the application runtime.
type Config struct {
	DeviceName    string
	Live          bool // capture from an input device instead of the synthetic loop
	LoopBPM       float64
	Width         int
	Height        int
	TargetFPS     float64
	FFTSize       int
	Alpha         *float64 // nil keeps only the newest frame
	Fellows       int
	ZoneRatio     bool // also publish the zone-ratio classifier
	ShowStatusBar bool
	UseANSI       bool
	Window        bool
	WebAddr       string
	ProfilePath   string
	Seed          int64
	Source        Source
	Estimator     tempo.Estimator
	Output        io.Writer
	Log           *log.Logger
}

type inputEvent int

const (
	inputEventToggle inputEvent = iota
	inputEventQuit
)

type showState int

const (
	stateIdle showState = iota
	stateLoading
	statePlaying
	stateStopped
)

func (s showState) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case statePlaying:
		return "playing"
	case stateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

type tempoResult struct {
	tempo tempo.Tempo
	err   error
}

// App ties together the audio source, the analysis session and the presentation.
type App struct {
	cfg       Config
	log       *log.Logger
	out       io.Writer
	source    Source
	capture   *audio.Capture
	spectrum  *analyzer.Spectrum
	session   *session.Session
	params    params.Parameters
	renderer  *render.Renderer
	estimator tempo.Estimator
	profiler  *profiler
	rng       *rand.Rand

	fellows   []render.Fellow
	flipStart []time.Time
	nextMove  time.Time
	digStart  time.Time
	digAmp    string
	fading    []render.Fellow
	fadeUntil time.Time
	frame     analyzer.Frame
	message   string
	fps       float64
	last      time.Time

	toggles     chan struct{}
	tempoResult chan tempoResult
	inputEvents chan inputEvent

	mu       sync.Mutex
	state    showState
	snapshot web.Status

	width        int
	height       int
	renderHeight int
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stdout, "", log.LstdFlags)
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = 1024
	}
	if cfg.Fellows <= 0 {
		cfg.Fellows = 5
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Estimator == nil {
		cfg.Estimator = tempo.NewAutocorrelation()
	}
	renderHeight := cfg.Height
	if cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}

	classifiers, err := session.DefaultClassifiers(cfg.FFTSize)
	if err != nil {
		return nil, err
	}
	if cfg.ZoneRatio {
		ratio, err := analyzer.NewZoneRatio(analyzer.ZoneRatioConfig{
			Name: "midFreqRatio",
			Bins: session.SmoothedBins(cfg.FFTSize),
		})
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, ratio)
	}
	sess, err := session.New(session.Config{
		FFTSize:     cfg.FFTSize,
		Alpha:       cfg.Alpha,
		Classifiers: classifiers,
		Log:         cfg.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	renderer, err := render.New(cfg.Width, renderHeight, cfg.UseANSI, cfg.Window)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:          cfg,
		log:          cfg.Log,
		out:          cfg.Output,
		spectrum:     analyzer.NewSpectrum(analyzer.SpectrumConfig{FFTSize: cfg.FFTSize, TimeConst: analyzer.DefaultTimeConst}),
		session:      sess,
		params:       params.Defaults(),
		renderer:     renderer,
		estimator:    cfg.Estimator,
		profiler:     newProfiler(cfg.ProfilePath, cfg.Log),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		fellows:      make([]render.Fellow, cfg.Fellows),
		flipStart:    make([]time.Time, cfg.Fellows),
		toggles:      make(chan struct{}, 4),
		tempoResult:  make(chan tempoResult, 1),
		width:        cfg.Width,
		height:       cfg.Height,
		renderHeight: renderHeight,
		message:      "press space to start",
	}

	switch {
	case cfg.Source != nil:
		a.source = cfg.Source
	case cfg.Live:
		capture, err := audio.NewCapture(audio.Config{DeviceName: cfg.DeviceName, Channels: 2})
		if err != nil {
			_ = renderer.Close()
			return nil, fmt.Errorf("audio capture: %w", err)
		}
		a.capture = capture
		a.source = capture
		a.log.Printf("audio capture started on %q @ %.0f Hz", capture.Name(), capture.SampleRate())
	default:
		a.source = audio.NewLoop(audio.LoopConfig{BPM: cfg.LoopBPM, Seed: cfg.Seed})
		a.log.Printf("using synthetic beat loop")
	}

	a.digAmp = a.session.LevelOutput()
	a.publish()
	return a, nil
}

// Run starts the render loop until context cancellation or quit.
func (a *App) Run(ctx context.Context) error {
	frameDuration := time.Duration(float64(time.Second) / a.cfg.TargetFPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	if a.cfg.WebAddr != "" {
		srv := web.NewServer(a, a.log)
		go func() {
			if err := srv.Start(ctx, a.cfg.WebAddr); err != nil {
				a.log.Printf("[web] %v", err)
			}
		}()
	}

	enterAltScreen(a.out)
	clearScreen(a.out)
	hideCursor(a.out)
	defer func() {
		showCursor(a.out)
		exitAltScreen(a.out)
	}()

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	a.startInputListener(inputCtx)
	a.ensureDimensions()
	a.last = time.Now()

	for {
		select {
		case <-ctx.Done():
			moveCursorHome(a.out)
			return ctx.Err()
		case evt, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			switch evt {
			case inputEventToggle:
				_ = a.Toggle()
			case inputEventQuit:
				moveCursorHome(a.out)
				return nil
			}
		case now := <-ticker.C:
			if err := a.step(ctx, now); err != nil {
				return err
			}
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	a.session.Stop()
	var errs []error
	if a.capture != nil {
		errs = append(errs, a.capture.Close())
	}
	errs = append(errs, a.renderer.Close(), a.profiler.Close())
	return errors.Join(errs...)
}

// Toggle requests a start or stop of the show. It is safe to call from any goroutine;
// the request is applied on the next frame.
func (a *App) Toggle() error {
	a.mu.Lock()
	loading := a.state == stateLoading
	a.mu.Unlock()
	if loading {
		return ErrBusy
	}
	select {
	case a.toggles <- struct{}{}:
	default:
	}
	return nil
}

// Snapshot returns the status published after the last frame.
func (a *App) Snapshot() web.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.snapshot
	st.Values = make(map[string]float64, len(a.snapshot.Values))
	for k, v := range a.snapshot.Values {
		st.Values[k] = v
	}
	return st
}

func (a *App) currentState() showState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *App) setState(s showState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// step runs one frame: pending toggles and tempo results, analysis, moves and drawing.
func (a *App) step(ctx context.Context, now time.Time) error {
	a.profiler.beginFrame()
	a.ensureDimensions()

	if delta := now.Sub(a.last).Seconds(); delta > 0 {
		a.fps = 1 / delta
	}
	a.last = now

	for pending := true; pending; {
		select {
		case <-a.toggles:
			a.toggle(ctx, now)
		case res := <-a.tempoResult:
			a.applyTempo(res, now)
		default:
			pending = false
		}
	}

	if a.currentState() == statePlaying {
		a.frame = a.spectrum.Analyze(a.source.Recent(a.spectrum.FFTSize()))
		if err := a.session.DeliverFrame(a.frame); err != nil {
			return fmt.Errorf("deliver frame: %w", err)
		}
		a.profiler.markSection("analyze")

		for i := range a.fellows {
			if a.fellows[i].Flipping {
				progress := float64(now.Sub(a.flipStart[i])) / float64(a.params.FlipInterval)
				if progress >= 1 {
					a.fellows[i].Flipping = false
				}
				a.fellows[i].Flip = progress
			}
		}
		if !now.Before(a.nextMove) {
			a.moves(now)
			a.nextMove = a.nextMove.Add(a.params.DigInterval)
			if a.nextMove.Before(now) {
				a.nextMove = now.Add(a.params.DigInterval)
			}
		}
	}

	a.publish()
	if err := a.draw(now); err != nil {
		return err
	}
	a.profiler.markSection("render")
	a.profiler.endFrame()
	return nil
}

func (a *App) toggle(ctx context.Context, now time.Time) {
	switch a.currentState() {
	case statePlaying:
		a.stop(now)
	case stateStopped:
		a.play(now)
	case stateIdle:
		a.setState(stateLoading)
		a.message = "Loading..."
		buffer := a.source.Buffer()
		rate := a.source.SampleRate()
		go func() {
			t, err := a.estimator.Estimate(ctx, buffer, rate)
			a.tempoResult <- tempoResult{tempo: t, err: err}
		}()
	}
}

func (a *App) applyTempo(res tempoResult, now time.Time) {
	if res.err != nil {
		a.log.Printf("couldn't guess the tempo: %v", res.err)
	} else {
		a.log.Printf("bpm: %.1f, offset: %.3f", res.tempo.BPM, res.tempo.Offset)
		a.session.SetTempo(res.tempo)
	}
	a.message = "Starting..."
	a.play(now)
}

func (a *App) play(now time.Time) {
	if p, ok := a.source.(player); ok {
		p.Start()
	}
	a.session.Start()
	a.params.ApplyTempo(a.session.Tempo().BPM)
	a.message = ""

	// Everybody opens with a flip; digging starts as it ends.
	for i := range a.fellows {
		a.flip(i, now)
	}
	a.digStart = now.Add(a.params.MovesDelay())
	a.nextMove = a.digStart
	a.setState(statePlaying)
}

func (a *App) stop(now time.Time) {
	// The last pose stays on screen while the lineup fades out.
	a.fading = append(a.fading[:0], a.fellows...)
	a.fadeUntil = now.Add(a.params.FadeOut)
	for i := range a.fellows {
		a.fellows[i] = render.Fellow{}
	}
	if p, ok := a.source.(player); ok {
		p.Stop()
	}
	a.session.Stop()
	a.spectrum.Reset()
	a.frame = analyzer.Frame{}
	a.digAmp = a.session.LevelOutput()
	a.message = "press space to start again"
	a.setState(stateStopped)
}

func (a *App) flip(i int, now time.Time) {
	a.fellows[i].Flipping = true
	a.fellows[i].Flip = 0
	a.flipStart[i] = now
}

// moves runs once per dig beat: random flips weighted by the flip input, then the
// dig amplitude for the coming beat.
func (a *App) moves(now time.Time) {
	input, _ := a.session.Value(a.params.FlipInput)
	for i := range a.fellows {
		if !a.fellows[i].Flipping && a.params.ShouldFlip(input, a.rng.Float64()) {
			a.flip(i, now)
		}
		a.fellows[i].Digging = true
	}
	a.digAmp = a.session.LevelOutput()
}

func (a *App) publish() {
	st := web.Status{
		State:  a.currentState().String(),
		BPM:    a.session.Tempo().BPM,
		Offset: a.session.Tempo().Offset,
		Values: a.session.Values(),
		DigAmp: a.digAmp,
		Level:  a.session.Level(),
		Frames: a.session.Frames(),
		FPS:    a.fps,
		Source: a.source.Name(),
	}
	a.mu.Lock()
	a.snapshot = st
	a.mu.Unlock()
}

func (a *App) draw(now time.Time) error {
	playing := a.currentState() == statePlaying
	amp, maxAmp := a.session.Amplitude()
	phase := 0.0
	if playing && now.After(a.digStart) && a.params.DigInterval > 0 {
		elapsed := now.Sub(a.digStart) % a.params.DigInterval
		phase = float64(elapsed) / float64(a.params.DigInterval)
	}
	fellows, message := a.fellows, a.message
	if !playing && now.Before(a.fadeUntil) {
		fellows, message = a.fading, ""
	}
	view := render.View{
		Fellows:  fellows,
		DigAmp:   amp,
		MaxAmp:   maxAmp,
		DigPhase: phase,
		Time:     a.frame.Time,
		Values:   a.session.Values(),
		AmpLabel: a.digAmp,
		BPM:      a.session.Tempo().BPM,
		Level:    a.session.Level(),
		Playing:  playing,
		Message:  message,
		Source:   a.source.Name(),
		FPS:      a.fps,
	}
	if playing {
		view.Smoothed = a.session.Smoothed()
	}

	frame, err := a.renderer.Render(view)
	if err != nil {
		return err
	}
	moveCursorHome(a.out)
	for _, line := range frame.Lines {
		fmt.Fprintln(a.out, line)
	}
	if a.cfg.ShowStatusBar {
		fmt.Fprintln(a.out, render.StatusBar(frame.Status, a.width, playing, a.cfg.UseANSI))
	}
	return nil
}

func (a *App) ensureDimensions() {
	f, ok := a.out.(*os.File)
	if !ok {
		return
	}
	w, h, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return
	}
	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			switch {
			case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
				events <- inputEventQuit
				return
			case char == 'q' || char == 'Q':
				events <- inputEventQuit
				return
			case key == keyboard.KeySpace || key == keyboard.KeyEnter || char == ' ':
				select {
				case events <- inputEventToggle:
				default:
				}
			}
		}
	}()
}

func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\x1b[2J")
	moveCursorHome(w)
}

func moveCursorHome(w io.Writer) {
	fmt.Fprint(w, "\x1b[H")
}

func hideCursor(w io.Writer) {
	fmt.Fprint(w, "\x1b[?25l")
}

func showCursor(w io.Writer) {
	fmt.Fprint(w, "\x1b[?25h")
}

func enterAltScreen(w io.Writer) {
	fmt.Fprint(w, "\x1b[?1049h")
}

func exitAltScreen(w io.Writer) {
	fmt.Fprint(w, "\x1b[?1049l\x1b[0m")
}
