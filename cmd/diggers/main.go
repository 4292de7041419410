package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/guidoenr/diggers/internal/app"
	"github.com/guidoenr/diggers/internal/audio"
	"github.com/guidoenr/diggers/internal/render"
	"golang.org/x/term"
)

var version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Version          bool    `short:"v" help:"Show version information"`
	Device           string  `name:"audio-device" help:"PortAudio input device name (substring match), implies --live"`
	Live             bool    `help:"Capture from an input device instead of the synthetic loop"`
	LoopBPM          float64 `name:"loop-bpm" default:"120" help:"Tempo of the synthetic loop"`
	Width            int     `default:"80" help:"Frame width when the terminal size is unknown"`
	Height           int     `default:"24" help:"Frame height when the terminal size is unknown"`
	FPS              float64 `default:"30" help:"Target frames per second"`
	FFTSize          int     `name:"fft-size" default:"1024" help:"Analyser FFT size (power of two, multiple of 32)"`
	Alpha            float64 `default:"1" help:"Smoothing factor in [0,1], 1 keeps only the newest frame"`
	Fellows          int     `default:"5" help:"Number of diggers in the lineup"`
	ZoneRatio        bool    `name:"zone-ratio" help:"Also publish the mid zone ratio classifier"`
	Status           bool    `default:"true" negatable:"" help:"Display status bar"`
	NoColor          bool    `name:"no-color" help:"Disable ANSI color output"`
	Window           bool    `help:"Open an SDL window (requires the sdl build tag)"`
	Web              string  `placeholder:"ADDR" help:"Serve the status page and toggle API on this address, e.g. :8080"`
	Profile          string  `type:"path" help:"Append per-frame timings as CSV to this file"`
	Seed             int64   `help:"Random seed for flips and the loop noise (0 picks one)"`
	Debug            bool    `help:"Enable verbose logging"`
	ListAudioDevices bool    `name:"list-audio-devices" help:"List available audio input devices and exit"`
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("diggers"),
		kong.Description("A lineup of diggers moving to the beat in your terminal"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if cli.Version {
		fmt.Printf("diggers %s\n", version)
		os.Exit(0)
	}
	if cli.Width <= 0 || cli.Height <= 0 {
		kctx.Fatalf("invalid dimensions: width=%d height=%d", cli.Width, cli.Height)
	}
	if cli.FPS <= 0 {
		kctx.Fatalf("fps must be positive (got %.2f)", cli.FPS)
	}
	if cli.FFTSize <= 0 || cli.FFTSize&(cli.FFTSize-1) != 0 || cli.FFTSize < 64 {
		kctx.Fatalf("fft-size must be a power of two >= 64 (got %d)", cli.FFTSize)
	}
	if cli.Window && !render.SupportsWindow() {
		kctx.Fatalf("--window needs a build with -tags sdl")
	}

	width, height := cli.Width, cli.Height
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if w > 0 {
			width = w
		}
		if h > 0 {
			height = h
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stdout, "[diggers] ", log.LstdFlags)
	if !cli.Debug {
		logger.SetOutput(os.Stderr)
		logger.SetFlags(0)
	}

	live := cli.Live || cli.Device != ""
	if live || cli.ListAudioDevices {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if cli.ListAudioDevices {
		if err := listDevices(); err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		return
	}

	a, err := app.New(app.Config{
		DeviceName:    cli.Device,
		Live:          live,
		LoopBPM:       cli.LoopBPM,
		Width:         width,
		Height:        height,
		TargetFPS:     cli.FPS,
		FFTSize:       cli.FFTSize,
		Alpha:         &cli.Alpha,
		Fellows:       cli.Fellows,
		ZoneRatio:     cli.ZoneRatio,
		ShowStatusBar: cli.Status,
		UseANSI:       !cli.NoColor,
		Window:        cli.Window,
		WebAddr:       cli.Web,
		ProfilePath:   cli.Profile,
		Seed:          cli.Seed,
		Log:           logger,
	})
	if err != nil {
		logger.Fatalf("failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if err := a.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nExiting...")
			return
		}
		logger.Printf("runtime error: %v", err)
		return
	}

	time.Sleep(50 * time.Millisecond)
}

func listDevices() error {
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}
	fmt.Printf("\n=== Audio Input Devices ===\n\n")
	for _, dev := range devices {
		marker := ""
		if dev.IsDefaultInput {
			marker = " (default)"
		}
		fmt.Printf("- %s [%s]%s\n    inputs:%d sample:%.0f Hz\n",
			dev.Name, dev.HostAPI, marker, dev.MaxInput, dev.DefaultSampleHz)
	}
	if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
		fmt.Printf("\nAuto-detected input: %s (%.0f Hz, %d channels)\n", dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
	}
	return nil
}
