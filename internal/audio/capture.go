package audio

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Capture listens on a PortAudio input and keeps a mono history long enough for
// tempo estimation as well as per-frame analysis.
type Capture struct {
	stream     *portaudio.Stream
	sampleRate float64
	channels   int
	device     *portaudio.DeviceInfo

	mu      sync.RWMutex
	history []float32
	index   int
	filled  bool
	mono    []float32
}

// Config controls how a Capture instance is created.
type Config struct {
	DeviceName     string
	HistorySeconds float64
	Channels       int
}

const defaultHistorySeconds = 10

// NewCapture opens and starts a PortAudio input stream.
func NewCapture(cfg Config) (*Capture, error) {
	if cfg.HistorySeconds <= 0 {
		cfg.HistorySeconds = defaultHistorySeconds
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	if device.MaxInputChannels < cfg.Channels {
		cfg.Channels = device.MaxInputChannels
	}

	sampleRate := device.DefaultSampleRate
	c := &Capture{
		sampleRate: sampleRate,
		channels:   cfg.Channels,
		device:     device,
		history:    make([]float32, int(sampleRate*cfg.HistorySeconds)),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, c.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c.stream = stream

	if err := c.stream.Start(); err != nil {
		_ = c.stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return c, nil
}

// Close stops and closes the underlying stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil && !errorsIsInvalidStreamState(err) {
		return err
	}
	return c.stream.Close()
}

// SampleRate returns the stream sample rate.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Name returns the device name.
func (c *Capture) Name() string {
	if c.device == nil {
		return ""
	}
	return c.device.Name
}

// Recent returns a copy of the last n captured samples, oldest first. Missing
// history is zero-filled at the front.
func (c *Capture) Recent(n int) []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return recent(c.history, c.index, n)
}

// Buffer returns the whole captured history, oldest first.
func (c *Capture) Buffer() []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.filled {
		return append([]float32(nil), c.history[:c.index]...)
	}
	return recent(c.history, c.index, len(c.history))
}

func (c *Capture) process(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channels > 1 {
		frames := len(in) / c.channels
		if cap(c.mono) < frames {
			c.mono = make([]float32, frames)
		}
		c.mono = c.mono[:frames]
		for i := range c.mono {
			sum := float32(0)
			base := i * c.channels
			for ch := 0; ch < c.channels; ch++ {
				sum += in[base+ch]
			}
			c.mono[i] = sum / float32(c.channels)
		}
		in = c.mono
	}
	c.index, c.filled = write(c.history, c.index, c.filled, in)
}

// write appends in to the ring buffer starting at index.
func write(ring []float32, index int, filled bool, in []float32) (int, bool) {
	if len(in) >= len(ring) {
		copy(ring, in[len(in)-len(ring):])
		return 0, true
	}
	n := copy(ring[index:], in)
	if n < len(in) {
		copy(ring, in[n:])
		return len(in) - n, true
	}
	index += n
	if index == len(ring) {
		return 0, true
	}
	return index, filled
}

// recent copies the n samples preceding index out of the ring buffer.
func recent(ring []float32, index, n int) []float32 {
	out := make([]float32, n)
	if n > len(ring) {
		n = len(ring)
	}
	dst := out[len(out)-n:]
	start := index - n
	if start >= 0 {
		copy(dst, ring[start:index])
		return out
	}
	k := copy(dst, ring[len(ring)+start:])
	copy(dst[k:], ring[:index])
	return out
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name)
	}
	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil && dev.MaxInputChannels > 0 {
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	if candidate := pickBestDevice(devices); candidate != nil {
		return candidate, nil
	}
	return nil, fmt.Errorf("no suitable audio input device found")
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("audio device %q not found", name)
}

// pickBestDevice prefers loopback style inputs so the visuals follow what is playing.
func pickBestDevice(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	keywords := []string{"monitor", "loopback", "stereo mix", "what u hear"}
	var candidates []*portaudio.DeviceInfo
	score := map[*portaudio.DeviceInfo]int{}
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		s := d.MaxInputChannels
		lower := strings.ToLower(d.Name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				s += 20
				break
			}
		}
		score[d] = s
		candidates = append(candidates, d)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return score[candidates[i]] > score[candidates[j]]
	})
	return candidates[0]
}

// errorsIsInvalidStreamState checks if err stems from stopping an already stopped stream.
func errorsIsInvalidStreamState(err error) bool {
	return err != nil && strings.Contains(err.Error(), "PaErrorCode -9986")
}

// AutoDetectDevice returns the best available input device.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	return findDevice("")
}
