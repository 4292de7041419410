package app

import (
	"fmt"
	"log"
	"os"
	"time"
)

// profiler appends per-frame section timings as CSV. A nil profiler is a no-op.
type profiler struct {
	file  *os.File
	frame uint64
	start time.Time
	last  time.Time
}

func newProfiler(path string, logger *log.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Printf("profiler disabled: %v", err)
		return nil
	}
	fmt.Fprintln(f, "timestamp,frame,section,delta_ms")
	return &profiler{file: f}
}

func (p *profiler) beginFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	p.frame++
	p.start = now
	p.last = now
}

func (p *profiler) markSection(name string) {
	if p == nil {
		return
	}
	now := time.Now()
	p.write(name, now.Sub(p.last))
	p.last = now
}

func (p *profiler) endFrame() {
	if p == nil {
		return
	}
	p.write("frame_total", time.Since(p.start))
}

func (p *profiler) Close() error {
	if p == nil {
		return nil
	}
	return p.file.Close()
}

func (p *profiler) write(section string, d time.Duration) {
	fmt.Fprintf(p.file, "%s,%d,%s,%.3f\n", time.Now().Format(time.RFC3339Nano), p.frame, section, d.Seconds()*1000)
}
