// Package ui provides stderr-based progress output for proofreel.
package ui

import (
	"fmt"
	"os"
	"time"
)

// ANSI color codes.
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	blue    = "\033[34m"
	yellow  = "\033[33m"
	green   = "\033[32m"
	red     = "\033[31m"
	cyan    = "\033[36m"
	magenta = "\033[35m"
)

// UI receives pipeline progress callbacks. All methods must be safe for
// concurrent use; scenes report from separate goroutines.
type UI interface {
	RunStarted(theorem string, scenes int)
	SceneStarted(index int, title string)
	AttemptFailed(index, attempt, max int, kind string)
	SceneRendered(index, attempt int, duration time.Duration)
	SceneFailed(index int, reason string)
	NarrationReady(index int, duration time.Duration)
	AssemblyStarted(count int)
	RunComplete(path string)
	Error(msg string)
	Info(msg string)
}

type Printer struct{}

func New() *Printer {
	return &Printer{}
}

func (p *Printer) Banner() {
	fmt.Fprintln(os.Stderr, bold+cyan+"  ╔════════════════════════════════════╗"+reset)
	fmt.Fprintln(os.Stderr, bold+cyan+"  ║"+reset+bold+"  PROOFREEL "+dim+"theorem video pipeline"+reset+bold+cyan+"  ║"+reset)
	fmt.Fprintln(os.Stderr, bold+cyan+"  ╚════════════════════════════════════╝"+reset)
	fmt.Fprintln(os.Stderr)
}

func (p *Printer) RunStarted(theorem string, scenes int) {
	fmt.Fprintf(os.Stderr, cyan+"◆ run"+reset+" %s — %d scene(s)\n", theorem, scenes)
}

func (p *Printer) SceneStarted(index int, title string) {
	fmt.Fprintf(os.Stderr, "\n"+bold+magenta+"── scene %d ──"+reset+" %s\n", index, title)
}

func (p *Printer) AttemptFailed(index, attempt, max int, kind string) {
	fmt.Fprintf(os.Stderr, yellow+bold+"⚠ scene %d"+reset+" attempt %d/%d failed (%s) — requesting fix\n",
		index, attempt, max, kind)
}

func (p *Printer) SceneRendered(index, attempt int, duration time.Duration) {
	fmt.Fprintf(os.Stderr, blue+"✓ scene %d"+reset+dim+" rendered on attempt %d (%.1fs)"+reset+"\n",
		index, attempt, duration.Seconds())
}

func (p *Printer) SceneFailed(index int, reason string) {
	fmt.Fprintf(os.Stderr, red+bold+"✗ scene %d failed"+reset+" — %s\n", index, reason)
}

func (p *Printer) NarrationReady(index int, duration time.Duration) {
	fmt.Fprintf(os.Stderr, green+"♪ scene %d"+reset+dim+" narration ready (%.1fs)"+reset+"\n",
		index, duration.Seconds())
}

func (p *Printer) AssemblyStarted(count int) {
	fmt.Fprintf(os.Stderr, "\n"+bold+"assembling %d segment(s)"+reset+"\n", count)
}

func (p *Printer) RunComplete(path string) {
	fmt.Fprintf(os.Stderr, green+bold+"✓ final video"+reset+" %s\n", path)
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(os.Stderr, red+bold+"error: "+reset+"%s\n", msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintf(os.Stderr, dim+"%s"+reset+"\n", msg)
}
