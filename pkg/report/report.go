// Package report prints run summaries and per-frame associations for the CLI.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/1F47E/rider-index/pkg/models"
	"github.com/1F47E/rider-index/pkg/pipeline"
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes human-readable output, styled when color is enabled
type Printer struct {
	w       io.Writer
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
}

// NewPrinter creates a printer. Without color every style renders plain text.
func NewPrinter(w io.Writer, color bool) *Printer {
	p := &Printer{
		w:       w,
		title:   lipgloss.NewStyle(),
		label:   lipgloss.NewStyle(),
		value:   lipgloss.NewStyle(),
		success: lipgloss.NewStyle(),
		info:    lipgloss.NewStyle(),
	}
	if color {
		p.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF79C6"))
		p.label = lipgloss.NewStyle().Bold(true)
		p.value = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C"))
		p.success = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
		p.info = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
	}
	return p
}

func (p *Printer) Title(title string) {
	fmt.Fprintf(p.w, "\n%s\n%s\n", p.title.Render(title), strings.Repeat("=", 60))
}

func (p *Printer) Stat(label string, value interface{}) {
	fmt.Fprintf(p.w, "  %s %s\n", p.label.Render(label+":"), p.value.Render(fmt.Sprint(value)))
}

func (p *Printer) Success(message string) {
	fmt.Fprintln(p.w, p.success.Render("✓ "+message))
}

func (p *Printer) Info(message string) {
	fmt.Fprintln(p.w, p.info.Render("• "+message))
}

// Frame prints the routing counts and rider assignments of one frame
func (p *Printer) Frame(r pipeline.Result) {
	counts := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		counts = append(counts, fmt.Sprintf("%s=%d", c, len(r.Buckets.Get(c))))
	}
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render(fmt.Sprintf("frame %d", r.Frame.Index)), strings.Join(counts, " "))

	for _, id := range r.Associations.TrackIDs() {
		entry := r.Associations[id]
		riders := make([]string, 0, len(entry.Riders))
		for _, rider := range entry.Riders {
			riders = append(riders, rider.Label())
		}
		fmt.Fprintf(p.w, "  motorcycle %d %s riders: [%s]\n",
			id, entry.Motorcycle.BBox, p.value.Render(strings.Join(riders, ", ")))
	}
}

// Summary prints the totals of a run
func (p *Printer) Summary(stats pipeline.Stats) {
	p.Title("Run Summary")
	p.Stat("Frames read", stats.FramesRead)
	p.Stat("Frames processed", stats.FramesProcessed)
	p.Stat("Detections", stats.Detections)
	p.Stat("Riders assigned", stats.Riders)
	p.Stat("Duration", stats.Duration.Round(time.Millisecond))
	p.Stat("Pipeline FPS", fmt.Sprintf("%.1f", stats.FPS()))
}
