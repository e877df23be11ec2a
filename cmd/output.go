package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/kass/go-geofence/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6"))

	blockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	allowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#50FA7B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))
)

// printer writes human readable output, styled only on a terminal
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w}
	if f, ok := w.(*os.File); ok {
		p.styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

func (p *printer) render(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

func (p *printer) title(text string) {
	fmt.Fprintln(p.w, p.render(titleStyle, text))
}

func (p *printer) field(label string, value any) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(dimStyle, fmt.Sprintf("%-18s", label+":")), p.render(statStyle, fmt.Sprint(value)))
}

func (p *printer) action(a models.Action) string {
	if a == models.ActionBlock {
		return p.render(blockStyle, string(a))
	}
	return p.render(allowStyle, string(a))
}

func (p *printer) containment(res *models.ContainmentResult) {
	fmt.Fprintf(p.w, "%s  %.6f, %.6f  risk=%s\n",
		p.action(res.Action), res.Location.Lat, res.Location.Lon, res.RiskLevel)
	if res.Zone != nil {
		p.field("zone", zoneLabel(*res.Zone))
	}
}

func (p *printer) nearest(res *models.NearestResult, maxMeters float64) {
	if res == nil {
		fmt.Fprintf(p.w, "%s\n", p.render(dimStyle, fmt.Sprintf("no zone within %.0f m", maxMeters)))
		return
	}
	p.field("zone", zoneLabel(res.Zone))
	p.field("distance", fmt.Sprintf("%.1f m (%.3f km)", res.DistanceMeters, res.DistanceKm()))
}

func (p *printer) stats(s models.Stats) {
	p.title("Zone snapshot")
	p.field("version", s.Version)
	p.field("built", s.BuiltAt.Format("2006-01-02 15:04:05"))
	p.field("zones", s.TotalZones)
	p.field("rejected", s.RejectedRecords)
	p.field("buffer", fmt.Sprintf("%.0f m", s.BufferMeters))
	p.field("with name", s.WithName)
	p.field("with operator", s.WithOperator)
	if s.Degraded {
		p.field("status", p.render(blockStyle, "DEGRADED"))
	}

	regions := make([]string, 0, len(s.ByRegion))
	for r := range s.ByRegion {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool {
		if s.ByRegion[regions[i]] != s.ByRegion[regions[j]] {
			return s.ByRegion[regions[i]] > s.ByRegion[regions[j]]
		}
		return regions[i] < regions[j]
	})
	for _, r := range regions {
		p.field("  "+r, s.ByRegion[r])
	}
}

func zoneLabel(z models.ZoneRef) string {
	label := z.ID
	if z.Name != "" {
		label += " " + z.Name
	}
	if z.Region != "" {
		label += " (" + z.Region + ")"
	}
	return label
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
