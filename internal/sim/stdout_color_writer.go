// ColorStdoutWriter prints human-friendly, colorized rows to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/gookit/color"

	"blackout-sim/internal/config"
	"blackout-sim/internal/sanity"
	"blackout-sim/internal/telemetry"
)

var (
	styleTime    = color.Style{color.FgGray}
	styleStarted = color.Style{color.FgRed, color.OpBold}
	styleEnded   = color.Style{color.FgGreen, color.OpBold}
	styleFalse   = color.Style{color.FgYellow, color.OpBold}
	styleDamage  = color.Style{color.FgMagenta, color.OpBold}
	styleKilled  = color.Style{color.FgRed, color.BgBlack, color.OpBold}
	styleSanity  = color.Style{color.FgCyan}
	styleState   = color.Style{color.FgBlue}
	stylePlayer  = color.Style{color.FgWhite, color.OpBold}
)

// stagePalette colours sanity stages from calm to breaking.
var stagePalette = []color.Style{
	{color.FgGreen},
	{color.FgYellow},
	{color.FgLightRed},
	{color.FgRed, color.OpBold},
}

// ColorStdoutWriter prints rows using gookit/color styles. Colour is
// dropped automatically when the terminal does not support it.
type ColorStdoutWriter struct {
	cfg         *config.Config
	out         io.Writer
	once        sync.Once
	stageColors map[string]color.Style
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return newColorWriter(cfg, os.Stdout)
}

func newColorWriter(cfg *config.Config, out io.Writer) *ColorStdoutWriter {
	w := &ColorStdoutWriter{cfg: cfg, out: out, stageColors: make(map[string]color.Style)}
	if cfg != nil {
		stages := sanity.NewStages(cfg.Sanity.Stages)
		for i := range stages {
			st := stages[len(stages)-1-i]
			w.stageColors[st.Name] = stagePalette[min(i, len(stagePalette)-1)]
		}
	}
	return w
}

func (w *ColorStdoutWriter) stageStyle(name string) color.Style {
	if s, ok := w.stageColors[name]; ok {
		return s
	}
	return styleSanity
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	b := w.cfg.Blackout
	fmt.Fprintln(w.out, "Blackout Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Enabled:\t%t\n", b.Enabled)
	fmt.Fprintf(tw, "Initial Delay (s):\t%.0f\n", float64(b.InitialDelay))
	fmt.Fprintf(tw, "Delay (s):\t%.0f-%.0f\n", float64(b.DelayMin), float64(b.DelayMax))
	fmt.Fprintf(tw, "Duration (s):\t%.0f-%.0f\n", float64(b.DurationMin), float64(b.DurationMax))
	fmt.Fprintf(tw, "Warning Lead (s):\t%.0f\n", float64(b.WarningLead))
	fmt.Fprintf(tw, "Hazard Damage:\t%.1f every %.1fs\n", w.cfg.Hazard.BaseDamage, float64(w.cfg.Hazard.ActionDelay))
	fmt.Fprintf(tw, "Sanity Decay:\t%.2f x%.1f blackout x%.1f dark\n",
		w.cfg.Sanity.DecayRateBase, w.cfg.Sanity.MultiplierBlackout, w.cfg.Sanity.MultiplierDarkness)
	tw.Flush()

	fmt.Fprintln(w.out, "\nZones:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Zone\tChance\n")
	for _, z := range b.Zones {
		fmt.Fprintf(tw, "%s\t%.0f%%\n", z.Zone, z.Chance)
	}
	fmt.Fprintf(tw, "other\t%.0f%%\n", b.OtherChance)
	tw.Flush()

	fmt.Fprintln(w.out, "\nSanity Stages:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Stage\tRange\tStrike Damage\n")
	for _, st := range w.cfg.Sanity.Stages {
		fmt.Fprintf(tw, "%s\t%.0f-%.0f\t%.0f\n", w.stageStyle(st.Name).Sprint(st.Name), st.Min, st.Max, st.DamageOnStrike)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

func (w *ColorStdoutWriter) prefix(ts time.Time) string {
	return styleTime.Sprintf("[%s]", ts.Format(time.RFC3339))
}

// WriteBlackout prints a scheduler decision.
func (w *ColorStdoutWriter) WriteBlackout(row telemetry.BlackoutRow) error {
	w.once.Do(w.printOverview)
	label := styleStarted.Sprint("BLACKOUT")
	switch row.Event {
	case telemetry.BlackoutEnded:
		label = styleEnded.Sprint("RESTORED")
	case telemetry.BlackoutFalseAlarm:
		label = styleFalse.Sprint("FALSE ALARM")
	}
	fmt.Fprintf(w.out, "%s %s depth=%d dur=%.0fs", w.prefix(row.Timestamp), label, row.StackDepth, row.DurationS)
	if row.FacilityWide {
		fmt.Fprint(w.out, " facility-wide")
	}
	if len(row.Zones) > 0 {
		fmt.Fprintf(w.out, " zones=%s", strings.Join(row.Zones, ","))
	}
	if len(row.Rooms) > 0 {
		fmt.Fprintf(w.out, " rooms=%d", len(row.Rooms))
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteDamage prints a hazard strike.
func (w *ColorStdoutWriter) WriteDamage(row telemetry.DamageRow) error {
	w.once.Do(w.printOverview)
	label := styleDamage.Sprint("STRIKE")
	if row.Killed {
		label = styleKilled.Sprint("KILLED")
	}
	fmt.Fprintf(w.out, "%s %s player=%s room=%s region=%s raw=%.1f final=%.1f absorbed=%.1f src=%s\n",
		w.prefix(row.Timestamp), label, stylePlayer.Sprint(row.PlayerID), row.Room, row.Region,
		row.Raw, row.Final, row.Absorbed, row.Source)
	return nil
}

// WriteSanity prints one sanity sample.
func (w *ColorStdoutWriter) WriteSanity(row telemetry.SanityRow) error {
	w.once.Do(w.printOverview)
	dark := ""
	if row.Dark {
		dark = " dark"
	}
	fmt.Fprintf(w.out, "%s %s player=%s value=%.1f stage=%s rate=%.2f%s\n",
		w.prefix(row.Timestamp), styleSanity.Sprint("SANITY"), stylePlayer.Sprint(row.PlayerID),
		row.Value, w.stageStyle(row.Stage).Sprint(row.Stage), row.Rate, dark)
	return nil
}

// WriteState prints session state metrics.
func (w *ColorStdoutWriter) WriteState(row telemetry.SessionStateRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s %s round=%t blackout=%t depth=%d alive=%d dark_rooms=%d t=%.0fs\n",
		w.prefix(row.Timestamp), styleState.Sprint("STATE"), row.RoundActive, row.BlackoutActive,
		row.StackDepth, row.PlayersAlive, row.DarkRooms, row.ElapsedS)
	return nil
}
