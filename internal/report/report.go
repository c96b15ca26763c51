// Package report renders analysis results as text tables or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/ringoptics/internal/accel"
	"github.com/san-kum/ringoptics/internal/optics"
	"github.com/san-kum/ringoptics/internal/scan"
	"github.com/san-kum/ringoptics/internal/storage"
)

type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case Text, JSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q (want text or json)", s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func sci(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'e', 3, 64)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return cell
		})
}

func kv(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", MetricLabel.Render(label+":"), MetricValue.Render(value))
}

// Optics writes the summary and the Twiss table of res.
func Optics(w io.Writer, lat *accel.Lattice, res *optics.OpticsResult) {
	fmt.Fprintln(w, Title.Render(fmt.Sprintf("optics of %s at delta=%g", lat.Name, res.Delta)))
	kv(w, "tune", fmt.Sprintf("%s  %s", num(res.Tune[0]), num(res.Tune[1])))
	q := res.FractionalTune()
	kv(w, "fractional tune", fmt.Sprintf("%s  %s", num(q[0]), num(q[1])))
	if res.Chromaticity != nil {
		kv(w, "chromaticity", fmt.Sprintf("%s  %s", num(res.Chromaticity[0]), num(res.Chromaticity[1])))
	}
	if !res.Converged {
		fmt.Fprintln(w, StatusWarn.Render("closed orbit did not converge"))
	}

	t := newTable("idx", "element", "s", "beta_x", "alpha_x", "mu_x", "beta_y", "alpha_y", "mu_y", "dx", "x")
	for _, r := range res.Records {
		name := "END"
		if r.Index < lat.Len() {
			name = lat.Elements[r.Index].FamName
		}
		t.Row(
			strconv.Itoa(r.Index), name, num(r.SPos),
			num(r.Beta[0]), num(r.Alpha[0]), num(r.Mu[0]),
			num(r.Beta[1]), num(r.Alpha[1]), num(r.Mu[1]),
			num(r.Dispersion[0]), sci(r.ClosedOrbit[0]),
		)
	}
	fmt.Fprintln(w, t.Render())
}

// Orbit writes the closed orbit and its values at refpts.
func Orbit(w io.Writer, res *optics.OrbitResult, refpts []int) {
	status := StatusOK.Render("converged")
	if !res.Converged {
		status = StatusWarn.Render("not converged")
	}
	fmt.Fprintf(w, "%s %s after %d iterations (last change %s)\n",
		Title.Render("closed orbit"), status, res.Iterations, sci(res.LastChange))

	t := newTable("refpt", "x", "px", "y", "py")
	t.Row("start", sci(res.Orbit[0]), sci(res.Orbit[1]), sci(res.Orbit[2]), sci(res.Orbit[3]))
	for i, o := range res.AtRefpts {
		t.Row(strconv.Itoa(refpts[i]), sci(o[0]), sci(o[1]), sci(o[2]), sci(o[3]))
	}
	fmt.Fprintln(w, t.Render())
}

// Matrix writes a 4x4 matrix under a title.
func Matrix(w io.Writer, title string, m accel.Matrix44) {
	fmt.Fprintln(w, Title.Render(title))
	t := newTable("", "x", "px", "y", "py")
	labels := [4]string{"x", "px", "y", "py"}
	for i := 0; i < 4; i++ {
		t.Row(labels[i], num(m[i][0]), num(m[i][1]), num(m[i][2]), num(m[i][3]))
	}
	fmt.Fprintln(w, t.Render())
}

// Sweep writes tune versus momentum deviation.
func Sweep(w io.Writer, points []scan.Point) {
	t := newTable("delta", "q_x", "q_y", "xi_x", "xi_y", "x", "status")
	for _, p := range points {
		if p.Err != nil {
			t.Row(num(p.Delta), "-", "-", "-", "-", "-", StatusFail.Render(p.Error))
			continue
		}
		xi := [2]float64{math.NaN(), math.NaN()}
		if p.Chromaticity != nil {
			xi = *p.Chromaticity
		}
		status := StatusOK.Render("ok")
		if !p.Converged {
			status = StatusWarn.Render("not converged")
		}
		t.Row(num(p.Delta), num(p.Tune[0]), num(p.Tune[1]), num(xi[0]), num(xi[1]), sci(p.Orbit[0]), status)
	}
	fmt.Fprintln(w, t.Render())
}

// Check writes diagnostic values and per-plane stability.
func Check(w io.Writer, values map[string]float64, halfTrace [2]float64, stable [2]bool) {
	fmt.Fprintln(w, Title.Render("diagnostics"))
	for _, name := range sortedKeys(values) {
		kv(w, name, sci(values[name]))
	}
	for p, plane := range [2]string{"horizontal", "vertical"} {
		status := StatusOK.Render("stable")
		if !stable[p] {
			status = StatusFail.Render("unstable")
		}
		fmt.Fprintf(w, "%s %s (half trace %s)\n", MetricLabel.Render(plane+":"), status, num(halfTrace[p]))
	}
}

// Runs lists stored runs.
func Runs(w io.Writer, runs []storage.RunMetadata) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tLATTICE\tTIME\tDELTA\tQX\tQY\tRECORDS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%.6f\t%.6f\t%d\n",
			run.ID,
			run.Label,
			run.Lattice,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Delta,
			run.Tune[0],
			run.Tune[1],
			run.Records,
		)
	}
	return tw.Flush()
}

// Elements lists the elements of a lattice.
func Elements(w io.Writer, lat *accel.Lattice) error {
	s, err := lat.SPos(lat.AllRefpts())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IDX\tNAME\tPASS METHOD\tS\tLENGTH")
	for i, el := range lat.Elements {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%.4f\n", i, el.FamName, el.PassMethod, s[i], el.Length())
	}
	fmt.Fprintf(tw, "%d\tEND\t\t%.4f\t\n", lat.Len(), s[lat.Len()])
	return tw.Flush()
}
