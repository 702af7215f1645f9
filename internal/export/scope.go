package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/motorsim/internal/signals"
	"github.com/san-kum/motorsim/internal/sim"
	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

var (
	voltageColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	currentColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	speedColor     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	referenceColor = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

// ScopeOptions controls the scope figure.
type ScopeOptions struct {
	Title string
	// SpeedReference is drawn dashed over the speed panel when set.
	SpeedReference signals.Signal
	// Width and Height of the whole figure; zero means 8x9 inches.
	Width, Height vg.Length
	// MaxPoints decimates long runs; zero means 4000 per trace.
	MaxPoints int
}

func (o *ScopeOptions) defaults() {
	if o.Width == 0 {
		o.Width = 8 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 9 * vg.Inch
	}
	if o.MaxPoints == 0 {
		o.MaxPoints = 4000
	}
}

// Scope draws voltage, current and speed as three stacked panels sharing
// the time axis. In cascade runs the current reference is drawn over the
// current panel. format is "png" or "svg".
func Scope(w io.Writer, format string, traj *sim.Trajectory, opt ScopeOptions) error {
	if traj == nil || traj.Len() == 0 {
		return fmt.Errorf("scope: empty trajectory")
	}
	opt.defaults()

	stride := max(1, traj.Len()/opt.MaxPoints)

	voltage, err := panel(opt.Title, "voltage [V]", traj.Time, stride, trace{"u", traj.Voltage, voltageColor, false})
	if err != nil {
		return err
	}

	currentTraces := []trace{{"i", traj.Current, currentColor, false}}
	if traj.CurrentRef != nil {
		currentTraces = append(currentTraces, trace{"i ref", traj.CurrentRef, referenceColor, true})
	}
	current, err := panel("", "current [A]", traj.Time, stride, currentTraces...)
	if err != nil {
		return err
	}

	speedTraces := []trace{{"ω", traj.Speed, speedColor, false}}
	if opt.SpeedReference != nil {
		ref := make([]float64, traj.Len())
		for k, t := range traj.Time {
			ref[k] = opt.SpeedReference(t)
		}
		speedTraces = append(speedTraces, trace{"ω ref", ref, referenceColor, true})
	}
	speed, err := panel("", "speed [rad/s]", traj.Time, stride, speedTraces...)
	if err != nil {
		return err
	}
	speed.X.Label.Text = "time [s]"

	plots := [][]*plot.Plot{{voltage}, {current}, {speed}}
	return render(w, format, plots, opt.Width, opt.Height)
}

// ScopeFile writes the scope to path, picking the format from the extension.
func ScopeFile(path string, traj *sim.Trajectory, opt ScopeOptions) (err error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	bw := bufio.NewWriter(f)
	if err := Scope(bw, format, traj, opt); err != nil {
		return err
	}
	return bw.Flush()
}

type trace struct {
	name   string
	data   []float64
	color  color.Color
	dashed bool
}

func panel(title, ylabel string, time []float64, stride int, traces ...trace) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for _, tr := range traces {
		pts := make(plotter.XYs, 0, len(time)/stride+1)
		for k := 0; k < len(time); k += stride {
			pts = append(pts, plotter.XY{X: time[k], Y: tr.data[k]})
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("scope %s: %w", tr.name, err)
		}
		line.LineStyle.Color = tr.color
		line.LineStyle.Width = vg.Points(1.2)
		if tr.dashed {
			line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(line)
		p.Legend.Add(tr.name, line)
	}
	return p, nil
}

func render(w io.Writer, format string, plots [][]*plot.Plot, width, height vg.Length) error {
	var (
		dc  draw.Canvas
		out io.WriterTo
	)

	switch format {
	case "png":
		img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(150))
		dc, out = draw.New(img), vgimg.PngCanvas{Canvas: img}
	case "svg":
		svg := vgsvg.New(width, height)
		dc, out = draw.New(svg), svg
	default:
		return fmt.Errorf("scope: unsupported format %q", format)
	}

	tiles := draw.Tiles{Rows: len(plots), Cols: 1, PadY: vg.Points(6), PadX: vg.Points(6)}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	_, err := out.WriteTo(w)
	return err
}
