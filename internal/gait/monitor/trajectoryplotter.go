// Package monitor produces debug visualisations of a finished
// analysis. PNG plots of the ankle trajectories with detected contact
// events make threshold tuning visible: a misplaced heel-strike is
// obvious on a plot and invisible in a metrics table.
package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/stride-data/gait.report/internal/gait"
	"github.com/stride-data/gait.report/internal/gait/g4cycles"
)

var (
	leftColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	rightColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	strikeColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	toeColor    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// WriteAnklePlot renders both ankles' vertical trajectories with the
// detected heel-strike and toe-off events overlaid, and saves a PNG.
func WriteAnklePlot(path string, skels []gait.Skeleton3D, seg *g4cycles.Segmentation) error {
	p := plot.New()
	p.Title.Text = "Ankle Height and Contact Events"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Height (mm)"

	for _, foot := range [2]gait.FootSide{gait.FootLeft, gait.FootRight} {
		line, err := ankleLine(skels, foot)
		if err != nil {
			return err
		}
		if foot == gait.FootLeft {
			line.Color = leftColor
		} else {
			line.Color = rightColor
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(foot.String()+" ankle", line)
	}

	strikes, toeOffs := eventPoints(skels, seg)
	if len(strikes) > 0 {
		sc, err := plotter.NewScatter(strikes)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = strikeColor
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("heel-strike", sc)
	}
	if len(toeOffs) > 0 {
		sc, err := plotter.NewScatter(toeOffs)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = toeColor
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("toe-off", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create plot dir: %w", err)
		}
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save ankle plot: %w", err)
	}
	return nil
}

// WriteComparisonPlot renders raw lifted vs denoised trajectories for
// one ankle, for filter tuning.
func WriteComparisonPlot(path string, lifted, denoised []gait.Skeleton3D, foot gait.FootSide) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Ankle: Lifted vs Denoised", foot)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Height (mm)"

	raw, err := ankleLine(lifted, foot)
	if err != nil {
		return err
	}
	raw.Color = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	raw.Width = vg.Points(1)
	p.Add(raw)
	p.Legend.Add("lifted", raw)

	den, err := ankleLine(denoised, foot)
	if err != nil {
		return err
	}
	den.Color = leftColor
	den.Width = vg.Points(1)
	p.Add(den)
	p.Legend.Add("denoised", den)

	p.Legend.Top = true

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save comparison plot: %w", err)
	}
	return nil
}

func ankleLine(skels []gait.Skeleton3D, foot gait.FootSide) (*plotter.Line, error) {
	ankle := foot.Ankle()
	pts := make(plotter.XYs, 0, len(skels))
	for i := range skels {
		kp := skels[i].Joints[ankle]
		if kp.Confidence <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: skels[i].TimestampSec, Y: kp.Y})
	}
	return plotter.NewLine(pts)
}

func eventPoints(skels []gait.Skeleton3D, seg *g4cycles.Segmentation) (strikes, toeOffs plotter.XYs) {
	for _, foot := range [2]gait.FootSide{gait.FootLeft, gait.FootRight} {
		ankle := foot.Ankle()
		for _, ev := range seg.Strikes[foot] {
			if ev.Frame < len(skels) {
				strikes = append(strikes, plotter.XY{X: ev.TimeSec, Y: skels[ev.Frame].Joints[ankle].Y})
			}
		}
		for _, cy := range seg.Cycles(foot) {
			if cy.ToeOffFrame >= 0 && cy.ToeOffFrame < len(skels) {
				toeOffs = append(toeOffs, plotter.XY{X: cy.ToeOffSec, Y: skels[cy.ToeOffFrame].Joints[ankle].Y})
			}
		}
	}
	return strikes, toeOffs
}

// MakePlotOutputDir returns a timestamped output directory for a
// recording's plots.
func MakePlotOutputDir(baseDir, inputFile string) string {
	ts := time.Now().Format("20060102_150405")
	if inputFile != "" {
		base := filepath.Base(inputFile)
		ext := filepath.Ext(base)
		name := base[:len(base)-len(ext)]
		return filepath.Join(baseDir, name, ts)
	}
	return filepath.Join(baseDir, "analysis_"+ts)
}
