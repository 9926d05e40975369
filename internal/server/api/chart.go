package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/store"
)

// chartPad is the margin around the strike zone in metres.
const chartPad = 0.5

// chart renders the plate-local location of each pitch against the zone,
// as seen from the catcher.
func (h *PitchHandler) chart(w http.ResponseWriter) {
	pitches, err := h.store.Pitches().List(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pitches")
		return
	}

	zone := h.zone()
	scatter := buildPitchChart(pitches, zone)

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *PitchHandler) zone() model.StrikeZoneVolume {
	if h.fields != nil {
		if cfg := h.fields.Configuration(); cfg != nil {
			return cfg.StrikeZone
		}
	}
	zone, _ := model.NewStrikeZone(model.DefaultFieldDimensions())
	return zone
}

// pitchSeries splits pitches with a plate-local position by outcome.
func pitchSeries(pitches []*store.Pitch) map[string][]opts.ScatterData {
	series := map[string][]opts.ScatterData{"strike": {}, "ball": {}, "unknown": {}}
	for _, p := range pitches {
		if p.PlateX == nil || p.PlateY == nil {
			continue
		}
		pt := opts.ScatterData{Value: []interface{}{*p.PlateX, *p.PlateY}}
		if p.SpeedMPH != nil {
			pt.Name = fmt.Sprintf("%.1f mph", *p.SpeedMPH)
		}
		series[p.Outcome()] = append(series[p.Outcome()], pt)
	}
	return series
}

func buildPitchChart(pitches []*store.Pitch, zone model.StrikeZoneVolume) *charts.Scatter {
	series := pitchSeries(pitches)

	outline := []opts.ScatterData{
		{Value: []interface{}{zone.Min.X, zone.Min.Y}},
		{Value: []interface{}{zone.Max.X, zone.Min.Y}},
		{Value: []interface{}{zone.Max.X, zone.Max.Y}},
		{Value: []interface{}{zone.Min.X, zone.Max.Y}},
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pitch Locations", Theme: "dark", Width: "700px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Pitch Locations",
			Subtitle: fmt.Sprintf("strikes=%d balls=%d", len(series["strike"]), len(series["ball"])),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: zone.Min.X - chartPad, Max: zone.Max.X + chartPad, Name: "Across plate (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: zone.Max.Y + chartPad, Name: "Height (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("zone", outline, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("strike", series["strike"], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	scatter.AddSeries("ball", series["ball"], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	scatter.AddSeries("unknown", series["unknown"], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}
