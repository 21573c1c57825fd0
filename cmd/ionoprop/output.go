package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/signalsfoundry/ionoprop/internal/api"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
	"github.com/signalsfoundry/ionoprop/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func num(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func loss(hasLoss bool, db float64) string {
	if !hasLoss {
		return "-"
	}
	return num(db, 2)
}

func renderTrace(w io.Writer, resp *api.TraceResponse) {
	res := resp.Result
	t := newTable(w, "Field", "Value")
	t.Append([]string{"Frequency (MHz)", num(res.FrequencyMHz, 3)})
	t.Append([]string{"Elevation (deg)", num(res.ElevationDeg, 1)})
	t.Append([]string{"Status", string(res.Status)})
	t.Append([]string{"Ground range (km)", num(res.GroundRangeKm, 1)})
	t.Append([]string{"Apex (km)", num(res.ApexAltitudeKm, 1)})
	t.Append([]string{"Loss (dB)", loss(res.HasLoss, res.TotalLossDB)})
	if resp.Quality != "" {
		t.Append([]string{"Quality", string(resp.Quality)})
	}
	if resp.Mode == sweep.Mode2D {
		t.Append([]string{"Final azimuth (deg)", num(res.FinalAzimuth, 4)})
	}
	t.Append([]string{"Steps", strconv.Itoa(res.Steps)})
	t.Render()
}

func renderPath(w io.Writer, res *model.RayTraceResult) {
	header := []string{"Distance (km)", "Altitude (km)"}
	withAz := len(res.Azimuths) == len(res.Distances) && len(res.Azimuths) > 0
	if withAz {
		header = append(header, "Azimuth (deg)")
	}
	t := newTable(w, header...)
	for i := range res.Distances {
		row := []string{num(res.Distances[i], 1), num(res.Altitudes[i], 2)}
		if withAz {
			row = append(row, num(res.Azimuths[i], 5))
		}
		t.Append(row)
	}
	t.Render()
}

func renderSweep(w io.Writer, resp *api.SweepResponse) {
	t := newTable(w, "MHz", "Elev", "Status", "Range (km)", "Apex (km)", "Loss (dB)", "Quality")
	for _, c := range resp.Cells {
		t.Append([]string{
			num(c.FrequencyMHz, 3),
			num(c.ElevationDeg, 1),
			string(c.Status),
			num(c.GroundRangeKm, 0),
			num(c.ApexAltitudeKm, 0),
			loss(c.Quality != "", c.TotalLossDB),
			string(c.Quality),
		})
	}
	t.Render()

	s := newTable(w, "MHz", "Returning", "Skip (km)", "Max range (km)")
	for _, f := range resp.Frequencies {
		skip := "-"
		if f.Returning > 0 {
			skip = num(f.SkipDistanceKm, 0)
		}
		s.Append([]string{num(f.FrequencyMHz, 3), strconv.Itoa(f.Returning), skip, num(f.MaxRangeKm, 0)})
	}
	s.Render()

	if len(resp.MUF) > 0 {
		renderMUF(w, resp.MUF)
	}
	fmt.Fprintf(w, "%s sweep of %d rays in %.1f ms\n", resp.Mode, len(resp.Cells), resp.ElapsedMs)
}

func renderMUF(w io.Writer, entries []api.MUFEntry) {
	t := newTable(w, "Elev", "MUF (MHz)", "Range (km)")
	for _, m := range entries {
		muf, rng := "-", "-"
		if m.FrequencyMHz > 0 {
			muf = num(m.FrequencyMHz, 2)
			rng = num(m.GroundRangeKm, 0)
		}
		t.Append([]string{num(m.ElevationDeg, 1), muf, rng})
	}
	t.Render()
}

func renderProfile(w io.Writer, resp *api.ProfileResponse) {
	fmt.Fprintf(w, "foF2 %.2f MHz, %s, %s regime\n", resp.FoF2MHz, resp.Season, resp.Regime)
	t := newTable(w, "Alt (km)", "D", "E", "F1", "F2", "Total (m^-3)", "fp (MHz)")
	for _, s := range resp.Samples {
		t.Append([]string{
			num(s.AltitudeKm, 0),
			fmt.Sprintf("%.3e", s.D),
			fmt.Sprintf("%.3e", s.E),
			fmt.Sprintf("%.3e", s.F1),
			fmt.Sprintf("%.3e", s.F2),
			fmt.Sprintf("%.3e", s.Total),
			num(s.PlasmaFreqMHz, 3),
		})
	}
	t.Render()
}

func renderScenarios(w io.Writer, resp *api.ListScenariosResponse) {
	t := newTable(w, "ID", "Name", "Ionosphere", "Season", "Description")
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, s := range resp.Scenarios {
		iono := fmt.Sprintf("foF2 %g MHz", s.FoF2MHz)
		if s.Tilt != nil {
			iono = fmt.Sprintf("foF2 %g -> %g MHz over %g km", s.Tilt.FoF2TxMHz, s.Tilt.FoF2RefMHz, s.Tilt.RefDistanceKm)
		}
		t.Append([]string{s.ID, s.Name, iono, s.Season, s.Description})
	}
	t.Render()
}
