package providers

import (
	"errors"
	"io"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

// parseDailyCSV reads a header row followed by daily rows. Date and a close column are
// required; open/high/low/volume are used when present.
func parseDailyCSV(r io.Reader) ([]models.OHLCPoint, error) {
	header, rows, err := util.ReadCSV(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoData
		}
		return nil, err
	}
	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}
	dateIdx, ok := col["date"]
	if !ok {
		return nil, ErrNoData
	}
	closeIdx := -1
	for _, name := range []string{"close", "price", "adj close"} {
		if i, ok := col[name]; ok {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return nil, ErrNoData
	}

	field := func(rec []string, name string) (float64, bool) {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return 0, false
		}
		return util.ParseFloat(rec[i])
	}

	var out []models.OHLCPoint
	for _, rec := range rows {
		if dateIdx >= len(rec) || closeIdx >= len(rec) {
			continue
		}
		day, ok := parseDay(rec[dateIdx])
		if !ok {
			continue
		}
		c, ok := util.ParseFloat(rec[closeIdx])
		if !ok {
			continue
		}
		p := models.FlatPoint(day, c)
		if v, ok := field(rec, "open"); ok {
			p.Open = v
		}
		if v, ok := field(rec, "high"); ok {
			p.High = v
		}
		if v, ok := field(rec, "low"); ok {
			p.Low = v
		}
		if v, ok := field(rec, "volume"); ok {
			p.Volume = v
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}
