package usecase

import (
	"sort"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

// Gap kinds.
const (
	GapPrice = "price"
	GapMacro = "macro"
)

// Gap is one input the latest snapshot could not obtain.
type Gap struct {
	Kind     string
	Key      string
	Provider string
	RowCount int
	Reason   string
}

// Coverage splits snapshot inputs into available keys and gaps, each sorted by kind then key.
func Coverage(p *models.DashboardPayload) (available []Gap, gaps []Gap) {
	prices := make(map[string]models.AssetRow, len(p.Assets))
	for _, row := range p.Assets {
		prices[row.Ticker] = row
	}

	for ticker, st := range p.DataStatus {
		entry := Gap{Kind: GapPrice, Key: ticker, Provider: st.Provider, RowCount: st.RowCount}
		if st.OK && prices[ticker].Price.Valid {
			available = append(available, entry)
			continue
		}
		switch {
		case st.ErrorReason.Valid:
			entry.Reason = st.ErrorReason.String
		case st.Note.Valid:
			entry.Reason = st.Note.String
		default:
			entry.Reason = "no_data"
		}
		gaps = append(gaps, entry)
	}

	for id, st := range p.MacroDataStatus {
		entry := Gap{Kind: GapMacro, Key: id, Provider: st.Provider, RowCount: -1}
		if st.OK {
			available = append(available, entry)
			continue
		}
		switch {
		case st.Reason.Valid:
			entry.Reason = st.Reason.String
		case st.Note.Valid:
			entry.Reason = st.Note.String
		default:
			entry.Reason = noteMissingObs
		}
		gaps = append(gaps, entry)
	}

	sortGaps(available)
	sortGaps(gaps)
	return available, gaps
}

func sortGaps(g []Gap) {
	sort.Slice(g, func(i, j int) bool {
		if g[i].Kind != g[j].Kind {
			return g[i].Kind > g[j].Kind
		}
		return g[i].Key < g[j].Key
	})
}
