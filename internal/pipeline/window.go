package pipeline

import (
	"sort"

	"github.com/theirongolddev/kpicast/internal/model"
)

// Window keeps every active record and, for each closed merchant, only its
// last preCloseMonths closed records by date. The result is ordered by
// (merchant id, month); ties keep input order. The input is not modified.
func Window(records []model.KPIRecord, preCloseMonths int) []model.KPIRecord {
	var active, closed []model.KPIRecord
	for _, r := range records {
		if r.Closed {
			closed = append(closed, r)
		} else {
			active = append(active, r)
		}
	}
	sortByMerchantMonth(closed)

	out := make([]model.KPIRecord, 0, len(records))
	out = append(out, active...)
	for start := 0; start < len(closed); {
		end := start
		for end < len(closed) && closed[end].MerchantID == closed[start].MerchantID {
			end++
		}
		from := max(start, end-max(preCloseMonths, 0))
		out = append(out, closed[from:end]...)
		start = end
	}

	sortByMerchantMonth(out)
	return out
}

func sortByMerchantMonth(rs []model.KPIRecord) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].MerchantID != rs[j].MerchantID {
			return rs[i].MerchantID < rs[j].MerchantID
		}
		return rs[i].Month.Before(rs[j].Month)
	})
}
