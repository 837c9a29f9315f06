// Package blocks turns recurring block rules into concrete dated blocks.
package blocks

import (
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

// DefaultHorizonDays is the rolling window materialized ahead of today.
const DefaultHorizonDays = 30

// Materialize returns the blocks rule implies for [from, from+horizonDays) that are not
// already present in existing. Running it twice over the same rows yields nothing new.
func Materialize(rule model.RecurringBlockRule, from civil.Date, horizonDays int, existing []model.Block) []model.Block {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	var out []model.Block
	for i := 0; i < horizonDays; i++ {
		date := from.AddDays(i)
		win, ok := rule.PerWeekday[date.Weekday()]
		if !ok || !win.Enabled || win.StartTime >= win.EndTime {
			continue
		}
		b := model.Block{
			Date:      date,
			StartTime: win.StartTime,
			EndTime:   win.EndTime,
			Reason:    rule.Reason,
			RuleID:    rule.ID,
		}
		if contains(existing, b) || contains(out, b) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func contains(blocks []model.Block, b model.Block) bool {
	for _, e := range blocks {
		if e.SameSlot(b) {
			return true
		}
	}
	return false
}
