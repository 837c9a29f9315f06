// Package catalog splits free-text service fields and resolves each token against the
// service catalog for duration and price.
package catalog

import (
	"regexp"
	"strings"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/names"
)

// DefaultDurationMinutes applies when no catalog entry matches a service text.
const DefaultDurationMinutes = 30

// Separators: "+", ",", "/" and the Portuguese conjunction " e ".
var separators = regexp.MustCompile(`\s*[+,/]\s*|\s+[eE]\s+`)

// ServiceToken is one service named inside a combined field like "Corte + Barba".
type ServiceToken struct {
	Raw        string
	Normalized string
}

func ParseServiceList(text string) []ServiceToken {
	var out []ServiceToken
	for _, part := range separators.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, ServiceToken{Raw: part, Normalized: names.Normalize(part)})
	}
	return out
}

type Catalog struct {
	items           []model.ServiceItem
	defaultDuration int
}

func New(items []model.ServiceItem, defaultDuration int) *Catalog {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDurationMinutes
	}
	return &Catalog{items: items, defaultDuration: defaultDuration}
}

func (c *Catalog) Items() []model.ServiceItem {
	if c == nil {
		return nil
	}
	return c.items
}

// Lookup finds the catalog entry for a single token: exact normalized name first, then
// prefix in either direction.
func (c *Catalog) Lookup(token ServiceToken) (model.ServiceItem, bool) {
	if c == nil {
		return model.ServiceItem{}, false
	}
	for _, it := range c.items {
		if names.Normalize(it.Name) == token.Normalized {
			return it, true
		}
	}
	for _, it := range c.items {
		if names.MatchText(it.Name, token.Raw).Matched {
			return it, true
		}
	}
	return model.ServiceItem{}, false
}

type Resolution struct {
	Items           []model.ServiceItem
	Unmatched       []string
	DurationMinutes int
	PriceCents      int64
}

// Matched reports whether at least one token resolved.
func (r Resolution) Matched() bool {
	return len(r.Items) > 0
}

// Resolve sums duration and price over every token of text that matches the catalog.
func (c *Catalog) Resolve(text string) Resolution {
	var res Resolution
	for _, tok := range ParseServiceList(text) {
		it, ok := c.Lookup(tok)
		if !ok {
			res.Unmatched = append(res.Unmatched, tok.Raw)
			continue
		}
		res.Items = append(res.Items, it)
		res.DurationMinutes += it.DurationMinutes
		res.PriceCents += it.PriceCents
	}
	return res
}

// DurationFor returns the total matched duration, or the default when nothing matched.
func (c *Catalog) DurationFor(text string) (int, bool) {
	res := c.Resolve(text)
	if !res.Matched() || res.DurationMinutes <= 0 {
		if c == nil {
			return DefaultDurationMinutes, false
		}
		return c.defaultDuration, false
	}
	return res.DurationMinutes, true
}
