package names

import "github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"

// ClientMatch is the outcome of resolving a free-text name against the client directory.
// Client is only set when exactly one best candidate exists.
type ClientMatch struct {
	Client     *model.Client
	Kind       MatchKind
	Ambiguous  bool
	Candidates []model.Client
}

func rank(k MatchKind) int {
	switch k {
	case MatchExact:
		return 3
	case MatchPrefix:
		return 2
	case MatchFirstName:
		return 1
	default:
		return 0
	}
}

// ResolveClient picks the best directory entry for name. Exact matches win over prefix
// matches, which win over first-name matches; ties leave the result ambiguous.
func ResolveClient(name string, directory []model.Client) ClientMatch {
	var best MatchKind
	var candidates []model.Client
	for _, c := range directory {
		res := MatchNames(name, c.Name)
		if !res.Matched {
			continue
		}
		switch {
		case rank(res.Kind) > rank(best):
			best = res.Kind
			candidates = []model.Client{c}
		case res.Kind == best:
			candidates = append(candidates, c)
		}
	}
	out := ClientMatch{Kind: best, Candidates: candidates}
	if len(candidates) == 1 {
		c := candidates[0]
		out.Client = &c
		out.Ambiguous = best != MatchExact
	} else if len(candidates) > 1 {
		out.Ambiguous = true
	}
	return out
}
