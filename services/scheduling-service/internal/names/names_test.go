package names

import (
	"testing"

	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  João   DA  Silva ": "joao da silva",
		"Édson":              "edson",
		"Conceição":          "conceicao",
		"":                   "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchNames(t *testing.T) {
	cases := []struct {
		a, b string
		kind MatchKind
	}{
		{"Gabriel Silva", "gabriel silva", MatchExact},
		{"Gabriel", "Gabriel Silva", MatchPrefix},
		{"Gabriel Souza", "Gabriel Silva", MatchFirstName},
		{"Ana", "Anabela", MatchPrefix},
		{"José", "Jose Carlos", MatchPrefix},
		{"Maria", "Pedro", MatchNone},
		{"", "Pedro", MatchNone},
	}
	for _, tc := range cases {
		res := MatchNames(tc.a, tc.b)
		if res.Kind != tc.kind {
			t.Fatalf("MatchNames(%q, %q) kind = %q, want %q", tc.a, tc.b, res.Kind, tc.kind)
		}
		if res.Matched != (tc.kind != MatchNone) {
			t.Fatalf("MatchNames(%q, %q) matched = %v", tc.a, tc.b, res.Matched)
		}
		if tc.kind == MatchPrefix && !res.Ambiguous {
			t.Fatalf("prefix match should be flagged ambiguous")
		}
	}
}

func TestResolveClient(t *testing.T) {
	dir := []model.Client{
		{ID: "1", Name: "Gabriel Silva", Phone: "11999990001"},
		{ID: "2", Name: "Gabriela Souza", Phone: "11999990002"},
		{ID: "3", Name: "Marcos Lima", Phone: "11999990003"},
		{ID: "4", Name: "Marcos Alves", Phone: "11999990004"},
	}

	m := ResolveClient("gabriel silva", dir)
	if m.Client == nil || m.Client.ID != "1" || m.Ambiguous {
		t.Fatalf("expected unambiguous exact match, got %+v", m)
	}

	m = ResolveClient("Marcos", dir)
	if m.Client != nil || !m.Ambiguous || len(m.Candidates) != 2 {
		t.Fatalf("expected ambiguous match across two clients, got %+v", m)
	}

	m = ResolveClient("Fernanda", dir)
	if m.Client != nil || len(m.Candidates) != 0 {
		t.Fatalf("expected no match, got %+v", m)
	}
}
