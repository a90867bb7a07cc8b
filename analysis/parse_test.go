package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractSummary(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"standard", "SUMMARY: A tool for teams.\n\nCATEGORIES: development, ai", "A tool for teams."},
		{"lowercase markers", "summary: small thing\ncategories: x, y", "small thing"},
		{"multiline", "SUMMARY:\nline one\nline two\nCATEGORIES: a", "line one\nline two"},
		{"no categories", "SUMMARY: just this  ", "just this"},
		{"no marker", "Here is what it does.", ""},
		{"empty", "", ""},
	}
	for _, c := range cases {
		if got := ExtractSummary(c.in); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestExtractCategories(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"prefixed line", "SUMMARY: x\n\nCATEGORIES: development, ai, devops\nThanks", []string{"development", "ai", "devops"}},
		{"mixed case prefix", "Categories: Design, Cloud", []string{"Design", "Cloud"}},
		{"prefix then newline", "CATEGORIES:\ndesign, cloud", []string{"design", "cloud"}},
		{"bracketed", "I would pick [design, testing] here!", []string{"design", "testing"}},
		{"generic run", "cloud, database\n", []string{"cloud", "database"}},
		{"single chars dropped", "CATEGORIES: a, ., ai, x", []string{"ai"}},
		{"prefix filtered to nothing", "CATEGORIES: a, .", []string{Uncategorized}},
		{"keyword fallback", "Excellent platform overall!", []string{"Excellent", "platform"}},
		{"nothing usable", "!!!", []string{Uncategorized}},
		{"empty", "", []string{Uncategorized}},
	}
	for _, c := range cases {
		if diff := cmp.Diff(c.want, ExtractCategories(c.in)); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", c.name, diff)
		}
	}
}

func TestExtractCategories_NeverEmpty(t *testing.T) {
	// WHAT: Whatever the model says, the list has at least one non-empty item.
	// WHY: Tools are always stored with a category.
	for _, in := range []string{"", " ", "\n\n", "[]", "CATEGORIES:", "x", "1.2.3", "[,]"} {
		got := ExtractCategories(in)
		if len(got) == 0 {
			t.Errorf("%q: empty categories", in)
		}
		for _, c := range got {
			if c == "" {
				t.Errorf("%q: empty category in %v", in, got)
			}
		}
	}
}

func TestKeywords_TakesFirstThree(t *testing.T) {
	got := keywords("alphabet numbers123 monitoring observability dashboards extra", 3)
	want := []string{"alphabet", "monitoring", "observability"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
