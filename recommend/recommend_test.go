package recommend

import (
	"strings"
	"testing"
)

func TestTitleInPromptScoresAtLeastThree(t *testing.T) {
	for _, s := range catalog {
		prompt := "something like " + s.Title + " please"
		for _, r := range Score(prompt) {
			if r.Title != s.Title {
				continue
			}
			if r.Score < 3 {
				t.Errorf("%q scored %d, want >= 3", s.Title, r.Score)
			}
		}
	}
}

func TestArtistInPromptAddsTwo(t *testing.T) {
	ranked := Score("anything by marconi union")
	if ranked[0].Title != "Weightless" || ranked[0].Score != 2 {
		t.Fatalf("top = %+v", ranked[0])
	}
}

func TestReplyEmptyPrompt(t *testing.T) {
	for _, p := range []string{"", "   ", "\n\t"} {
		if got := Reply(p, 3); got != EmptyPromptReply {
			t.Errorf("Reply(%q) = %q", p, got)
		}
	}
}

func TestNoKeywordFallsBackToOne(t *testing.T) {
	prompt := "xyzzy"
	for _, r := range Score(prompt) {
		if r.Score != 0 {
			t.Fatalf("%s scored %d", r.Title, r.Score)
		}
	}
	picks := Recommend(prompt, 5)
	if len(picks) != 1 {
		t.Fatalf("got %d picks, want 1", len(picks))
	}
	if picks[0].Title != catalog[0].Title || picks[0].Score != 0 {
		t.Errorf("fallback = %+v", picks[0])
	}
}

func TestChillNightStudy(t *testing.T) {
	prompt := "chill night study music"
	wanted := Wanted(prompt)
	for _, tag := range []string{"chill", "calm", "relax", "ambient", "study", "piano", "night", "late"} {
		if _, ok := wanted[tag]; !ok {
			t.Errorf("wanted missing %q", tag)
		}
	}

	rank := map[string]int{}
	for i, r := range Score(prompt) {
		rank[r.Title] = i
	}
	for _, title := range []string{"Weightless", "Claire de Lune"} {
		if rank[title] >= rank["HUMBLE."] {
			t.Errorf("%s ranked %d, HUMBLE. ranked %d", title, rank[title], rank["HUMBLE."])
		}
	}
}

func TestTagWordsFromPrompt(t *testing.T) {
	wanted := Wanted("Something romantic, maybe dreamy.")
	for _, tag := range []string{"romantic", "dreamy"} {
		if _, ok := wanted[tag]; !ok {
			t.Errorf("wanted missing %q", tag)
		}
	}
}

func TestStableTies(t *testing.T) {
	// "pop" hits five entries once each; they must keep catalog order.
	var got []string
	for _, r := range Recommend("pop", 10) {
		got = append(got, r.Title)
	}
	want := []string{"Blinding Lights", "bad guy", "Levitating", "Adore You", "Heat Waves"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 3}, {-4, 1}, {1, 1}, {7, 7}, {10, 10}, {50, 10},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReplyFormat(t *testing.T) {
	got := Reply("  chill night study music ", 2)
	want := "🎵 Song recommendations for: \"chill night study music\"\n" +
		"1. Claire de Lune — Debussy (match score 4)\n" +
		"2. Weightless — Marconi Union (match score 3)"
	if got != want {
		t.Errorf("Reply =\n%s\nwant\n%s", got, want)
	}
}

func TestCatalogIsCopy(t *testing.T) {
	c := Catalog()
	c[0].Tags[0] = "mutated"
	if catalog[0].Tags[0] != "pop" {
		t.Fatal("Catalog exposed internal tags")
	}
}
