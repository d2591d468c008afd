package audio

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func suggestions(prefix string, n int) []Suggestion {
	out := make([]Suggestion, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i)
		out[i] = Suggestion{VideoID: id, Name: id, URL: "https://youtu.be/" + id}
	}
	return out
}

func TestMergeSuggestions(t *testing.T) {
	music := []Suggestion{{VideoID: "a", Name: "A"}, {VideoID: "b", Name: "B"}}
	videos := []Suggestion{{VideoID: "b", Name: "B video"}, {VideoID: ""}, {VideoID: "c", Name: "C"}}

	got := mergeSuggestions(MaxSuggestions, music, videos)
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "A,B,C" {
		t.Errorf("merged = %v, want [A B C]", names)
	}
}

func TestMergeSuggestionsLimit(t *testing.T) {
	got := mergeSuggestions(MaxSuggestions, suggestions("m", 20), suggestions("v", 20))
	if len(got) != MaxSuggestions {
		t.Fatalf("len = %d, want %d", len(got), MaxSuggestions)
	}
	if got[19].VideoID != "m19" || got[20].VideoID != "v0" {
		t.Errorf("music results should come first")
	}
}

func TestTruncateName(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := truncateName(long, " - Artist", maxNameRunes)
	if n := utf8.RuneCountInString(got); n > maxNameRunes {
		t.Errorf("length = %d, want <= %d", n, maxNameRunes)
	}
	if !strings.HasSuffix(got, " - Artist") || !strings.Contains(got, "...") {
		t.Errorf("got %q", got)
	}

	if got := truncateName("short", " - A", maxNameRunes); got != "short - A" {
		t.Errorf("short name changed to %q", got)
	}

	multi := strings.Repeat("音", 120)
	if n := utf8.RuneCountInString(truncateName(multi, "", maxNameRunes)); n > maxNameRunes {
		t.Errorf("rune length = %d", n)
	}
}

func TestSuggest(t *testing.T) {
	s := &Searcher{
		budget: time.Second,
		music:  func(string) []Suggestion { return suggestions("m", 2) },
		videos: func(context.Context, string) []Suggestion { return suggestions("v", 2) },
	}

	if got := s.Suggest(context.Background(), "  "); got != nil {
		t.Errorf("blank query returned %v", got)
	}
	if got := s.Suggest(context.Background(), "https://youtu.be/x"); got != nil {
		t.Errorf("URL query returned %v", got)
	}
	if got := s.Suggest(context.Background(), "song"); len(got) != 4 || got[0].VideoID != "m0" {
		t.Errorf("Suggest = %v", got)
	}
}

func TestSuggestBudget(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := &Searcher{
		budget: 30 * time.Millisecond,
		music: func(string) []Suggestion {
			<-release
			return suggestions("m", 1)
		},
		videos: func(context.Context, string) []Suggestion { return suggestions("v", 1) },
	}

	start := time.Now()
	got := s.Suggest(context.Background(), "song")
	if time.Since(start) > time.Second {
		t.Fatalf("Suggest ignored its budget")
	}
	if len(got) != 1 || got[0].VideoID != "v0" {
		t.Errorf("Suggest = %v, want only the fast source", got)
	}
}
