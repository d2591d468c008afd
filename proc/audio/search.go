package audio

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

const (
	MaxSuggestions = 25
	maxNameRunes   = 100
	searchBudget   = 2500 * time.Millisecond
)

// Suggestion is one autocomplete choice.
type Suggestion struct {
	VideoID string
	Name    string
	URL     string
}

// Searcher suggests tracks from YouTube Music and YouTube.
type Searcher struct {
	budget time.Duration
	music  func(query string) []Suggestion
	videos func(ctx context.Context, query string) []Suggestion
}

func NewSearcher() *Searcher {
	return &Searcher{
		budget: searchBudget,
		music:  searchMusic,
		videos: searchVideos,
	}
}

// Suggest queries both sources in parallel and returns whatever arrived
// within the budget. Music results come first.
func (s *Searcher) Suggest(ctx context.Context, query string) []Suggestion {
	query = strings.TrimSpace(query)
	if query == "" || IsURL(query) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	var (
		mu          sync.Mutex
		music, vids []Suggestion
		wg          sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		r := s.music(query)
		mu.Lock()
		music = r
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		r := s.videos(ctx, query)
		mu.Lock()
		vids = r
		mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	return mergeSuggestions(MaxSuggestions, music, vids)
}

// mergeSuggestions concatenates the lists, dropping repeated video ids, and
// stops at limit.
func mergeSuggestions(limit int, lists ...[]Suggestion) []Suggestion {
	seen := make(map[string]bool)
	var out []Suggestion
	for _, list := range lists {
		for _, s := range list {
			if len(out) == limit {
				return out
			}
			if s.VideoID == "" || seen[s.VideoID] {
				continue
			}
			seen[s.VideoID] = true
			s.Name = truncateName(s.Name, "", maxNameRunes)
			out = append(out, s)
		}
	}
	return out
}

// truncateName shortens text in the middle so that text+suffix fits in
// maxLen runes. The suffix is kept intact when there is room for it.
func truncateName(text, suffix string, maxLen int) string {
	rs := []rune(suffix)
	if len(rs) >= maxLen-10 {
		return truncateCenter(text+suffix, maxLen)
	}
	return truncateCenter(text, maxLen-len(rs)) + suffix
}

func truncateCenter(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	k := (maxLen - 3) / 2
	return string(r[:k]) + "..." + string(r[len(r)-k:])
}

func searchMusic(query string) []Suggestion {
	r, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil
	}
	out := make([]Suggestion, 0, len(r.Tracks))
	for _, v := range r.Tracks {
		if v.VideoID == "" {
			continue
		}
		artist := ""
		if len(v.Artists) > 0 {
			artist = " - " + v.Artists[0].Name
		}
		out = append(out, Suggestion{
			VideoID: v.VideoID,
			Name:    truncateName(v.Title, artist, maxNameRunes),
			URL:     "https://music.youtube.com/watch?v=" + v.VideoID,
		})
	}
	return out
}

func searchVideos(ctx context.Context, query string) []Suggestion {
	r, err := ytsearch.NewClient(nil).Search(ctx, query)
	if err != nil {
		return nil
	}
	out := make([]Suggestion, 0, len(r.Results))
	for _, v := range r.Results {
		if v.VideoID == "" {
			continue
		}
		out = append(out, Suggestion{
			VideoID: v.VideoID,
			Name:    v.Title,
			URL:     "https://www.youtube.com/watch?v=" + v.VideoID,
		})
	}
	return out
}
