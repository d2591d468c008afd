package proc

import (
	"fmt"
	"strings"
	"time"
)

// SummaryColor is the accent color of every track summary.
const SummaryColor = 0x0789f0

// FormatDuration renders d as M:SS.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// UploadDate turns a YYYYMMDD date into "Uploaded on YYYY/MM/DD". Anything
// that is not a valid calendar date yields ok == false.
func UploadDate(raw string) (string, bool) {
	if len(raw) < 8 {
		return "", false
	}
	for _, c := range raw[:8] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	d, err := time.Parse("20060102", raw[:8])
	if err != nil {
		return "", false
	}
	return d.Format("Uploaded on 2006/01/02"), true
}

// TrackSummary is the standard summary block for a track.
func TrackSummary(t *Track) *Summary {
	s := &Summary{
		Title:  t.Title,
		URL:    t.URL,
		Author: t.Author(),
		Image:  t.Thumbnail,
		Color:  SummaryColor,
	}

	var footer []string
	if t.Duration > 0 {
		footer = append(footer, "["+FormatDuration(t.Duration)+"]")
	}
	if date, ok := UploadDate(t.Date); ok {
		footer = append(footer, date)
	}
	s.Footer = strings.Join(footer, " • ")
	return s
}

// NowPlayingMessage is posted by the notifier and the nowplaying command.
func NowPlayingMessage(t *Track) Message {
	content := "Now playing a new song."
	if t.Title != "" {
		content = fmt.Sprintf("Now playing *%s*.", t.Title)
	}
	return Message{Content: content, Summary: TrackSummary(t)}
}

// TrackMessage pairs a one-line status with the track's summary.
func TrackMessage(format string, t *Track) Message {
	return Message{Content: fmt.Sprintf(format, t.Title), Summary: TrackSummary(t)}
}
