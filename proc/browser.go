package proc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/sys"
)

const (
	PageSize              = 10
	DefaultBrowserTimeout = 60 * time.Second

	ControlFirst    = "first"
	ControlPrevious = "previous"
	ControlNext     = "next"
	ControlLast     = "last"

	MsgQueueEmpty = "The queue is empty."
)

type BrowserState int

const (
	BrowserRendering BrowserState = iota
	BrowserAwaiting
	BrowserDisabled
)

func (s BrowserState) String() string {
	switch s {
	case BrowserRendering:
		return "rendering"
	case BrowserAwaiting:
		return "awaiting"
	case BrowserDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("BrowserState(%d)", int(s))
	}
}

// TotalPages is ceil(pending / pageSize).
func TotalPages(pending, pageSize int) int {
	if pending <= 0 || pageSize <= 0 {
		return 0
	}
	return (pending + pageSize - 1) / pageSize
}

// ClampPage forces page into [0, total-1], or 0 when there are no pages.
func ClampPage(page, total int) int {
	if total <= 0 || page < 0 {
		return 0
	}
	if page > total-1 {
		return total - 1
	}
	return page
}

// Navigate applies a control to page. ok is false for unknown controls.
func Navigate(page, total int, control string) (next int, ok bool) {
	switch control {
	case ControlFirst:
		return 0, true
	case ControlPrevious:
		return ClampPage(page-1, total), true
	case ControlNext:
		return ClampPage(page+1, total), true
	case ControlLast:
		return ClampPage(total-1, total), true
	default:
		return page, false
	}
}

// BrowserOptions overrides the defaults; zero values keep them.
type BrowserOptions struct {
	PageSize int
	Timeout  time.Duration
}

// Browser pages through a queue snapshot taken when it was created. Changes to
// the live queue are not reflected.
type Browser struct {
	chat     Chat
	userID   snowflake.ID
	tracks   []*Track
	pageSize int
	timeout  time.Duration

	page  int
	total int
	state BrowserState
}

// NewBrowser starts at the 0-based requestedPage, clamped to the page range.
func NewBrowser(chat Chat, userID snowflake.ID, snapshot []*Track, requestedPage int, opts BrowserOptions) *Browser {
	b := &Browser{
		chat:     chat,
		userID:   userID,
		tracks:   append([]*Track(nil), snapshot...),
		pageSize: PageSize,
		timeout:  DefaultBrowserTimeout,
	}
	if opts.PageSize > 0 {
		b.pageSize = opts.PageSize
	}
	if opts.Timeout > 0 {
		b.timeout = opts.Timeout
	}
	b.total = TotalPages(b.pending(), b.pageSize)
	b.page = ClampPage(requestedPage, b.total)
	return b
}

func (b *Browser) Page() int           { return b.page }
func (b *Browser) TotalPages() int     { return b.total }
func (b *Browser) State() BrowserState { return b.state }

func (b *Browser) pending() int {
	return max(len(b.tracks)-1, 0)
}

// Run posts the first page, then follows the invoker's clicks until the
// inactivity window passes, and finally renders every control disabled.
func (b *Browser) Run(ctx context.Context, post func(context.Context, Message) (MessageRef, error)) error {
	b.state = BrowserRendering
	ref, err := post(ctx, b.Render())
	if err != nil {
		return err
	}
	if b.total == 0 {
		b.state = BrowserDisabled
		return nil
	}

	clicks := b.chat.Collect(ref, b.userID)

	deadline := time.Now().Add(b.timeout)
	for {
		b.state = BrowserAwaiting
		id, ok := clicks.Next(ctx, time.Until(deadline))
		if !ok {
			break
		}

		next, known := Navigate(b.page, b.total, id)
		if !known {
			sys.LogWarn(sys.MsgBrowserUnknownID, id)
			continue
		}

		b.page = next
		b.state = BrowserRendering
		deadline = time.Now().Add(b.timeout)
		if err := b.chat.Edit(ctx, ref, b.Render()); err != nil {
			sys.LogWarn(sys.MsgBrowserEditFailed, err)
		}
	}

	clicks.Stop()
	b.state = BrowserDisabled
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	return b.chat.Edit(finalCtx, ref, b.Render())
}

// Render draws the current page. Controls are all disabled once the browser
// has reached BrowserDisabled.
func (b *Browser) Render() Message {
	if len(b.tracks) == 0 {
		return Message{Content: MsgQueueEmpty, Ephemeral: true}
	}

	current := b.tracks[0]
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Now playing:** *%s*\n", titleOrPlaceholder(current))

	if b.total == 0 {
		sb.WriteString("Nothing queued.")
		return Message{Content: sb.String(), Summary: TrackSummary(current)}
	}

	start := b.page*b.pageSize + 1
	end := min(start+b.pageSize, len(b.tracks))
	for i := start; i < end; i++ {
		t := b.tracks[i]
		line := fmt.Sprintf("`%d.` %s", i, titleOrPlaceholder(t))
		if t.URL != "" {
			line = fmt.Sprintf("`%d.` [%s](%s)", i, titleOrPlaceholder(t), t.URL)
		}
		if t.Duration > 0 {
			line += " [" + FormatDuration(t.Duration) + "]"
		}
		sb.WriteString(line + "\n")
	}
	fmt.Fprintf(&sb, "Page %d/%d", b.page+1, b.total)

	return Message{
		Content:  sb.String(),
		Summary:  TrackSummary(current),
		Controls: b.controls(b.state == BrowserDisabled),
	}
}

func (b *Browser) controls(disableAll bool) []Control {
	atStart := b.page == 0
	atEnd := b.page == b.total-1
	return []Control{
		{ID: ControlFirst, Label: "⏮", Disabled: disableAll || atStart},
		{ID: ControlPrevious, Label: "⬅", Disabled: disableAll || atStart},
		{ID: ControlNext, Label: "➡", Disabled: disableAll || atEnd},
		{ID: ControlLast, Label: "⏭", Disabled: disableAll || atEnd},
	}
}

func titleOrPlaceholder(t *Track) string {
	if t.Title == "" {
		return "Unknown title"
	}
	return t.Title
}
