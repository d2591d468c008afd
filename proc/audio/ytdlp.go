package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/time/rate"
)

var ErrNoResults = errors.New("no results")

const metadataTemplate = "%(title)s\t%(webpage_url)s\t%(artist)s\t%(channel)s\t%(uploader)s\t%(thumbnail)s\t%(upload_date)s\t%(duration)s"

// Resolver turns user input into track metadata and audio streams using
// yt-dlp. Metadata lookups share one rate limiter.
type Resolver struct {
	executable string
	limiter    *rate.Limiter
}

func NewResolver(executable string, perSecond float64) *Resolver {
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Resolver{
		executable: executable,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (r *Resolver) command() *ytdlp.Command {
	cmd := ytdlp.New()
	if r.executable != "" {
		cmd = cmd.SetExecutable(r.executable)
	}
	return cmd
}

// Target is what yt-dlp is asked for: the URL itself, or the first search hit.
func Target(query string) string {
	q := strings.TrimSpace(query)
	if IsURL(q) {
		return q
	}
	return "ytsearch1:" + q
}

func IsURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// Resolve looks up a URL or search query.
func (r *Resolver) Resolve(ctx context.Context, query string) (proc.Metadata, error) {
	if strings.TrimSpace(query) == "" {
		return proc.Metadata{}, ErrNoResults
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return proc.Metadata{}, err
	}

	res, err := r.command().
		Print(metadataTemplate).
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", Target(query))
	if err != nil {
		return proc.Metadata{}, fmt.Errorf("resolve %q: %w", query, err)
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if meta, ok := parseMetadataLine(line); ok {
			return meta, nil
		}
	}
	return proc.Metadata{}, ErrNoResults
}

// parseMetadataLine reads one metadataTemplate line. yt-dlp prints NA for
// missing fields.
func parseMetadataLine(line string) (proc.Metadata, bool) {
	ps := strings.Split(strings.TrimRight(line, "\r"), "\t")
	if len(ps) < 8 {
		return proc.Metadata{}, false
	}
	for i, p := range ps {
		if p == "NA" {
			ps[i] = ""
		}
	}
	if ps[1] == "" {
		return proc.Metadata{}, false
	}

	meta := proc.Metadata{
		Title:     ps[0],
		URL:       ps[1],
		Artist:    ps[2],
		Channel:   ps[3],
		Thumbnail: ps[5],
		Date:      ps[6],
	}
	if meta.Channel == "" {
		meta.Channel = ps[4]
	}
	if secs, err := strconv.ParseFloat(ps[7], 64); err == nil && secs > 0 {
		meta.Duration = time.Duration(secs * float64(time.Second))
	}
	return meta, true
}

// Stream pipes the best audio of url through the transcoder, pushing Opus
// frames until the source ends or ctx is canceled.
func (r *Resolver) Stream(ctx context.Context, url string, push func([]byte)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := r.command().
		Format("bestaudio[ext=webm]/bestaudio").
		Output("-").
		NoSimulate().
		NoPart().
		NoPlaylist().
		NoCheckFormats().
		NoWarnings().
		IgnoreConfig().
		BuildCommand(ctx, url)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	t := NewTranscoder()
	err = t.Open(stdout)
	if err == nil {
		err = t.Transcode(ctx, push)
	}
	t.Close()

	if err != nil {
		// Stops yt-dlp if the transcoder gave up before the download ended.
		cancel()
		_ = cmd.Wait()
		return fmt.Errorf("%w: %v", ErrStream, err)
	}
	if werr := cmd.Wait(); werr != nil {
		sys.LogVoiceDebug("yt-dlp exited with %v: %s", werr, strings.TrimSpace(stderr.String()))
	}
	return nil
}
