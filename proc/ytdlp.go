package proc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// ===========================
// YT-DLP helpers
// ===========================

const (
	entryTemplate = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s"
	infoTemplate  = "%(webpage_url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(playable_in_embed)s\t%(is_live)s"
	audioFormat   = "bestaudio[ext=webm]/bestaudio"
)

var errNoMetadata = errors.New("failed to parse metadata")

type mediaEntry struct {
	URL, Title, Uploader string
	Duration             time.Duration
}

type mediaInfo struct {
	URL, Title, Uploader, Thumbnail string
	Duration                        time.Duration
	Embeddable                      bool
	Live                            bool
}

// parseSeconds reads yt-dlp's duration field, which may be fractional or NA.
func parseSeconds(s string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s) + "s")
	if err != nil || d < 0 {
		return 0
	}
	return d.Round(time.Second)
}

func ytdlpField(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}

func parseEntryLines(out string) []mediaEntry {
	var es []mediaEntry
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 4 || ytdlpField(ps[0]) == "" {
			continue
		}
		es = append(es, mediaEntry{
			URL:      ps[0],
			Title:    ytdlpField(ps[1]),
			Uploader: ytdlpField(ps[2]),
			Duration: parseSeconds(ps[3]),
		})
	}
	return es
}

func parseInfoLine(out string) (*mediaInfo, error) {
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 7 {
			continue
		}
		return &mediaInfo{
			URL:        ytdlpField(ps[0]),
			Title:      ytdlpField(ps[1]),
			Uploader:   ytdlpField(ps[2]),
			Duration:   parseSeconds(ps[3]),
			Thumbnail:  ytdlpField(ps[4]),
			Embeddable: ps[5] != "False",
			Live:       ps[6] == "True",
		}, nil
	}
	return nil, errNoMetadata
}

// ytdlpSearch runs a yt-dlp search such as ytsearch5:query or scsearch5:query.
func ytdlpSearch(ctx context.Context, prefix, q string, m int) ([]mediaEntry, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		Print(entryTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", m)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, fmt.Sprintf("%s%d:%s", prefix, m, q))
	if err != nil {
		return nil, err
	}
	return parseEntryLines(res.Stdout), nil
}

func ytdlpInfo(ctx context.Context, u string) (*mediaInfo, error) {
	res, err := ytdlp.New().
		Print(infoTemplate).
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", u)
	if err != nil {
		if res != nil && strings.Contains(strings.ToLower(res.Stderr), "drm") {
			return nil, fmt.Errorf("DRM: %w", err)
		}
		return nil, err
	}
	return parseInfoLine(res.Stdout)
}

func ytdlpPlaylist(ctx context.Context, u string, m int) ([]mediaEntry, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		YesPlaylist().
		Print(entryTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", m)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, u)
	if err != nil {
		return nil, err
	}
	return parseEntryLines(res.Stdout), nil
}

// ytdlpStreamURL resolves the direct media URL the transcoder reads from.
func ytdlpStreamURL(ctx context.Context, u string) (string, error) {
	res, err := ytdlp.New().
		Format(audioFormat).
		Print("%(url)s").
		NoPlaylist().
		NoCheckFormats().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", u)
	if err != nil {
		return "", err
	}
	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if strings.HasPrefix(l, "http") {
			return l, nil
		}
	}
	return "", errors.New("no stream url")
}
