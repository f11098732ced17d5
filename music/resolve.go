package music

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// SearchKind restricts what a query resolves to.
type SearchKind int

const (
	KindVideo SearchKind = iota
	KindPlaylist
)

func ParseSearchKind(s string) SearchKind {
	if strings.EqualFold(s, "playlist") {
		return KindPlaylist
	}
	return KindVideo
}

var ErrUnsupportedURL = errors.New("unsupported url")

// Provider turns a URL it recognises into songs. The songs it returns carry
// the provider's own StreamOpener, or NeedsResolution when it has none.
type Provider interface {
	Kind() ProviderKind
	Match(u *url.URL) bool
	Resolve(ctx context.Context, u *url.URL, kind SearchKind) ([]*Song, error)
}

// Searcher resolves free text on one provider.
type Searcher interface {
	Search(ctx context.Context, query string, kind SearchKind) ([]*Song, error)
}

// Resolver routes user input to the right provider.
type Resolver struct {
	providers []Provider
	searchers map[ProviderKind]Searcher
}

func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: providers, searchers: make(map[ProviderKind]Searcher)}
	for _, p := range providers {
		if s, ok := p.(Searcher); ok {
			r.searchers[p.Kind()] = s
		}
	}
	return r
}

type ResolveRequest struct {
	Input string
	Kind  SearchKind
	// Source picks the searcher for free text.
	Source  ProviderKind
	AddedBy Requester
}

// Resolve returns at least one song or an error wrapping ErrNothingFound.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) ([]*Song, error) {
	input := strings.Trim(strings.TrimSpace(req.Input), "<>")
	if input == "" {
		return nil, ErrNothingFound
	}

	var songs []*Song
	var err error
	if u, ok := parseURL(input); ok {
		p, found := lo.Find(r.providers, func(p Provider) bool { return p.Match(u) })
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, u.Host)
		}
		songs, err = p.Resolve(ctx, u, req.Kind)
	} else {
		s, ok := r.searchers[req.Source]
		if !ok {
			return nil, fmt.Errorf("no search for %s", req.Source)
		}
		songs, err = s.Search(ctx, input, req.Kind)
	}
	if err != nil {
		return nil, err
	}

	songs = lo.Compact(songs)
	if len(songs) == 0 {
		return nil, ErrNothingFound
	}
	for _, s := range songs {
		s.AddedBy = req.AddedBy
	}
	return songs, nil
}

func parseURL(s string) (*url.URL, bool) {
	if strings.HasPrefix(s, "spotify:") {
		// spotify:track:<id> URIs become their web form
		parts := strings.Split(s, ":")
		if len(parts) == 3 {
			s = "https://open.spotify.com/" + parts[1] + "/" + parts[2]
		}
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

// HostIs reports whether u's host is one of hosts or a subdomain of one.
func HostIs(u *url.URL, hosts ...string) bool {
	h := strings.ToLower(u.Hostname())
	return lo.ContainsBy(hosts, func(host string) bool {
		return h == host || strings.HasSuffix(h, "."+host)
	})
}
