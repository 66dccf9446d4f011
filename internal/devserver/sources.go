package devserver

import (
	"context"
	"net/url"
	"strings"

	"github.com/pders01/fragments/internal/news"
)

// FeedSource is a configured feed location resolved to something the feed
// parser can read.
type FeedSource struct {
	// URL as written in the configuration.
	URL string
	// FeedURL is the RSS or Atom document to fetch.
	FeedURL string
	// Name replaces the feed title as the reference source when set.
	Name string
	// Topics are given to items that carry no categories.
	Topics []string
}

// Resolver maps site URLs of one host to their feed endpoints.
type Resolver interface {
	Name() string
	CanHandle(rawURL string) bool
	// Priority orders resolvers that handle the same URL; higher wins.
	Priority() int
	Resolve(ctx context.Context, rawURL string) (FeedSource, error)
}

// Resolvers picks the best resolver for each configured feed URL.
type Resolvers struct {
	list []Resolver
}

func NewResolvers(rs ...Resolver) *Resolvers {
	return &Resolvers{list: append([]Resolver(nil), rs...)}
}

// DefaultResolvers knows the sites that do not advertise their feeds under
// the page URL.
func DefaultResolvers() *Resolvers {
	r := NewResolvers()
	r.Register(redditResolver{})
	r.Register(hackerNewsResolver{})
	return r
}

// Register adds res. Among resolvers of equal priority the first registered
// wins.
func (r *Resolvers) Register(res Resolver) {
	r.list = append(r.list, res)
}

// Find returns the highest-priority resolver for rawURL, or nil.
func (r *Resolvers) Find(rawURL string) Resolver {
	var best Resolver
	highest := -1
	for _, res := range r.list {
		if res.CanHandle(rawURL) && res.Priority() > highest {
			best = res
			highest = res.Priority()
		}
	}
	return best
}

// Resolve turns a configured URL into a feed source. URLs no resolver
// handles are fetched as they are.
func (r *Resolvers) Resolve(ctx context.Context, rawURL string) (FeedSource, error) {
	res := r.Find(rawURL)
	if res == nil {
		return FeedSource{URL: rawURL, FeedURL: rawURL}, nil
	}
	return res.Resolve(ctx, rawURL)
}

// apply stamps the source's name and fallback topics onto parsed cards.
func (s FeedSource) apply(cards []news.Card) {
	for i := range cards {
		if len(cards[i].Topics) == 0 && len(s.Topics) > 0 {
			cards[i].Topics = append([]string{}, s.Topics...)
		}
		if s.Name == "" {
			continue
		}
		for j := range cards[i].Sources {
			cards[i].Sources[j].Source = s.Name
		}
	}
}

// redditResolver reads subreddit pages through their .rss endpoint.
type redditResolver struct{}

func (redditResolver) Name() string { return "reddit" }

func (redditResolver) Priority() int { return 50 }

func (redditResolver) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return (host == "reddit.com" || host == "old.reddit.com") && strings.HasPrefix(u.Path, "/r/")
}

func (redditResolver) Resolve(_ context.Context, rawURL string) (FeedSource, error) {
	trimmed := strings.TrimSuffix(rawURL, "/")
	src := FeedSource{URL: rawURL, FeedURL: trimmed}
	if !strings.HasSuffix(trimmed, ".rss") {
		src.FeedURL = trimmed + ".rss"
	}

	subreddit := "unknown"
	if parts := strings.SplitN(rawURL, "/r/", 2); len(parts) == 2 {
		subreddit = strings.TrimSuffix(strings.Split(parts[1], "/")[0], ".rss")
	}
	src.Name = "r/" + subreddit
	src.Topics = []string{subreddit}
	return src, nil
}

// hackerNewsResolver maps news.ycombinator.com pages to hnrss.org.
type hackerNewsResolver struct{}

func (hackerNewsResolver) Name() string { return "hackernews" }

func (hackerNewsResolver) Priority() int { return 50 }

func (hackerNewsResolver) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && strings.EqualFold(u.Host, "news.ycombinator.com")
}

func (hackerNewsResolver) Resolve(_ context.Context, rawURL string) (FeedSource, error) {
	feed := "https://hnrss.org/frontpage"
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.Trim(u.Path, "/") {
		case "newest":
			feed = "https://hnrss.org/newest"
		case "show":
			feed = "https://hnrss.org/show"
		case "ask":
			feed = "https://hnrss.org/ask"
		}
	}
	return FeedSource{
		URL:     rawURL,
		FeedURL: feed,
		Name:    "Hacker News",
		Topics:  []string{"Technology"},
	}, nil
}
