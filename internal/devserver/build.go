package devserver

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/news"
)

//go:embed sample_cards.json
var sampleCards []byte

// SampleCards returns the built-in demo corpus.
func SampleCards() ([]news.Card, error) {
	return decodeFixtures(sampleCards)
}

// BuildCorpus collects cards from the configured fixture file and feeds.
// With neither configured the built-in sample is served. A feed that fails
// to load is logged and skipped.
func BuildCorpus(ctx context.Context, cfg *config.Config) (*Corpus, error) {
	log := debuglog.Component("devserver")
	var cards []news.Card

	if cfg.Server.Fixtures != "" {
		loaded, err := LoadFixtures(cfg.Server.Fixtures)
		if err != nil {
			return nil, err
		}
		log.Infof("loaded %d cards from %s", len(loaded), cfg.Server.Fixtures)
		cards = append(cards, loaded...)
	}

	if len(cfg.Server.Feeds) > 0 {
		parser := NewFeedParser(&http.Client{Timeout: cfg.API.HTTPTimeout}, cfg.API.UserAgent)
		resolvers := DefaultResolvers()
		for _, url := range cfg.Server.Feeds {
			src, err := resolvers.Resolve(ctx, url)
			if err != nil {
				log.Warnf("skipping feed %s: %v", url, err)
				continue
			}
			fetched, err := parser.Fetch(ctx, src.FeedURL)
			if err != nil {
				log.Warnf("skipping feed: %v", err)
				continue
			}
			src.apply(fetched)
			log.With("feed", src.FeedURL).Infof("loaded %d cards", len(fetched))
			cards = append(cards, fetched...)
		}
		if len(cards) == 0 {
			return nil, fmt.Errorf("no cards could be loaded from %d feeds", len(cfg.Server.Feeds))
		}
	}

	if cfg.Server.Fixtures == "" && len(cfg.Server.Feeds) == 0 {
		sample, err := SampleCards()
		if err != nil {
			return nil, err
		}
		cards = sample
	}

	return NewCorpus(cards), nil
}
