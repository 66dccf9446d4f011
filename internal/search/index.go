package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/feed"
	"github.com/pders01/fragments/internal/news"
)

const defaultLimit = 20

// Index is an in-memory bleve index over the cards the controller holds.
// It is never written to disk.
type Index struct {
	idx bleve.Index
	log *debuglog.FieldLogger

	mu      sync.Mutex
	indexed map[string]string // card id -> body, for snippets
}

var (
	_ Searcher         = (*Index)(nil)
	_ SnapshotListener = (*Index)(nil)
	_ DebugStatser     = (*Index)(nil)
)

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Index{
		idx:     idx,
		log:     debuglog.Component("search"),
		indexed: make(map[string]string),
	}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	summary := bleve.NewTextFieldMapping()
	summary.Analyzer = standard.Name
	summary.Store = false

	topics := bleve.NewTextFieldMapping()
	topics.Analyzer = standard.Name
	topics.Store = false

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false
	content.IncludeTermVectors = false

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("summary", summary)
	dm.AddFieldMappingsAt("topics", topics)
	dm.AddFieldMappingsAt("content", content)

	im.DefaultMapping = dm
	return im
}

func (x *Index) Close() error {
	return x.idx.Close()
}

// OnSnapshot re-indexes the snapshot's cards. Loading snapshots carry no new
// data and are skipped.
func (x *Index) OnSnapshot(s feed.Snapshot) {
	if s.Status == feed.StatusLoading {
		return
	}
	if err := x.Replace(s.Cards); err != nil {
		x.log.Warnf("indexing snapshot: %v", err)
	}
}

// Replace makes cards the whole content of the index.
func (x *Index) Replace(cards []news.Card) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	next := make(map[string]string, len(cards))
	batch := x.idx.NewBatch()
	for _, c := range cards {
		if _, dup := next[c.ID]; dup {
			continue
		}
		next[c.ID] = c.Body()
		if err := batch.Index(c.ID, document(c)); err != nil {
			return fmt.Errorf("indexing card %s: %w", c.ID, err)
		}
	}
	for id := range x.indexed {
		if _, keep := next[id]; !keep {
			batch.Delete(id)
		}
	}

	if err := x.idx.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	x.indexed = next
	x.log.Debugf("indexed %d cards", len(next))
	return nil
}

func document(c news.Card) map[string]any {
	content := ""
	if c.Content != nil {
		content = *c.Content
	}
	return map[string]any{
		"title":   c.Title,
		"summary": c.Summary,
		"topics":  strings.Join(c.Topics, " "),
		"content": content,
	}
}

// Search matches query terms against title, summary, topics and content,
// with the title weighted highest. Queries shorter than two characters
// return nothing.
func (x *Index) Search(query string, limit int) ([]Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []Result{}, nil
	}
	if limit < 1 {
		limit = defaultLimit
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []Result{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qs = append(qs,
			fieldMatch("title", tok, 4.0),
			fieldPrefix("title", tok, 3.5),
			fieldMatch("summary", tok, 2.0),
			fieldPrefix("summary", tok, 1.8),
			fieldMatch("topics", tok, 2.0),
			fieldMatch("content", tok, 1.0),
			fieldPrefix("content", tok, 0.8),
		)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title"}
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := Result{CardID: h.ID, Score: h.Score}
		if t, ok := h.Fields["title"].(string); ok {
			r.Title = t
		}
		r.Snippet = findBestSnippet(x.indexed[h.ID], tokens, 120)
		out = append(out, r)
	}
	return out, nil
}

func fieldMatch(field, tok string, boost float64) bleveQuery.Query {
	q := bleve.NewMatchQuery(tok)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func fieldPrefix(field, tok string, boost float64) bleveQuery.Query {
	q := bleve.NewPrefixQuery(strings.ToLower(tok))
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

// DocCount reports total documents in the index.
func (x *Index) DocCount() (int, error) {
	n, err := x.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
