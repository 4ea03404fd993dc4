package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/models"
)

const defaultLimit = 20

// Index 는 발행된 글의 전문 검색 인덱스다. 모든 질의는 owner 조건과 AND 로 묶인다.
type Index struct {
	index bleve.Index
}

// PostDocument 는 인덱스에 저장되는 문서 형태다.
type PostDocument struct {
	OwnerID     string
	Title       string
	Slug        string
	Excerpt     string
	Content     string
	Keywords    []string
	Categories  []string
	PublishedAt time.Time
}

type Result struct {
	PostID    string
	Title     string
	Slug      string
	Excerpt   string
	Score     float64
	Fragments map[string][]string
}

// Open opens or creates a bleve index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

// NewMemOnly 는 디스크 없이 동작하는 인덱스를 만든다.
func NewMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.IncludeInAll = false

	owner := bleve.NewTextFieldMapping()
	owner.Analyzer = keyword.Name
	owner.IncludeInAll = false

	published := bleve.NewDateTimeFieldMapping()
	published.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("OwnerID", owner)
	doc.AddFieldMappingsAt("Title", title)
	doc.AddFieldMappingsAt("Slug", stored)
	doc.AddFieldMappingsAt("Excerpt", text)
	doc.AddFieldMappingsAt("Content", text)
	doc.AddFieldMappingsAt("Keywords", text)
	doc.AddFieldMappingsAt("Categories", text)
	doc.AddFieldMappingsAt("PublishedAt", published)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

func (i *Index) Close() error {
	return i.index.Close()
}

func toDocument(p *models.Post) *PostDocument {
	doc := &PostDocument{
		OwnerID:    p.OwnerID.Hex(),
		Title:      p.Title,
		Slug:       p.Slug,
		Excerpt:    p.Excerpt,
		Content:    p.Content,
		Keywords:   p.Keywords,
		Categories: p.Categories,
	}
	if p.PublishedAt != nil {
		doc.PublishedAt = *p.PublishedAt
	}
	return doc
}

// IndexPost 는 발행 글이면 색인하고, 그 외 상태면 인덱스에서 제거한다.
func (i *Index) IndexPost(p *models.Post) error {
	if p.Status != models.PostPublished {
		return i.Delete(p.ID)
	}
	return i.index.Index(p.ID.Hex(), toDocument(p))
}

func (i *Index) Delete(postID primitive.ObjectID) error {
	return i.index.Delete(postID.Hex())
}

// Reindex 는 주어진 글들을 한 번의 batch 로 색인한다.
func (i *Index) Reindex(posts []models.Post) error {
	batch := i.index.NewBatch()
	for idx := range posts {
		p := &posts[idx]
		if p.Status != models.PostPublished {
			batch.Delete(p.ID.Hex())
			continue
		}
		if err := batch.Index(p.ID.Hex(), toDocument(p)); err != nil {
			return fmt.Errorf("batch index %s: %w", p.ID.Hex(), err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search 는 ownerID 의 문서만 대상으로 질의한다.
func (i *Index) Search(ownerID primitive.ObjectID, q string, limit, offset int) ([]Result, uint64, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	owner := bleve.NewTermQuery(ownerID.Hex())
	owner.SetField("OwnerID")

	match := bleve.NewMatchQuery(q)
	match.SetOperator(query.MatchQueryOperatorAnd)

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(owner, match), limit, offset, false)
	req.Fields = []string{"Title", "Slug", "Excerpt"}
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("Content")

	res, err := i.index.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{PostID: hit.ID, Score: hit.Score, Fragments: hit.Fragments}
		if v, ok := hit.Fields["Title"].(string); ok {
			r.Title = v
		}
		if v, ok := hit.Fields["Slug"].(string); ok {
			r.Slug = v
		}
		if v, ok := hit.Fields["Excerpt"].(string); ok {
			r.Excerpt = v
		}
		results = append(results, r)
	}
	return results, res.Total, nil
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
