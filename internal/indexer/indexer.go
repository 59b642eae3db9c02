// Package indexer orchestrates chunking, embedding and storage for products
// and product documents. Re-indexing an entity is destructive-then-additive:
// the store replaces all prior records for (kind, id) in one atomic step, so
// stale chunks never survive a content change.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"insurance-rag/internal/chunker"
	"insurance-rag/internal/embedding"
	"insurance-rag/internal/models"
	"insurance-rag/internal/store"
)

// Catalog lists and resolves the entities the indexer feeds from.
type Catalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
}

// TextExtractor supplies extracted text for documents whose stored text is
// empty. Optional; without it such documents are skipped.
type TextExtractor interface {
	Text(path string) (string, error)
}

// Report aggregates a full re-index sweep. Per-entity failures never abort
// the sweep; they are counted here.
type Report struct {
	ProductsIndexed  int `json:"productsIndexed"`
	ProductsFailed   int `json:"productsFailed"`
	DocumentsIndexed int `json:"documentsIndexed"`
	DocumentsFailed  int `json:"documentsFailed"`
}

type Indexer struct {
	catalog     Catalog
	embedder    embedding.Client
	store       store.VectorStore
	extractor   TextExtractor
	chunkSize   int
	parallelism int

	locks entityLocks
}

type Option func(*Indexer)

// WithExtractor enables on-demand text extraction for documents with no
// stored extracted text.
func WithExtractor(e TextExtractor) Option {
	return func(ix *Indexer) { ix.extractor = e }
}

// WithParallelism bounds how many entities a sweep indexes concurrently.
func WithParallelism(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.parallelism = n
		}
	}
}

func New(catalog Catalog, embedder embedding.Client, vs store.VectorStore, chunkSize int, opts ...Option) *Indexer {
	ix := &Indexer{
		catalog:     catalog,
		embedder:    embedder,
		store:       vs,
		chunkSize:   chunkSize,
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// IndexProduct re-indexes a single product by id.
func (ix *Indexer) IndexProduct(ctx context.Context, id int64) error {
	product, err := ix.catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	return ix.indexProduct(ctx, product)
}

func (ix *Indexer) indexProduct(ctx context.Context, product *models.Product) error {
	log.Info().Int64("product_id", product.ID).Str("name", product.Name).Msg("Indexing product")

	// Product summaries are bounded, so the whole block is one chunk.
	text := ProductText(product)
	vector, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed product %d: %w", product.ID, err)
	}

	metadata := map[string]models.Value{
		"productId":    models.NumberValue(float64(product.ID)),
		"productName":  models.StringValue(product.Name),
		"insurer":      models.StringValue(product.Insurer),
		"planType":     models.StringValue(product.PlanType),
		"categoryName": models.StringValue(product.CategoryName),
	}

	unlock := ix.locks.lock(models.KindProduct, product.ID)
	defer unlock()

	chunk := store.Chunk{Text: text, Vector: vector, Metadata: metadata}
	if err := ix.store.UpsertEntity(ctx, models.KindProduct, product.ID, []store.Chunk{chunk}); err != nil {
		return fmt.Errorf("upsert product %d: %w", product.ID, err)
	}
	return nil
}

// IndexDocument re-indexes a single product document by id. A document with
// no extractable text contributes zero chunks and is skipped, not failed.
func (ix *Indexer) IndexDocument(ctx context.Context, id int64) error {
	document, err := ix.catalog.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	return ix.indexDocument(ctx, document)
}

func (ix *Indexer) indexDocument(ctx context.Context, document *models.Document) error {
	log.Info().Int64("document_id", document.ID).Str("filename", document.Filename).Msg("Indexing document")

	text := document.ExtractedText
	if text == "" && ix.extractor != nil && document.StoragePath != "" {
		extracted, err := ix.extractor.Text(document.StoragePath)
		if err != nil {
			log.Warn().Err(err).Int64("document_id", document.ID).Msg("Text extraction failed")
		} else {
			text = extracted
		}
	}
	if strings.TrimSpace(text) == "" {
		log.Warn().Int64("document_id", document.ID).Msg("No text extracted from document, skipping")
		return nil
	}

	chunks := chunker.Split(text, ix.chunkSize)
	if len(chunks) == 0 {
		log.Warn().Int64("document_id", document.ID).Msg("No chunks produced from document, skipping")
		return nil
	}

	stored := make([]store.Chunk, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := ix.embedder.Embed(ctx, chunk)
		if err != nil {
			// Abandon the whole re-index; the prior indexed state stays.
			return fmt.Errorf("embed document %d chunk %d: %w", document.ID, i, err)
		}
		stored = append(stored, store.Chunk{
			Text:   chunk,
			Vector: vector,
			Metadata: map[string]models.Value{
				"documentId":  models.NumberValue(float64(document.ID)),
				"filename":    models.StringValue(document.Filename),
				"productId":   models.NumberValue(float64(document.ProductID)),
				"productName": models.StringValue(document.ProductName),
				"chunkIndex":  models.NumberValue(float64(i)),
				"totalChunks": models.NumberValue(float64(len(chunks))),
			},
		})
	}

	unlock := ix.locks.lock(models.KindDocChunk, document.ID)
	defer unlock()

	if err := ix.store.UpsertEntity(ctx, models.KindDocChunk, document.ID, stored); err != nil {
		return fmt.Errorf("upsert document %d: %w", document.ID, err)
	}
	log.Info().Int64("document_id", document.ID).Int("chunks", len(chunks)).Msg("Indexed document")
	return nil
}

// IndexAllProducts re-indexes every product, in parallel across entities.
func (ix *Indexer) IndexAllProducts(ctx context.Context) (indexed, failed int, err error) {
	products, err := ix.catalog.ListProducts(ctx)
	if err != nil {
		return 0, 0, err
	}
	log.Info().Int("count", len(products)).Msg("Starting to index all products")

	var ok, bad atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.parallelism)
	for i := range products {
		product := products[i]
		// Stop scheduling between entities once cancelled; in-flight
		// entities finish or are left at their prior state.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ix.indexProduct(gctx, &product); err != nil {
				log.Error().Err(err).Int64("product_id", product.ID).Msg("Failed to index product")
				bad.Add(1)
			} else {
				ok.Add(1)
			}
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return int(ok.Load()), int(bad.Load()), werr
	}
	log.Info().Int64("indexed", ok.Load()).Int64("failed", bad.Load()).Msg("Indexed products")
	return int(ok.Load()), int(bad.Load()), ctx.Err()
}

// IndexAllDocuments re-indexes every product document, in parallel across
// entities.
func (ix *Indexer) IndexAllDocuments(ctx context.Context) (indexed, failed int, err error) {
	documents, err := ix.catalog.ListDocuments(ctx)
	if err != nil {
		return 0, 0, err
	}
	log.Info().Int("count", len(documents)).Msg("Starting to index all documents")

	var ok, bad atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.parallelism)
	for i := range documents {
		document := documents[i]
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ix.indexDocument(gctx, &document); err != nil {
				log.Error().Err(err).Int64("document_id", document.ID).Msg("Failed to index document")
				bad.Add(1)
			} else {
				ok.Add(1)
			}
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return int(ok.Load()), int(bad.Load()), werr
	}
	log.Info().Int64("indexed", ok.Load()).Int64("failed", bad.Load()).Msg("Indexed documents")
	return int(ok.Load()), int(bad.Load()), ctx.Err()
}

// ReindexAll re-indexes every product, then every document. There is no
// global lock: searches during the sweep may observe a partially re-indexed
// catalog, but every individual entity is always fully old or fully new.
func (ix *Indexer) ReindexAll(ctx context.Context) (Report, error) {
	log.Info().Msg("Starting full re-indexing")

	var report Report
	var err error
	report.ProductsIndexed, report.ProductsFailed, err = ix.IndexAllProducts(ctx)
	if err != nil {
		return report, err
	}
	report.DocumentsIndexed, report.DocumentsFailed, err = ix.IndexAllDocuments(ctx)
	if err != nil {
		return report, err
	}

	log.Info().
		Int("products", report.ProductsIndexed).
		Int("documents", report.DocumentsIndexed).
		Msg("Full re-indexing complete")
	return report, nil
}

// ProductText serializes a product into the single text block that gets
// embedded. Optional fields are omitted when absent.
func ProductText(p *models.Product) string {
	var b strings.Builder
	b.WriteString("Product: " + p.Name + "\n")
	b.WriteString("Insurer: " + p.Insurer + "\n")
	b.WriteString("Category: " + p.CategoryName + "\n")
	if p.PlanType != "" {
		b.WriteString("Plan Type: " + p.PlanType + "\n")
	}
	if len(p.Details) > 0 {
		b.WriteString("Details: " + models.MapValue(p.Details).String() + "\n")
	}
	if len(p.Eligibility) > 0 {
		b.WriteString("Eligibility: " + models.MapValue(p.Eligibility).String() + "\n")
	}
	if len(p.Tags) > 0 {
		b.WriteString("Tags: " + strings.Join(p.Tags, ", ") + "\n")
	}
	return b.String()
}

// entityLocks serializes same-entity re-indexes so two concurrent upserts of
// one (kind, id) pair cannot interleave their delete/insert phases.
type entityLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *entityLocks) lock(kind models.EntityKind, id int64) func() {
	key := fmt.Sprintf("%s/%d", kind, id)
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	em, ok := l.m[key]
	if !ok {
		em = &sync.Mutex{}
		l.m[key] = em
	}
	l.mu.Unlock()

	em.Lock()
	return em.Unlock
}
