// Package catalog reads products, product documents and voice sessions from
// Postgres. Only what the recommendation engine itself touches lives here;
// the wider CRM owns the rest of these tables' lifecycle.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"insurance-rag/internal/models"
)

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`
	ID            int64                   `bun:"id,pk,autoincrement"`
	Name          string                  `bun:"name,notnull"`
	Insurer       string                  `bun:"insurer,notnull"`
	PlanType      string                  `bun:"plan_type"`
	CategoryName  string                  `bun:"category_name,notnull"`
	Details       map[string]models.Value `bun:"details_json,type:jsonb"`
	Eligibility   map[string]models.Value `bun:"eligibility_json,type:jsonb"`
	Tags          []string                `bun:"tags,array"`
	CreatedAt     time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time               `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type documentRow struct {
	bun.BaseModel `bun:"table:product_documents,alias:pd"`
	ID            int64     `bun:"id,pk,autoincrement"`
	ProductID     int64     `bun:"product_id"`
	Filename      string    `bun:"filename,notnull"`
	StoragePath   string    `bun:"storage_path"`
	ExtractedText string    `bun:"extracted_text"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type voiceSessionRow struct {
	bun.BaseModel   `bun:"table:voice_sessions,alias:vs"`
	ID              int64                   `bun:"id,pk,autoincrement"`
	ExtractedNeeds  map[string]models.Value `bun:"extracted_needs_json,type:jsonb"`
	Recommendations map[string]models.Value `bun:"recommendations_json,type:jsonb"`
}

// Repo is the bun-backed catalog implementation.
type Repo struct {
	db *bun.DB
}

func NewRepo(db *bun.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) ListProducts(ctx context.Context) ([]models.Product, error) {
	var rows []productRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	products := make([]models.Product, len(rows))
	for i, row := range rows {
		products[i] = toProduct(row)
	}
	return products, nil
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var row productRow
	err := r.db.NewSelect().Model(&row).Where("p.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p := toProduct(row)
	return &p, nil
}

func (r *Repo) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var rows []documentRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	names, err := r.productNames(ctx, rows)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, len(rows))
	for i, row := range rows {
		docs[i] = toDocument(row, names[row.ProductID])
	}
	return docs, nil
}

func (r *Repo) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var row documentRow
	err := r.db.NewSelect().Model(&row).Where("pd.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	names, err := r.productNames(ctx, []documentRow{row})
	if err != nil {
		return nil, err
	}
	doc := toDocument(row, names[row.ProductID])
	return &doc, nil
}

func (r *Repo) ExtractedNeeds(ctx context.Context, sessionID int64) (models.Needs, error) {
	var row voiceSessionRow
	err := r.db.NewSelect().Model(&row).Where("vs.id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: voice session %d", models.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return models.Needs(row.ExtractedNeeds), nil
}

// SaveRecommendations stores the ranked list back on the voice session, with
// the generation time, so the agent UI can replay it.
func (r *Repo) SaveRecommendations(ctx context.Context, sessionID int64, recs []models.Recommendation) error {
	products := make([]string, 0, len(recs))
	for _, rec := range recs {
		products = append(products, rec.ProductName)
	}
	payload, err := json.Marshal(map[string]models.Value{
		"products":    models.ListValue(products...),
		"generatedAt": models.StringValue(time.Now().Format(time.RFC3339)),
	})
	if err != nil {
		return err
	}
	res, err := r.db.NewUpdate().
		Model((*voiceSessionRow)(nil)).
		Set("recommendations_json = ?", string(payload)).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: voice session %d", models.ErrNotFound, sessionID)
	}
	return nil
}

// InitSchema creates the catalog tables if they do not exist. Useful for
// local setups; production schemas come from the CRM's migrations.
func (r *Repo) InitSchema(ctx context.Context) error {
	for _, model := range []any{(*productRow)(nil), (*documentRow)(nil), (*voiceSessionRow)(nil)} {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) productNames(ctx context.Context, rows []documentRow) (map[int64]string, error) {
	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]bool)
	for _, row := range rows {
		if row.ProductID != 0 && !seen[row.ProductID] {
			seen[row.ProductID] = true
			ids = append(ids, row.ProductID)
		}
	}
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var products []productRow
	if err := r.db.NewSelect().Model(&products).Column("id", "name").Where("p.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, err
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}

func toProduct(row productRow) models.Product {
	return models.Product{
		ID:           row.ID,
		Name:         row.Name,
		Insurer:      row.Insurer,
		PlanType:     row.PlanType,
		CategoryName: row.CategoryName,
		Details:      row.Details,
		Eligibility:  row.Eligibility,
		Tags:         row.Tags,
	}
}

func toDocument(row documentRow, productName string) models.Document {
	return models.Document{
		ID:            row.ID,
		ProductID:     row.ProductID,
		ProductName:   productName,
		Filename:      row.Filename,
		StoragePath:   row.StoragePath,
		ExtractedText: row.ExtractedText,
	}
}
