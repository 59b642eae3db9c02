package models

// EntityKind identifies the semantic unit an embedding belongs to.
type EntityKind string

const (
	KindProduct  EntityKind = "PRODUCT"
	KindDocChunk EntityKind = "DOC_CHUNK"
)

// Product is an insurance product as the recommendation engine sees it.
type Product struct {
	ID           int64
	Name         string
	Insurer      string
	PlanType     string
	CategoryName string
	Details      map[string]Value
	Eligibility  map[string]Value
	Tags         []string
}

// Document is a product document with its extracted text. ExtractedText may
// be empty when the upstream extraction produced nothing.
type Document struct {
	ID            int64
	ProductID     int64
	ProductName   string
	Filename      string
	StoragePath   string
	ExtractedText string
}

// Recommendation is one ranked product in a recommendation response.
// RelevanceScore is the ranker's composite score in [0, 1], not the raw
// vector distance.
type Recommendation struct {
	ProductID      int64            `json:"productId"`
	ProductName    string           `json:"productName"`
	Insurer        string           `json:"insurer"`
	PlanType       string           `json:"planType,omitempty"`
	RelevanceScore float64          `json:"relevanceScore"`
	Reasoning      string           `json:"reasoning"`
	Details        map[string]Value `json:"details,omitempty"`
}
