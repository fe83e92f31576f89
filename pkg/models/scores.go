package models

// CategoryScore aggregates one vendor's raw scores within one evaluation
// category. Std pools every valid item value for the vendor/category (not a
// mean of per-item stds) and is missing when fewer than two values exist. N
// counts the responses contributing at least one valid item to the category.
type CategoryScore struct {
	VendorID     string  `json:"vendor_id"`
	Category     string  `json:"category"`
	CategoryName string  `json:"category_name"`
	MeanScore    float64 `json:"mean_score"`
	Std          Cell    `json:"std"`
	N            int     `json:"n"`
	CI95Low      Cell    `json:"ci95_low"`
	CI95High     Cell    `json:"ci95_high"`
	Weighted     float64 `json:"weighted"`
}

// WeightedScore is the per-vendor sum of weighted category means, an
// intermediate reading rather than the final ranking input.
type WeightedScore struct {
	VendorID      string  `json:"vendor_id"`
	WeightedScore float64 `json:"weighted_score"`
}

// CompositeScore is one vendor's final evaluation row. Rank is the dense rank
// of ZAvgScore descending (ties share a rank, no gaps), contributing
// negatively to the composite since rank 1 is best. FinalScore discounts the
// composite by the reliability coefficient for thin respondent coverage.
type CompositeScore struct {
	VendorID        string  `json:"vendor_id"`
	RawScore        float64 `json:"raw_score"`
	ZAvgScore       float64 `json:"z_avg_score"`
	Rank            int     `json:"rank"`
	CompositeScore  float64 `json:"composite_score"`
	RespondentCount int     `json:"respondent_count"`
	ReliabilityCoef float64 `json:"reliability_coef"`
	FinalScore      float64 `json:"final_score"`
}

// DetailedScore is one (vendor, item) mean, the long-form matrix behind the
// item heatmap.
type DetailedScore struct {
	VendorID string `json:"vendor_id"`
	Item     string `json:"item"`
	Score    Cell   `json:"score"`
}

// PositioningPoint places one vendor on a two-category scatter.
type PositioningPoint struct {
	VendorID        string `json:"vendor_id"`
	X               Cell   `json:"x"`
	Y               Cell   `json:"y"`
	RespondentCount int    `json:"respondent_count"`
}

// PositioningTable is the scatter data for one category pair, produced in a
// raw variant (plain category means) and a weighted variant (category means
// multiplied by the category weight).
type PositioningTable struct {
	CategoryX string             `json:"category_x"`
	CategoryY string             `json:"category_y"`
	Variant   string             `json:"variant"` // "raw" or "weighted"
	Points    []PositioningPoint `json:"points"`
}
