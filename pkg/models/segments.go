package models

// SegmentAxis names one of the segmentation axes the engine ranks vendors
// within.
type SegmentAxis string

const (
	AxisLeniency        SegmentAxis = "respondent_group"
	AxisDepartment      SegmentAxis = "department"
	AxisUsage           SegmentAxis = "usage_frequency"
	AxisIncident        SegmentAxis = "incident_experience"
	AxisDepartmentGroup SegmentAxis = "dept_category"
)

// SegmentRanking is one vendor's standing inside one segment value: the mean
// of per-item means over the segment's responses and the dense rank within
// that segment (rank 1 is best, ties share a rank).
type SegmentRanking struct {
	Segment  string  `json:"segment"`
	VendorID string  `json:"vendor_id"`
	AvgScore float64 `json:"avg_score"`
	Rank     int     `json:"rank"`
}

// SegmentTable holds one axis' complete ranking, rows ordered by (segment,
// rank).
type SegmentTable struct {
	Axis SegmentAxis      `json:"axis"`
	Rows []SegmentRanking `json:"rows"`
}

// IntegratedRanking is one row of the cross-axis rank-flow table. Category is
// the display name of the segmentation kind and Axis the concrete segment
// value, both presented in the configured fixed order.
type IntegratedRanking struct {
	Category string  `json:"category"`
	Axis     string  `json:"axis"`
	VendorID string  `json:"vendor_id"`
	Rank     int     `json:"rank"`
	AvgScore float64 `json:"avg_score"`
}
