package models

// MarkupFile is the 3D Slicer markup JSON document
type MarkupFile struct {
	Schema  string   `json:"@schema,omitempty"`
	Markups []Markup `json:"markups"`
}

// Markup is one ROI record as written by the markup tool.
// Only Center and Size take part in the conversion.
type Markup struct {
	Type             string    `json:"type,omitempty"`
	CoordinateSystem string    `json:"coordinateSystem,omitempty"`
	Center           []float64 `json:"center"`
	Size             []float64 `json:"size"`
	Orientation      []float64 `json:"orientation,omitempty"`
}

// AnnotationFile is the corner/projection JSON document
type AnnotationFile struct {
	Annotations []Annotation `json:"annotations"`
}

// Annotation is one corner-anchored box. Pointer fields distinguish a
// missing key from an explicit zero.
type Annotation struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Z      *float64 `json:"z"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Depth  *float64 `json:"depth"`
}
