package models

import (
	"gonum.org/v1/gonum/mat"
)

// ImageMetadata represents the geometry of one image volume as supplied by
// an image metadata provider
type ImageMetadata struct {
	// Path is the file the metadata was read from
	Path string

	// Format is the provider format name (nifti, dicom, mha, raster, sidecar)
	Format string

	// Resolution is the voxel spacing in mm/voxel along each axis.
	// Nil when the source format carries no spacing (plain raster images).
	Resolution []float64

	// Shape is the number of voxels along each axis, padded to rank 3
	Shape [3]int

	// Affine is the 4x4 homogeneous voxel-to-world transform.
	// Nil when the source format carries no world geometry.
	Affine *mat.Dense
}

// HasResolution reports whether a full 3-axis voxel spacing is available
func (m *ImageMetadata) HasResolution() bool {
	return len(m.Resolution) >= 3
}

// HasAffine reports whether a 4x4 world transform is available
func (m *ImageMetadata) HasAffine() bool {
	if m.Affine == nil {
		return false
	}
	r, c := m.Affine.Dims()
	return r == 4 && c == 4
}

// PhysicalSizeMM returns shape[i] * resolution[i] for the three axes.
// Callers must check HasResolution first.
func (m *ImageMetadata) PhysicalSizeMM() [3]float64 {
	var size [3]float64
	for i := 0; i < 3; i++ {
		size[i] = float64(m.Shape[i]) * m.Resolution[i]
	}
	return size
}

// ROI represents a single region of interest in world space
type ROI struct {
	// Center is the world-space center point in mm
	Center [3]float64

	// Size is the extent along each world axis in mm
	Size [3]float64

	// ClassLabel is the organ/structure name derived from the source filename
	ClassLabel string

	// SourceFile is the annotation file the ROI was read from
	SourceFile string
}

// PixelBox represents a corner-anchored box from the annotation schema used
// by the 2D modes
type PixelBox struct {
	X, Y, Z              float64
	Width, Height, Depth float64

	ClassLabel string
	SourceFile string
}

// OutputRecord is one normalized bounding box, already in output axis order
type OutputRecord struct {
	ClassIndex int

	// Center and Size hold Dims meaningful components
	Center [3]float64
	Size   [3]float64

	// Dims is 3 for the center/size mode and 2 for the corner modes
	Dims int

	// SourceFile and ClassLabel are kept for reporting only
	SourceFile string
	ClassLabel string
}

// Values returns the center components followed by the size components
func (r OutputRecord) Values() []float64 {
	values := make([]float64, 0, 2*r.Dims)
	values = append(values, r.Center[:r.Dims]...)
	values = append(values, r.Size[:r.Dims]...)
	return values
}

// InBounds reports whether every component lies in [0,1]
func (r OutputRecord) InBounds() bool {
	for _, v := range r.Values() {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Extent returns the normalized volume (3D) or area (2D) of the box
func (r OutputRecord) Extent() float64 {
	extent := 1.0
	for i := 0; i < r.Dims; i++ {
		extent *= r.Size[i]
	}
	return extent
}
