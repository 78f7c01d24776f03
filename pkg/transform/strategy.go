package transform

import (
	"gonum.org/v1/gonum/mat"

	"roi2bb/internal/models"
)

// Strategy is a coordinate transform bound to one image's metadata
type Strategy interface {
	Mode() Mode
}

// ROIConverter converts world-space center/size ROIs
type ROIConverter interface {
	Strategy
	ConvertROI(roi models.ROI, classIndex int) (models.OutputRecord, error)
}

// BoxConverter converts corner-anchored annotation boxes
type BoxConverter interface {
	Strategy
	ConvertBox(box models.PixelBox, classIndex int) (models.OutputRecord, error)
}

// New validates meta for the requested mode and returns the matching strategy.
// The concrete type is a ROIConverter for ThreeDCenterSize and a BoxConverter
// for the 2D modes.
func New(mode Mode, meta *models.ImageMetadata) (Strategy, error) {
	var (
		s   Strategy
		err error
	)
	switch mode {
	case ThreeDCenterSize:
		s, err = NewCenterSizeStrategy(meta)
	case TwoDCorner:
		s, err = NewCornerStrategy(meta)
	case TwoDProjection:
		s, err = NewProjectionStrategy(meta)
	default:
		return nil, models.Errorf(models.ErrConfiguration, "transform", meta.Path, "unknown mode %v", mode)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CenterSizeStrategy implements the 3D center/size mode
type CenterSizeStrategy struct {
	origin   [3]float64
	physical [3]float64
}

// NewCenterSizeStrategy derives the origin and physical size once per image
func NewCenterSizeStrategy(meta *models.ImageMetadata) (*CenterSizeStrategy, error) {
	if !meta.HasAffine() {
		return nil, models.Errorf(models.ErrConfiguration, "center-size", meta.Path, "image metadata has no 4x4 affine")
	}
	if !meta.HasResolution() {
		return nil, models.Errorf(models.ErrConfiguration, "center-size", meta.Path, "image metadata has no voxel spacing")
	}

	physical := meta.PhysicalSizeMM()
	if err := checkExtent("center-size", physical[:]); err != nil {
		return nil, err
	}

	return &CenterSizeStrategy{
		origin:   Origin(meta.Affine),
		physical: physical,
	}, nil
}

func (s *CenterSizeStrategy) Mode() Mode { return ThreeDCenterSize }

// Origin returns the derived image origin
func (s *CenterSizeStrategy) Origin() [3]float64 { return s.origin }

// ConvertROI normalizes the ROI and reorders it to output axis order
func (s *CenterSizeStrategy) ConvertROI(roi models.ROI, classIndex int) (models.OutputRecord, error) {
	center, size, err := CenterSize(roi.Center, roi.Size, s.origin, s.physical)
	if err != nil {
		return models.OutputRecord{}, err
	}
	return models.OutputRecord{
		ClassIndex: classIndex,
		Center:     Reorder(center),
		Size:       Reorder(size),
		Dims:       3,
		SourceFile: roi.SourceFile,
		ClassLabel: roi.ClassLabel,
	}, nil
}

// CornerStrategy implements the 2D corner mode
type CornerStrategy struct {
	imgHeight float64
	imgWidth  float64
}

// NewCornerStrategy reads the image height and width from shape[0] and
// shape[1] (row-major array order)
func NewCornerStrategy(meta *models.ImageMetadata) (*CornerStrategy, error) {
	h, w := float64(meta.Shape[0]), float64(meta.Shape[1])
	if err := checkExtent("corner", []float64{h, w}); err != nil {
		return nil, err
	}
	return &CornerStrategy{imgHeight: h, imgWidth: w}, nil
}

func (s *CornerStrategy) Mode() Mode { return TwoDCorner }

// ConvertBox normalizes a pixel-space box
func (s *CornerStrategy) ConvertBox(box models.PixelBox, classIndex int) (models.OutputRecord, error) {
	return cornerRecord(box.X, box.Y, box, classIndex, s.imgHeight, s.imgWidth)
}

// ProjectionStrategy implements the affine-projected 2D mode
type ProjectionStrategy struct {
	affine    *mat.Dense
	imgHeight float64
	imgWidth  float64
}

// NewProjectionStrategy requires an affine in addition to the image shape
func NewProjectionStrategy(meta *models.ImageMetadata) (*ProjectionStrategy, error) {
	if !meta.HasAffine() {
		return nil, models.Errorf(models.ErrConfiguration, "projection", meta.Path, "image metadata has no 4x4 affine")
	}
	h, w := float64(meta.Shape[0]), float64(meta.Shape[1])
	if err := checkExtent("projection", []float64{h, w}); err != nil {
		return nil, err
	}
	return &ProjectionStrategy{
		affine:    mat.DenseCopyOf(meta.Affine),
		imgHeight: h,
		imgWidth:  w,
	}, nil
}

func (s *ProjectionStrategy) Mode() Mode { return TwoDProjection }

// ConvertBox projects the box anchor through the affine, then normalizes it
// like a corner box
func (s *ProjectionStrategy) ConvertBox(box models.PixelBox, classIndex int) (models.OutputRecord, error) {
	x, y := Project(s.affine, [3]float64{box.X, box.Y, box.Z})
	return cornerRecord(x, y, box, classIndex, s.imgHeight, s.imgWidth)
}

func cornerRecord(x, y float64, box models.PixelBox, classIndex int, imgHeight, imgWidth float64) (models.OutputRecord, error) {
	center, size, err := Corner(x, y, box.Width, box.Height, imgHeight, imgWidth)
	if err != nil {
		return models.OutputRecord{}, err
	}
	return models.OutputRecord{
		ClassIndex: classIndex,
		Center:     [3]float64{center[0], center[1]},
		Size:       [3]float64{size[0], size[1]},
		Dims:       2,
		SourceFile: box.SourceFile,
		ClassLabel: box.ClassLabel,
	}, nil
}
