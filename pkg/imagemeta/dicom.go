package imagemeta

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"gonum.org/v1/gonum/mat"

	"roi2bb/internal/models"
)

// LoadDICOM reads geometry tags from a single DICOM file.
//
// Axis order follows the pixel array: axis 0 walks rows, axis 1 walks
// columns, axis 2 walks frames. Resolution is (row spacing, column spacing,
// slice thickness). The affine is only built when ImagePositionPatient and
// ImageOrientationPatient are both present.
func LoadDICOM(path string) (*models.ImageMetadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, models.NewError(models.ErrIO, "open image", path, err)
	}

	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, models.NewError(models.ErrIO, "parse dicom", path, err)
	}

	rows, err := dicomInt(ds, tag.Rows)
	if err != nil {
		return nil, models.NewError(models.ErrConfiguration, "read rows", path, err)
	}
	cols, err := dicomInt(ds, tag.Columns)
	if err != nil {
		return nil, models.NewError(models.ErrConfiguration, "read columns", path, err)
	}
	frames := 1
	if n, err := dicomFloats(ds, tag.NumberOfFrames); err == nil && len(n) > 0 && n[0] >= 1 {
		frames = int(n[0])
	}

	meta := &models.ImageMetadata{
		Shape: [3]int{rows, cols, frames},
	}

	spacing, err := dicomFloats(ds, tag.PixelSpacing)
	if err != nil || len(spacing) < 2 {
		// Without PixelSpacing only the 2D corner mode can use this image
		return meta, nil
	}
	thickness := 1.0
	if t, err := dicomFloats(ds, tag.SliceThickness); err == nil && len(t) > 0 && t[0] > 0 {
		thickness = t[0]
	}
	meta.Resolution = []float64{spacing[0], spacing[1], thickness}

	position, errPos := dicomFloats(ds, tag.ImagePositionPatient)
	orientation, errOri := dicomFloats(ds, tag.ImageOrientationPatient)
	if errPos == nil && errOri == nil && len(position) == 3 && len(orientation) == 6 {
		meta.Affine = dicomAffine(position, orientation, meta.Resolution)
	}
	return meta, nil
}

// dicomAffine maps (row, column, frame) indices to patient coordinates.
// orientation holds the row direction cosines followed by the column
// direction cosines.
func dicomAffine(position, orientation, spacing []float64) *mat.Dense {
	rowCos := mat.NewVecDense(3, orientation[0:3])
	colCos := mat.NewVecDense(3, orientation[3:6])
	normal := cross(rowCos, colCos)

	linear := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		// Stepping one row moves along the column direction and vice versa
		linear.Set(i, 0, colCos.AtVec(i)*spacing[0])
		linear.Set(i, 1, rowCos.AtVec(i)*spacing[1])
		linear.Set(i, 2, normal.AtVec(i)*spacing[2])
	}
	return homogeneous(linear, [3]float64{position[0], position[1], position[2]})
}

func cross(a, b mat.Vector) *mat.VecDense {
	return mat.NewVecDense(3, []float64{
		a.AtVec(1)*b.AtVec(2) - a.AtVec(2)*b.AtVec(1),
		a.AtVec(2)*b.AtVec(0) - a.AtVec(0)*b.AtVec(2),
		a.AtVec(0)*b.AtVec(1) - a.AtVec(1)*b.AtVec(0),
	})
}

func dicomInt(ds dicom.Dataset, t tag.Tag) (int, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, err
	}
	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], nil
		}
	case []string:
		if len(v) > 0 {
			return strconv.Atoi(strings.TrimSpace(v[0]))
		}
	}
	return 0, fmt.Errorf("tag %v has no integer value", t)
}

// dicomFloats reads a decimal-string (DS/IS) or numeric element
func dicomFloats(ds dicom.Dataset, t tag.Tag) ([]float64, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, err
	}
	switch v := elem.Value.GetValue().(type) {
	case []string:
		return parseDecimalStrings(v)
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, nil
	case []float64:
		return v, nil
	}
	return nil, fmt.Errorf("tag %v has no numeric value", t)
}

// parseDecimalStrings parses DS values, which may also arrive as a single
// backslash-separated string
func parseDecimalStrings(values []string) ([]float64, error) {
	var out []float64
	for _, v := range values {
		for _, part := range strings.Split(v, `\`) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid decimal string %q: %w", part, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}
