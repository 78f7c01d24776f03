// Package transform converts ROI coordinates into normalized, axis-reordered
// bounding boxes.
//
// World-space conventions follow the markup tool's ROI export: the image
// origin ("topleft") is the affine translation column with Y and Z negated,
// and ROI centers have X and Z negated before being measured from that
// origin. Results are never clamped to [0,1]; values outside that range mean
// the ROI crosses the image boundary or the affine does not match the
// annotations.
package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"roi2bb/internal/models"
)

// OutputOrder is the permutation applied to internal (world-order) axes on
// output: emitted component k is internal axis OutputOrder[k].
var OutputOrder = [3]int{2, 0, 1}

// Origin returns the image origin in the markup coordinate convention:
// affine[:3,3] with the Y and Z components sign-flipped.
func Origin(affine mat.Matrix) [3]float64 {
	return [3]float64{
		affine.At(0, 3),
		-affine.At(1, 3),
		-affine.At(2, 3),
	}
}

// CenterSize normalizes one world-space ROI against the physical image size.
//
// The returned center and size are still in internal axis order; use
// Reorder to get output order.
//
// Returns:
//   - normalized center and size
//   - ErrDomain if any physical size component is not a positive finite number
func CenterSize(center, size, origin, physicalSizeMM [3]float64) ([3]float64, [3]float64, error) {
	if err := checkExtent("center-size", physicalSizeMM[:]); err != nil {
		return [3]float64{}, [3]float64{}, err
	}

	// Correct axis direction discordance between the two coordinate systems
	flipped := [3]float64{-center[0], center[1], -center[2]}

	var normCenter, normSize [3]float64
	for i := 0; i < 3; i++ {
		normCenter[i] = (origin[i] - flipped[i]) / physicalSizeMM[i]
		normSize[i] = size[i] / physicalSizeMM[i]
	}
	return normCenter, normSize, nil
}

// Reorder applies OutputOrder to a vector in internal axis order
func Reorder(v [3]float64) [3]float64 {
	var out [3]float64
	for k, axis := range OutputOrder {
		out[k] = v[axis]
	}
	return out
}

// Corner converts a pixel-space corner-anchored box into a normalized
// center/size box. imgHeight and imgWidth are in pixels.
//
// Returns:
//   - xCenter, yCenter, width, height as fractions of the image size
//   - ErrDomain if the image has a zero or negative dimension
func Corner(x, y, width, height, imgHeight, imgWidth float64) ([2]float64, [2]float64, error) {
	if err := checkExtent("corner", []float64{imgHeight, imgWidth}); err != nil {
		return [2]float64{}, [2]float64{}, err
	}

	center := [2]float64{
		(x + width/2) / imgWidth,
		(y + height/2) / imgHeight,
	}
	size := [2]float64{
		width / imgWidth,
		height / imgHeight,
	}
	return center, size, nil
}

// Project maps a world point through the affine and returns its in-plane
// coordinates with the Y component sign-flipped. The Z component is
// flipped too and then discarded.
func Project(affine mat.Matrix, point [3]float64) (float64, float64) {
	p := mat.NewVecDense(4, []float64{point[0], point[1], point[2], 1})
	var out mat.VecDense
	out.MulVec(affine, p)
	return out.AtVec(0), -out.AtVec(1)
}

// checkExtent rejects extents that would make normalization undefined
func checkExtent(op string, extent []float64) error {
	for i, v := range extent {
		if !(v > 0) || math.IsInf(v, 0) {
			return models.Errorf(models.ErrDomain, op, "", "image extent along axis %d is %v, must be > 0", i, v)
		}
	}
	return nil
}
