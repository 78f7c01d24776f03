package transform

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"roi2bb/internal/models"
)

const tol = 1e-9

// translationAffine creates an identity rotation with the given translation
func translationAffine(tx, ty, tz float64) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, tx,
		0, 1, 0, ty,
		0, 0, 1, tz,
		0, 0, 0, 1,
	})
}

// cubeMetadata creates a 100 voxel cube with 1 mm spacing whose origin
// lands on (50,50,50) after the sign flip
func cubeMetadata() *models.ImageMetadata {
	return &models.ImageMetadata{
		Path:       "cube.nii",
		Resolution: []float64{1, 1, 1},
		Shape:      [3]int{100, 100, 100},
		Affine:     translationAffine(50, -50, -50),
	}
}

func assertVec(t *testing.T, name string, got, expected []float64) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("%s: expected %d components, got %d", name, len(expected), len(got))
	}
	for i := range expected {
		if !scalar.EqualWithinAbs(got[i], expected[i], tol) {
			t.Errorf("%s[%d]: expected %f, got %f", name, i, expected[i], got[i])
		}
	}
}

// TestOrigin verifies the Y/Z sign flip of the translation column
func TestOrigin(t *testing.T) {
	origin := Origin(translationAffine(12.5, -30, 7))
	assertVec(t, "origin", origin[:], []float64{12.5, 30, -7})
}

// TestCenterSizeWorkedExample follows a ROI through every step
func TestCenterSizeWorkedExample(t *testing.T) {
	s, err := NewCenterSizeStrategy(cubeMetadata())
	if err != nil {
		t.Fatalf("NewCenterSizeStrategy failed: %v", err)
	}
	origin := s.Origin()
	assertVec(t, "origin", origin[:], []float64{50, 50, 50})

	center, size, err := CenterSize([3]float64{10, 20, 30}, [3]float64{5, 5, 5}, origin, [3]float64{100, 100, 100})
	if err != nil {
		t.Fatalf("CenterSize failed: %v", err)
	}
	assertVec(t, "center", center[:], []float64{0.6, 0.3, 0.8})
	assertVec(t, "size", size[:], []float64{0.05, 0.05, 0.05})

	rec, err := s.ConvertROI(models.ROI{Center: [3]float64{10, 20, 30}, Size: [3]float64{5, 5, 5}}, 2)
	if err != nil {
		t.Fatalf("ConvertROI failed: %v", err)
	}
	assertVec(t, "record", rec.Values(), []float64{0.8, 0.6, 0.3, 0.05, 0.05, 0.05})
	if rec.ClassIndex != 2 || rec.Dims != 3 {
		t.Errorf("Expected class 2 with 3 dims, got class %d with %d dims", rec.ClassIndex, rec.Dims)
	}
}

// TestReorder verifies the fixed output permutation
func TestReorder(t *testing.T) {
	out := Reorder([3]float64{1, 2, 3})
	assertVec(t, "reordered", out[:], []float64{3, 1, 2})
}

// TestContainedROIInUnitRange verifies that ROIs inside the volume stay in [0,1]
func TestContainedROIInUnitRange(t *testing.T) {
	meta := &models.ImageMetadata{
		Resolution: []float64{0.5, 0.8, 2},
		Shape:      [3]int{200, 125, 50},
		Affine:     translationAffine(40, -60, -25),
	}
	s, err := NewCenterSizeStrategy(meta)
	if err != nil {
		t.Fatalf("NewCenterSizeStrategy failed: %v", err)
	}
	origin := s.Origin()
	physical := meta.PhysicalSizeMM()

	// Walk ROI centers across the volume in image space and map them back to
	// world space: new = origin - flipped, flipped = (-c0, c1, -c2)
	for _, fx := range []float64{0.1, 0.5, 0.9} {
		for _, fy := range []float64{0.1, 0.5, 0.9} {
			for _, fz := range []float64{0.1, 0.5, 0.9} {
				frac := [3]float64{fx, fy, fz}
				var world [3]float64
				for i := 0; i < 3; i++ {
					flipped := origin[i] - frac[i]*physical[i]
					world[i] = flipped
				}
				world[0], world[2] = -world[0], -world[2]

				size := [3]float64{physical[0] * 0.1, physical[1] * 0.1, physical[2] * 0.1}
				rec, err := s.ConvertROI(models.ROI{Center: world, Size: size}, 0)
				if err != nil {
					t.Fatalf("ConvertROI failed: %v", err)
				}
				if !rec.InBounds() {
					t.Errorf("ROI at %v produced out-of-range record %v", frac, rec.Values())
				}
			}
		}
	}
}

// TestCenterSizeZeroExtent verifies the domain error on degenerate images
func TestCenterSizeZeroExtent(t *testing.T) {
	_, _, err := CenterSize([3]float64{1, 2, 3}, [3]float64{1, 1, 1}, [3]float64{}, [3]float64{100, 0, 100})
	if !errors.Is(err, models.ErrDomain) {
		t.Fatalf("Expected domain error, got %v", err)
	}

	meta := cubeMetadata()
	meta.Shape[2] = 0
	if _, err := NewCenterSizeStrategy(meta); !errors.Is(err, models.ErrDomain) {
		t.Errorf("Expected domain error from strategy, got %v", err)
	}

	meta = cubeMetadata()
	meta.Resolution[1] = math.NaN()
	if _, err := NewCenterSizeStrategy(meta); !errors.Is(err, models.ErrDomain) {
		t.Errorf("Expected domain error for NaN spacing, got %v", err)
	}
}

// TestCenterSizeMissingMetadata verifies configuration errors
func TestCenterSizeMissingMetadata(t *testing.T) {
	meta := cubeMetadata()
	meta.Affine = nil
	if _, err := NewCenterSizeStrategy(meta); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected configuration error without affine, got %v", err)
	}

	meta = cubeMetadata()
	meta.Resolution = nil
	if _, err := NewCenterSizeStrategy(meta); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected configuration error without resolution, got %v", err)
	}
}

// TestCorner verifies the pixel-space corner formula
func TestCorner(t *testing.T) {
	center, size, err := Corner(50, 60, 20, 10, 200, 200)
	if err != nil {
		t.Fatalf("Corner failed: %v", err)
	}
	assertVec(t, "center", center[:], []float64{0.3, 0.325})
	assertVec(t, "size", size[:], []float64{0.1, 0.05})

	if _, _, err := Corner(1, 1, 1, 1, 0, 200); !errors.Is(err, models.ErrDomain) {
		t.Errorf("Expected domain error for zero height, got %v", err)
	}
}

// TestCornerNotClamped verifies that boxes crossing the border are reported as is
func TestCornerNotClamped(t *testing.T) {
	center, size, err := Corner(190, -10, 40, 20, 100, 200)
	if err != nil {
		t.Fatalf("Corner failed: %v", err)
	}
	assertVec(t, "center", center[:], []float64{1.05, 0})
	assertVec(t, "size", size[:], []float64{0.2, 0.2})
}

// TestCornerStrategy verifies that shape[0] is height and shape[1] is width
func TestCornerStrategy(t *testing.T) {
	s, err := NewCornerStrategy(&models.ImageMetadata{Shape: [3]int{100, 400, 1}})
	if err != nil {
		t.Fatalf("NewCornerStrategy failed: %v", err)
	}
	rec, err := s.ConvertBox(models.PixelBox{X: 100, Y: 10, Width: 40, Height: 20}, 1)
	if err != nil {
		t.Fatalf("ConvertBox failed: %v", err)
	}
	assertVec(t, "record", rec.Values(), []float64{0.3, 0.2, 0.1, 0.2})
}

// TestProjection verifies the affine projection and Y flip
func TestProjection(t *testing.T) {
	affine := mat.NewDense(4, 4, []float64{
		2, 0, 0, 10,
		0, 2, 0, -100,
		0, 0, 2, 5,
		0, 0, 0, 1,
	})
	x, y := Project(affine, [3]float64{10, 20, 30})
	if !scalar.EqualWithinAbs(x, 30, tol) || !scalar.EqualWithinAbs(y, 60, tol) {
		t.Fatalf("Project: expected (30, 60), got (%f, %f)", x, y)
	}

	s, err := NewProjectionStrategy(&models.ImageMetadata{Shape: [3]int{200, 200, 1}, Affine: affine})
	if err != nil {
		t.Fatalf("NewProjectionStrategy failed: %v", err)
	}
	rec, err := s.ConvertBox(models.PixelBox{X: 10, Y: 20, Z: 30, Width: 20, Height: 10}, 0)
	if err != nil {
		t.Fatalf("ConvertBox failed: %v", err)
	}
	assertVec(t, "record", rec.Values(), []float64{0.2, 0.325, 0.1, 0.05})

	if _, err := NewProjectionStrategy(&models.ImageMetadata{Shape: [3]int{200, 200, 1}}); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("Expected configuration error without affine, got %v", err)
	}
}

// TestNewSelectsStrategy verifies strategy selection by mode
func TestNewSelectsStrategy(t *testing.T) {
	meta := cubeMetadata()
	for _, mode := range []Mode{ThreeDCenterSize, TwoDCorner, TwoDProjection} {
		s, err := New(mode, meta)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", mode, err)
		}
		if s.Mode() != mode {
			t.Errorf("New(%v) returned strategy for %v", mode, s.Mode())
		}
		_, isROI := s.(ROIConverter)
		_, isBox := s.(BoxConverter)
		if isROI != (mode == ThreeDCenterSize) || isBox == isROI {
			t.Errorf("New(%v): unexpected converter kind roi=%v box=%v", mode, isROI, isBox)
		}
	}
}

// TestParseMode verifies mode names round-trip through String
func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{ThreeDCenterSize, TwoDCorner, TwoDProjection} {
		parsed, err := ParseMode(mode.String())
		if err != nil || parsed != mode {
			t.Errorf("ParseMode(%s): expected %v, got %v (%v)", mode, mode, parsed, err)
		}
	}
	if _, err := ParseMode("4d"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
