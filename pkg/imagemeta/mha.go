package imagemeta

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"roi2bb/internal/models"
)

// LoadMetaImage reads the text header of a .mha or .mhd file. Only the
// header is consulted; ElementDataFile ends it.
func LoadMetaImage(path string) (*models.ImageMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.ErrIO, "open image", path, err)
	}
	defer f.Close()

	fields := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		fields[key] = strings.TrimSpace(value)
		if key == "elementdatafile" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, models.NewError(models.ErrIO, "read metaimage header", path, err)
	}

	return metaImageFromFields(path, fields)
}

func metaImageFromFields(path string, fields map[string]string) (*models.ImageMetadata, error) {
	dimSize, err := headerFloats(fields, "dimsize")
	if err != nil || len(dimSize) == 0 {
		return nil, models.Errorf(models.ErrIO, "read metaimage header", path, "missing or invalid DimSize")
	}
	ndims := len(dimSize)
	if n, err := headerFloats(fields, "ndims"); err == nil && len(n) == 1 {
		ndims = int(n[0])
	}

	dims := make([]int, 0, len(dimSize))
	for _, d := range dimSize {
		dims = append(dims, int(d))
	}
	meta := &models.ImageMetadata{Shape: shape3(dims)}

	spacing, err := headerFloats(fields, "elementspacing", "elementsize")
	if err != nil {
		return nil, models.NewError(models.ErrConfiguration, "read spacing", path, err)
	}
	if spacing == nil {
		return meta, nil
	}
	meta.Resolution = spacing3(spacing)

	offset, err := headerFloats(fields, "offset", "position", "origin")
	if err != nil {
		return nil, models.NewError(models.ErrConfiguration, "read offset", path, err)
	}
	direction, err := headerFloats(fields, "transformmatrix", "rotation", "orientation")
	if err != nil {
		return nil, models.NewError(models.ErrConfiguration, "read transform matrix", path, err)
	}
	if offset == nil && direction == nil {
		return meta, nil
	}
	if direction == nil {
		direction = identity(ndims)
	}
	if len(direction) != ndims*ndims {
		return nil, models.Errorf(models.ErrConfiguration, "read transform matrix", path, "expected %d values, got %d", ndims*ndims, len(direction))
	}

	meta.Affine = metaImageAffine(ndims, direction, meta.Resolution, offset)
	return meta, nil
}

// metaImageAffine places row i of TransformMatrix, scaled by spacing[i], in
// column i of the affine
func metaImageAffine(ndims int, direction, spacing, offset []float64) *mat.Dense {
	linear := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		if i >= ndims {
			linear.Set(i, i, spacing[i])
			continue
		}
		for j := 0; j < ndims && j < 3; j++ {
			linear.Set(j, i, direction[i*ndims+j]*spacing[i])
		}
	}
	var translation [3]float64
	copy(translation[:], offset)
	return homogeneous(linear, translation)
}

func identity(n int) []float64 {
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		out[i*n+i] = 1
	}
	return out
}

// headerFloats parses the first present key as a whitespace-separated list.
// A nil slice with nil error means none of the keys were present.
func headerFloats(fields map[string]string, keys ...string) ([]float64, error) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		parts := strings.Fields(raw)
		out := make([]float64, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid number %q", key, p)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, nil
}
