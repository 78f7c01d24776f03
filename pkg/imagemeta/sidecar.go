package imagemeta

import (
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"roi2bb/internal/models"
)

// Sidecar is a YAML document stating image geometry directly, for images
// whose format is decoded elsewhere
type Sidecar struct {
	Resolution []float64   `yaml:"resolution"`
	Shape      []int       `yaml:"shape"`
	Affine     [][]float64 `yaml:"affine"`
}

// LoadSidecar reads a YAML metadata sidecar
func LoadSidecar(path string) (*models.ImageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.ErrIO, "read sidecar", path, err)
	}

	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, models.NewError(models.ErrIO, "parse sidecar", path, err)
	}
	return sc.metadata(path)
}

func (sc *Sidecar) metadata(path string) (*models.ImageMetadata, error) {
	if len(sc.Shape) < 2 || len(sc.Shape) > 3 {
		return nil, models.Errorf(models.ErrConfiguration, "sidecar shape", path, "expected 2 or 3 values, got %d", len(sc.Shape))
	}
	meta := &models.ImageMetadata{Shape: shape3(sc.Shape)}

	if sc.Resolution != nil {
		if len(sc.Resolution) != 3 {
			return nil, models.Errorf(models.ErrConfiguration, "sidecar resolution", path, "expected 3 values, got %d", len(sc.Resolution))
		}
		meta.Resolution = sc.Resolution
	}

	if sc.Affine != nil {
		if len(sc.Affine) != 4 {
			return nil, models.Errorf(models.ErrConfiguration, "sidecar affine", path, "expected 4 rows, got %d", len(sc.Affine))
		}
		affine := mat.NewDense(4, 4, nil)
		for i, row := range sc.Affine {
			if len(row) != 4 {
				return nil, models.Errorf(models.ErrConfiguration, "sidecar affine", path, "row %d has %d values, expected 4", i, len(row))
			}
			affine.SetRow(i, row)
		}
		meta.Affine = affine
	}
	return meta, nil
}
