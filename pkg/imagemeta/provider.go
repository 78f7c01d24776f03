// Package imagemeta reads the geometry of an image file: voxel spacing,
// voxel counts and the voxel-to-world affine. Pixel data is never decoded.
package imagemeta

import (
	"log/slog"
	"path/filepath"
	"strings"

	"roi2bb/internal/models"
)

// Provider loads image metadata from a file
type Provider interface {
	Load(path string) (*models.ImageMetadata, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(path string) (*models.ImageMetadata, error)

// Load calls f(path)
func (f ProviderFunc) Load(path string) (*models.ImageMetadata, error) {
	return f(path)
}

// Format names
const (
	FormatNIfTI   = "nifti"
	FormatDICOM   = "dicom"
	FormatMHA     = "mha"
	FormatRaster  = "raster"
	FormatSidecar = "sidecar"
)

var providers = map[string]Provider{
	FormatNIfTI:   ProviderFunc(LoadNIfTI),
	FormatDICOM:   ProviderFunc(LoadDICOM),
	FormatMHA:     ProviderFunc(LoadMetaImage),
	FormatRaster:  ProviderFunc(LoadRaster),
	FormatSidecar: ProviderFunc(LoadSidecar),
}

// extensions maps lowercase file extensions to format names. Compound
// extensions are matched before simple ones.
var extensions = map[string]string{
	".nii.gz": FormatNIfTI,
	".nii":    FormatNIfTI,
	".dcm":    FormatDICOM,
	".mha":    FormatMHA,
	".mhd":    FormatMHA,
	".png":    FormatRaster,
	".jpg":    FormatRaster,
	".jpeg":   FormatRaster,
	".bmp":    FormatRaster,
	".tif":    FormatRaster,
	".tiff":   FormatRaster,
	".webp":   FormatRaster,
	".gif":    FormatRaster,
	".yaml":   FormatSidecar,
	".yml":    FormatSidecar,
}

// FormatFor returns the format name for path based on its extension
func FormatFor(path string) (string, error) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".nii.gz") {
		return FormatNIfTI, nil
	}
	if format, ok := extensions[filepath.Ext(name)]; ok {
		return format, nil
	}
	return "", models.Errorf(models.ErrUnsupportedFormat, "detect format", path, "unrecognized extension %q", filepath.Ext(name))
}

// Load reads metadata, choosing the provider from the file extension
func Load(path string) (*models.ImageMetadata, error) {
	return LoadFormat(path, "")
}

// LoadFormat reads metadata with the named provider. An empty format falls
// back to extension detection.
func LoadFormat(path, format string) (*models.ImageMetadata, error) {
	if format == "" {
		detected, err := FormatFor(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	provider, ok := providers[strings.ToLower(format)]
	if !ok {
		return nil, models.Errorf(models.ErrUnsupportedFormat, "load", path, "unknown format %q", format)
	}

	meta, err := provider.Load(path)
	if err != nil {
		return nil, err
	}
	meta.Path = path
	meta.Format = strings.ToLower(format)

	slog.Debug("Loaded image metadata",
		"path", path,
		"format", meta.Format,
		"shape", meta.Shape,
		"resolution", meta.Resolution,
		"has_affine", meta.HasAffine(),
	)
	return meta, nil
}

// shape3 pads or truncates dims to rank 3, filling missing axes with 1
func shape3(dims []int) [3]int {
	shape := [3]int{1, 1, 1}
	for i := 0; i < 3 && i < len(dims); i++ {
		shape[i] = dims[i]
	}
	return shape
}

// spacing3 pads spacing to length 3 with 1 mm
func spacing3(spacing []float64) []float64 {
	out := []float64{1, 1, 1}
	for i := 0; i < 3 && i < len(spacing); i++ {
		out[i] = spacing[i]
	}
	return out
}
