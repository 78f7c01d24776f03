package imagemeta

import (
	"bufio"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"roi2bb/internal/models"
)

// LoadRaster reads the dimensions of a plain 2D image. Shape is
// (height, width, 1); raster files carry no spacing and no world affine.
func LoadRaster(path string) (*models.ImageMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.ErrIO, "open image", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return nil, models.NewError(models.ErrIO, "decode image header", path, err)
	}

	return &models.ImageMetadata{
		Shape: [3]int{cfg.Height, cfg.Width, 1},
	}, nil
}
