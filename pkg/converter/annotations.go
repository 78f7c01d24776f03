package converter

import (
	"encoding/json"
	"log/slog"
	"os"

	"roi2bb/internal/models"
	"roi2bb/pkg/labels"
	"roi2bb/pkg/transform"
)

// convertFile parses one annotation document with the schema of the active
// mode and converts every ROI it yields
func (c *Converter) convertFile(path string) ([]models.OutputRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.ErrIO, "read annotation", path, err)
	}

	label := labels.ExtractLabel(path)
	classIndex := c.resolver.Index(label)
	if classIndex == labels.Unknown {
		slog.Warn("Class label not in mapping", "file", path, "label", label, "index", classIndex)
	}

	switch s := c.strategy.(type) {
	case transform.ROIConverter:
		roi, err := decodeMarkup(path, data)
		if err != nil {
			return nil, err
		}
		roi.ClassLabel = label
		rec, err := s.ConvertROI(roi, classIndex)
		if err != nil {
			return nil, withPath(err, path)
		}
		warnOutOfBounds(rec)
		return []models.OutputRecord{rec}, nil

	case transform.BoxConverter:
		boxes, err := decodeAnnotations(path, data, s.Mode() == transform.TwoDProjection)
		if err != nil {
			return nil, err
		}
		records := make([]models.OutputRecord, 0, len(boxes))
		for _, box := range boxes {
			box.ClassLabel = label
			rec, err := s.ConvertBox(box, classIndex)
			if err != nil {
				return nil, withPath(err, path)
			}
			warnOutOfBounds(rec)
			records = append(records, rec)
		}
		return records, nil
	}

	return nil, models.Errorf(models.ErrConfiguration, "convert", path, "no converter for mode %v", c.strategy.Mode())
}

// decodeMarkup reads the first ROI of a markup document. Further markups in
// the same file are ignored.
func decodeMarkup(path string, data []byte) (models.ROI, error) {
	var doc models.MarkupFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.ROI{}, models.NewError(models.ErrSchema, "parse markup", path, err)
	}
	if doc.Markups == nil {
		return models.ROI{}, models.Errorf(models.ErrSchema, "parse markup", path, `missing "markups" key`)
	}
	if len(doc.Markups) == 0 {
		return models.ROI{}, models.Errorf(models.ErrSchema, "parse markup", path, `"markups" is empty`)
	}
	if len(doc.Markups) > 1 {
		slog.Warn("Only the first markup is converted", "file", path, "markups", len(doc.Markups))
	}

	m := doc.Markups[0]
	if len(m.Center) != 3 || len(m.Size) != 3 {
		return models.ROI{}, models.Errorf(models.ErrSchema, "parse markup", path,
			"markup needs 3-component center and size, got %d and %d", len(m.Center), len(m.Size))
	}
	if m.CoordinateSystem != "" {
		slog.Debug("Markup coordinate system", "file", path, "system", m.CoordinateSystem)
	}

	roi := models.ROI{SourceFile: path}
	copy(roi.Center[:], m.Center)
	copy(roi.Size[:], m.Size)
	return roi, nil
}

// decodeAnnotations reads every corner-anchored box of an annotation
// document. z is only required when the box is projected.
func decodeAnnotations(path string, data []byte, needZ bool) ([]models.PixelBox, error) {
	var doc models.AnnotationFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, models.NewError(models.ErrSchema, "parse annotations", path, err)
	}
	if doc.Annotations == nil {
		return nil, models.Errorf(models.ErrSchema, "parse annotations", path, `missing "annotations" key`)
	}

	boxes := make([]models.PixelBox, 0, len(doc.Annotations))
	for i, a := range doc.Annotations {
		required := []namedValue{{"x", a.X}, {"y", a.Y}, {"width", a.Width}, {"height", a.Height}}
		if needZ {
			required = append(required, namedValue{"z", a.Z})
		}
		for _, r := range required {
			if r.value == nil {
				return nil, models.Errorf(models.ErrSchema, "parse annotations", path, "annotation %d is missing %q", i, r.key)
			}
		}

		boxes = append(boxes, models.PixelBox{
			X:          *a.X,
			Y:          *a.Y,
			Z:          valueOr(a.Z, 0),
			Width:      *a.Width,
			Height:     *a.Height,
			Depth:      valueOr(a.Depth, 0),
			SourceFile: path,
		})
	}
	return boxes, nil
}

type namedValue struct {
	key   string
	value *float64
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// withPath attaches the annotation path to a classified error that lacks one
func withPath(err error, path string) error {
	if merr, ok := err.(*models.Error); ok && merr.Path == "" {
		return models.NewError(merr.Kind, merr.Op, path, merr.Err)
	}
	return err
}

func warnOutOfBounds(rec models.OutputRecord) {
	if !rec.InBounds() {
		slog.Warn("ROI extends outside the image", "file", rec.SourceFile, "values", rec.Values())
	}
}
