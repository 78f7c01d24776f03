package imagemeta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"roi2bb/internal/models"
)

const (
	nifti1HeaderSize = 348
	nifti2HeaderSize = 540
)

// nifti1Header is the fixed 348-byte NIfTI-1 header
type nifti1Header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// LoadNIfTI reads a .nii or .nii.gz header.
//
// The affine is chosen the way neuroimaging readers do: the sform when its
// code is set, otherwise the qform, otherwise a centered base affine with
// the x axis flipped.
func LoadNIfTI(path string) (*models.ImageMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.ErrIO, "open image", path, err)
	}
	defer f.Close()

	hdr, err := readNIfTIHeader(f)
	if err != nil {
		var merr *models.Error
		if errors.As(err, &merr) {
			merr.Path = path
			return nil, merr
		}
		return nil, models.NewError(models.ErrIO, "read nifti header", path, err)
	}

	return hdr.metadata()
}

// readNIfTIHeader decodes the header from a plain or gzip-compressed stream
func readNIfTIHeader(r io.Reader) (*nifti1Header, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		br = bufio.NewReader(gz)
	}

	raw := make([]byte, nifti1HeaderSize)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("header truncated: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw) == nifti1HeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw) == nifti1HeaderSize:
		order = binary.BigEndian
	case binary.LittleEndian.Uint32(raw) == nifti2HeaderSize, binary.BigEndian.Uint32(raw) == nifti2HeaderSize:
		return nil, models.Errorf(models.ErrUnsupportedFormat, "read nifti header", "", "NIfTI-2 headers are not supported")
	default:
		return nil, fmt.Errorf("sizeof_hdr is not %d", nifti1HeaderSize)
	}

	hdr := &nifti1Header{}
	if err := binary.Read(bytes.NewReader(raw), order, hdr); err != nil {
		return nil, err
	}

	magic := string(hdr.Magic[:3])
	if magic != "n+1" && magic != "ni1" {
		return nil, fmt.Errorf("bad magic %q", hdr.Magic[:])
	}
	if hdr.Dim[0] < 1 || hdr.Dim[0] > 7 {
		return nil, fmt.Errorf("dim[0] = %d out of range", hdr.Dim[0])
	}
	return hdr, nil
}

func (h *nifti1Header) metadata() (*models.ImageMetadata, error) {
	ndim := int(h.Dim[0])

	dims := make([]int, 0, 3)
	spacing := make([]float64, 0, 3)
	for i := 1; i <= ndim && i <= 3; i++ {
		dims = append(dims, int(h.Dim[i]))
		spacing = append(spacing, float64(h.Pixdim[i]))
	}

	meta := &models.ImageMetadata{
		Shape:      shape3(dims),
		Resolution: spacing3(spacing),
	}

	switch {
	case h.SformCode > 0:
		meta.Affine = h.sformAffine()
	case h.QformCode > 0:
		meta.Affine = h.qformAffine(meta.Resolution)
	default:
		meta.Affine = baseAffine(meta.Shape, meta.Resolution)
	}
	return meta, nil
}

func (h *nifti1Header) sformAffine() *mat.Dense {
	affine := mat.NewDense(4, 4, nil)
	for j := 0; j < 4; j++ {
		affine.Set(0, j, float64(h.SrowX[j]))
		affine.Set(1, j, float64(h.SrowY[j]))
		affine.Set(2, j, float64(h.SrowZ[j]))
	}
	affine.Set(3, 3, 1)
	return affine
}

// qformAffine builds rotation * diag(zooms) from the quaternion parameters
func (h *nifti1Header) qformAffine(zooms []float64) *mat.Dense {
	b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
	a := 0.0
	if w2 := 1 - (b*b + c*c + d*d); w2 > 0 {
		a = math.Sqrt(w2)
	}

	rotation := mat.NewDense(3, 3, []float64{
		a*a + b*b - c*c - d*d, 2*b*c - 2*a*d, 2*b*d + 2*a*c,
		2*b*c + 2*a*d, a*a + c*c - b*b - d*d, 2*c*d - 2*a*b,
		2*b*d - 2*a*c, 2*c*d + 2*a*b, a*a + d*d - c*c - b*b,
	})

	qfac := 1.0
	if h.Pixdim[0] < 0 {
		qfac = -1
	}
	scale := mat.NewDiagDense(3, []float64{zooms[0], zooms[1], zooms[2] * qfac})

	var linear mat.Dense
	linear.Mul(rotation, scale)

	return homogeneous(&linear, [3]float64{float64(h.QoffsetX), float64(h.QoffsetY), float64(h.QoffsetZ)})
}

// baseAffine centers the volume on the world origin and flips x, for files
// that carry neither sform nor qform
func baseAffine(shape [3]int, zooms []float64) *mat.Dense {
	scaled := [3]float64{-zooms[0], zooms[1], zooms[2]}
	var offset [3]float64
	for i := 0; i < 3; i++ {
		offset[i] = -float64(shape[i]-1) / 2 * scaled[i]
	}
	return homogeneous(mat.NewDiagDense(3, scaled[:]), offset)
}

// homogeneous assembles a 4x4 affine from a 3x3 linear part and a translation
func homogeneous(linear mat.Matrix, translation [3]float64) *mat.Dense {
	affine := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			affine.Set(i, j, linear.At(i, j))
		}
		affine.Set(i, 3, translation[i])
	}
	affine.Set(3, 3, 1)
	return affine
}
