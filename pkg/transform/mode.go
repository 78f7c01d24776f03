package transform

import (
	"fmt"
	"strings"
)

// Mode selects how annotation coordinates are turned into normalized boxes
type Mode int

const (
	// ThreeDCenterSize converts world-space ROI centers and sizes (mm)
	ThreeDCenterSize Mode = iota

	// TwoDCorner converts pixel-space corner-anchored boxes
	TwoDCorner

	// TwoDProjection projects a world point through the affine and then
	// treats it as the corner of a pixel-space box
	TwoDProjection
)

var modeNames = map[Mode]string{
	ThreeDCenterSize: "3d-center-size",
	TwoDCorner:       "2d-corner",
	TwoDProjection:   "2d-projection",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Dims returns the number of coordinates per center and size in the output
func (m Mode) Dims() int {
	if m == ThreeDCenterSize {
		return 3
	}
	return 2
}

// ParseMode parses a mode name as written in configuration files and flags
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for mode, name := range modeNames {
		if key == name {
			return mode, nil
		}
	}
	switch key {
	case "3d", "center-size":
		return ThreeDCenterSize, nil
	case "2d", "corner":
		return TwoDCorner, nil
	case "projection":
		return TwoDProjection, nil
	}
	return 0, fmt.Errorf("unknown mode %q (expected 3d-center-size, 2d-corner or 2d-projection)", s)
}
