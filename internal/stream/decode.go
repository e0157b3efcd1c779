package stream

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame versions.
const (
	VersionLegacy = 1
	VersionClipV2 = 2
)

// Record layout.
const (
	RecordSizeV1 = 9
	RecordSizeV2 = 7

	// HeaderSizeV2 is the configuration id preceding version 2 records.
	HeaderSizeV2 = 36
)

// ColorModeRGB is the only supported color mode.
const ColorModeRGB = 0

// Frame is one received stream update.
type Frame struct {
	ColorMode int
	Version   int
	Data      []byte
}

// Color is the decoded color of one light or channel.
type Color struct {
	LightID int   `json:"light_id"`
	R       uint8 `json:"r"`
	G       uint8 `json:"g"`
	B       uint8 `json:"b"`
}

// Result is a decoded frame.
type Result struct {
	Colors []Color

	// Skipped counts version 1 records with an unsupported address type.
	Skipped int
}

// ExpectedSize returns the frame length for count records.
func ExpectedSize(version, count int) (int, error) {
	switch version {
	case VersionLegacy:
		return count * RecordSizeV1, nil
	case VersionClipV2:
		return HeaderSizeV2 + count*RecordSizeV2, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// Decode parses a frame carrying count records. A frame of any other
// length is rejected whole with ErrSizeMismatch.
func Decode(data []byte, version, count int) (Result, error) {
	want, err := ExpectedSize(version, count)
	if err != nil {
		return Result{}, err
	}
	if len(data) != want {
		return Result{}, fmt.Errorf("%w: got %d bytes, want %d for %d records", ErrSizeMismatch, len(data), want, count)
	}

	res := Result{Colors: make([]Color, 0, count)}
	switch version {
	case VersionLegacy:
		for off := 0; off < len(data); off += RecordSizeV1 {
			rec := data[off : off+RecordSizeV1]
			if rec[0] != 0 {
				res.Skipped++
				continue
			}
			res.Colors = append(res.Colors, Color{
				LightID: int(binary.BigEndian.Uint16(rec[1:3])),
				R:       scale(binary.BigEndian.Uint16(rec[3:5])),
				G:       scale(binary.BigEndian.Uint16(rec[5:7])),
				B:       scale(binary.BigEndian.Uint16(rec[7:9])),
			})
		}
	case VersionClipV2:
		for off := HeaderSizeV2; off < len(data); off += RecordSizeV2 {
			rec := data[off : off+RecordSizeV2]
			res.Colors = append(res.Colors, Color{
				LightID: int(rec[0]),
				R:       scale(binary.BigEndian.Uint16(rec[1:3])),
				G:       scale(binary.BigEndian.Uint16(rec[3:5])),
				B:       scale(binary.BigEndian.Uint16(rec[5:7])),
			})
		}
	}
	return res, nil
}

// scale maps a 16-bit channel to 8 bits, rounding half away from zero.
func scale(v uint16) uint8 {
	return uint8(math.Round(float64(v) / 65535 * 255))
}
