package sensor

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// IIODevicesDir is where the kernel exposes industrial I/O devices.
const IIODevicesDir = "/sys/bus/iio/devices"

// IIOChannel reads one value file of a kernel IIO device, for example
// in_temp_input of the dht11 driver (millidegrees, scale 0.001) or
// in_voltage0_raw of an ADC (scale 1).
type IIOChannel struct {
	Path  string
	Scale float64
}

// NewIIOChannel builds a channel for device (e.g. "iio:device0") and file
// (e.g. "in_temp_input") under IIODevicesDir. A zero scale means 1.
func NewIIOChannel(device, file string, scale float64) *IIOChannel {
	if scale == 0 {
		scale = 1
	}
	return &IIOChannel{Path: filepath.Join(IIODevicesDir, device, file), Scale: scale}
}

// Read returns the scaled value, or an invalid reading when the file cannot
// be read or parsed. Drivers like dht11 return EIO on a bad checksum.
func (c *IIOChannel) Read() Reading[float64] {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		log.Debug().Err(err).Str("path", c.Path).Msg("iio read failed")
		return Reading[float64]{}
	}
	raw, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || math.IsNaN(raw) || math.IsInf(raw, 0) {
		log.Debug().Str("path", c.Path).Str("raw", strings.TrimSpace(string(data))).Msg("iio value unparseable")
		return Reading[float64]{}
	}
	return Valid(raw * c.Scale)
}
