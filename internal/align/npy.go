package align

import (
	"fmt"
	"os"

	"github.com/sbinet/npyio"
)

// LoadTimes reads a flat numeric .npy array (e.g. "imaging.times.npy")
// as float64 seconds.
func LoadTimes(path string) ([]float64, error) {
	return loadFloats(path)
}

// LoadLightSources reads the per-frame light-source channel array
// ("imaging.imagingLightSource.npy"). Upstream writers encode it either
// as integers or as floats; both are accepted.
func LoadLightSources(path string) ([]int, error) {
	values, err := loadFloats(path)
	if err != nil {
		return nil, err
	}

	channels := make([]int, len(values))
	for i, v := range values {
		channels[i] = int(v)
	}

	return channels, nil
}

func loadFloats(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening array file: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading npy header of '%s': %w", path, err)
	}

	switch r.Header.Descr.Type {
	case "<f8", "|f8", ">f8":
		var data []float64
		if err = r.Read(&data); err != nil {
			return nil, fmt.Errorf("reading float64 array '%s': %w", path, err)
		}
		return data, nil

	case "<f4", "|f4", ">f4":
		var data []float32
		if err = r.Read(&data); err != nil {
			return nil, fmt.Errorf("reading float32 array '%s': %w", path, err)
		}
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil

	case "<i8", "|i8", ">i8":
		var data []int64
		if err = r.Read(&data); err != nil {
			return nil, fmt.Errorf("reading int64 array '%s': %w", path, err)
		}
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil

	case "<i4", "|i4", ">i4":
		var data []int32
		if err = r.Read(&data); err != nil {
			return nil, fmt.Errorf("reading int32 array '%s': %w", path, err)
		}
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported npy dtype '%s' in '%s'", r.Header.Descr.Type, path)
	}
}
