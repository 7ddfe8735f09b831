// Package lightsource loads the rig's light-source properties table: the
// mapping between excitation channel ids, wavelengths and display colors.
package lightsource

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrWavelengthNotFound is returned when no table row carries the
// requested excitation wavelength.
var ErrWavelengthNotFound = errors.New("no channel id found for wavelength")

// Property describes one excitation light source.
type Property struct {
	ChannelID    int    // Channel id used by the camera log and aligned arrays
	WavelengthNm int    // Excitation wavelength in nanometers
	Color        string // Human-readable color label, e.g. "blue"
}

// Table is the immutable set of light-source properties for a session,
// loaded fresh per extractor instantiation.
type Table struct {
	properties []Property
}

// Load reads a tab-separated properties file. The header row must carry a
// channel id column (named "channel_id" or "LED"), a "wavelength" column
// and a "color" column, in any order. Extra columns are ignored.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening light source properties: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err = scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading light source properties '%s': %w", path, err)
		}
		return nil, fmt.Errorf("light source properties file '%s' is empty", path)
	}

	channelCol, wavelengthCol, colorCol := -1, -1, -1
	for i, name := range strings.Split(scanner.Text(), "\t") {
		switch strings.TrimSpace(name) {
		case "channel_id", "LED":
			channelCol = i
		case "wavelength":
			wavelengthCol = i
		case "color":
			colorCol = i
		}
	}
	if channelCol < 0 || wavelengthCol < 0 {
		return nil, fmt.Errorf("light source properties file '%s' is missing channel_id/LED or wavelength columns", path)
	}

	var properties []Property
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) <= channelCol || len(fields) <= wavelengthCol {
			return nil, fmt.Errorf("malformed properties row '%s' in '%s'", line, path)
		}

		channelID, err := strconv.Atoi(strings.TrimSpace(fields[channelCol]))
		if err != nil {
			return nil, fmt.Errorf("invalid channel id '%s': %w", fields[channelCol], err)
		}

		wavelength, err := strconv.Atoi(strings.TrimSpace(fields[wavelengthCol]))
		if err != nil {
			return nil, fmt.Errorf("invalid wavelength '%s': %w", fields[wavelengthCol], err)
		}

		p := Property{ChannelID: channelID, WavelengthNm: wavelength}
		if colorCol >= 0 && len(fields) > colorCol {
			p.Color = strings.TrimSpace(fields[colorCol])
		}

		properties = append(properties, p)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading light source properties '%s': %w", path, err)
	}

	return &Table{properties: properties}, nil
}

// NewTable builds a table from in-memory properties. Used by tests and by
// callers that source properties from somewhere other than an .htsv file.
func NewTable(properties []Property) *Table {
	return &Table{properties: append([]Property(nil), properties...)}
}

// ChannelForWavelength resolves an excitation wavelength to its channel id.
func (t *Table) ChannelForWavelength(wavelengthNm int) (int, error) {
	for _, p := range t.properties {
		if p.WavelengthNm == wavelengthNm {
			return p.ChannelID, nil
		}
	}

	return 0, fmt.Errorf("%w: %d nm", ErrWavelengthNotFound, wavelengthNm)
}

// PropertyForWavelength returns the full property row for a wavelength.
func (t *Table) PropertyForWavelength(wavelengthNm int) (Property, error) {
	for _, p := range t.properties {
		if p.WavelengthNm == wavelengthNm {
			return p, nil
		}
	}

	return Property{}, fmt.Errorf("%w: %d nm", ErrWavelengthNotFound, wavelengthNm)
}

// Properties returns a copy of all rows in table order.
func (t *Table) Properties() []Property {
	return append([]Property(nil), t.properties...)
}
