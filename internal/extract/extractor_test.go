package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/neurodata-lab/widefield-nwb/internal/cache"
	"github.com/neurodata-lab/widefield-nwb/internal/camlog"
	"github.com/neurodata-lab/widefield-nwb/internal/lightsource"
)

// interleavedEntries builds a strictly alternating dual-channel log:
// frame 1 on channelA, frame 2 on channelB, and so on.
func interleavedEntries(n, channelA, channelB int) []camlog.Entry {
	entries := make([]camlog.Entry, n)
	for i := range entries {
		channel := channelA
		if i%2 == 1 {
			channel = channelB
		}
		entries[i] = camlog.Entry{
			ChannelID: channel,
			FrameID:   i + 1,
			Timestamp: float64(i) * 0.033,
		}
	}
	return entries
}

// writeFixture assembles a full on-disk fixture: a cache of n uniform
// frames (frame i filled with value i), a matching camera log and the
// dual-channel properties table.
func writeFixture(t *testing.T, n, height, width int) (cacheDir, camlogPath string, table *lightsource.Table) {
	t.Helper()

	cacheDir = t.TempDir()
	frameBytes := height * width

	data := make([]byte, n*frameBytes)
	for i := 0; i < n; i++ {
		for j := 0; j < frameBytes; j++ {
			data[i*frameBytes+j] = byte(i)
		}
	}
	if err := os.WriteFile(filepath.Join(cacheDir, cache.DataFileName), data, 0o644); err != nil {
		t.Fatalf("writing cache binary: %v", err)
	}

	meta, _ := json.Marshal(cache.Meta{
		TotalNumSamples: n,
		Height:          height,
		Width:           width,
		Dtype:           "uint8",
		FPS:             60.0,
	})
	if err := os.WriteFile(filepath.Join(cacheDir, cache.MetaFileName), meta, 0o644); err != nil {
		t.Fatalf("writing cache metadata: %v", err)
	}

	var log bytes.Buffer
	for _, e := range interleavedEntries(n, 2, 3) {
		fmt.Fprintf(&log, "#LED:%d,%d,%.3f\n", e.ChannelID, e.FrameID, e.Timestamp)
	}
	camlogPath = filepath.Join(t.TempDir(), "widefield.camlog")
	if err := os.WriteFile(camlogPath, log.Bytes(), 0o644); err != nil {
		t.Fatalf("writing camera log: %v", err)
	}

	table = lightsource.NewTable([]lightsource.Property{
		{ChannelID: 2, WavelengthNm: 470, Color: "blue"},
		{ChannelID: 3, WavelengthNm: 405, Color: "violet"},
	})
	return cacheDir, camlogPath, table
}

func TestSelectChannel_PartitionLaw(t *testing.T) {
	entries := interleavedEntries(10, 2, 3)

	a := SelectChannel(entries, 2)
	b := SelectChannel(entries, 3)

	if len(a)+len(b) != len(entries) {
		t.Errorf("partition law violated: %d + %d != %d", len(a), len(b), len(entries))
	}

	seen := make(map[int]bool, len(a))
	for _, idx := range a {
		seen[idx] = true
	}
	for _, idx := range b {
		if seen[idx] {
			t.Errorf("index %d present in both channel selections", idx)
		}
	}
}

func TestSelectChannel_ZeroBasedOrder(t *testing.T) {
	entries := interleavedEntries(6, 2, 3)

	indices := SelectChannel(entries, 2)
	expected := []int{0, 2, 4}

	if len(indices) != len(expected) {
		t.Fatalf("expected %d indices, got %d", len(expected), len(indices))
	}
	for i, want := range expected {
		if indices[i] != want {
			t.Errorf("index %d: expected %d, got %d", i, want, indices[i])
		}
	}
}

func TestValidateChannels(t *testing.T) {
	tests := []struct {
		name    string
		entries []camlog.Entry
		wantErr bool
	}{
		{"two channels", interleavedEntries(4, 2, 3), false},
		{"single channel", interleavedEntries(4, 2, 2), true},
		{"three channels", append(interleavedEntries(4, 2, 3), camlog.Entry{ChannelID: 4, FrameID: 5, Timestamp: 0.2}), true},
		{"empty log", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChannels(tt.entries)
			if tt.wantErr && !errors.Is(err, ErrChannelCount) {
				t.Errorf("expected ErrChannelCount, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExtractor_NumSamplesAndRate(t *testing.T) {
	cacheDir, camlogPath, table := writeFixture(t, 10, 2, 2)

	extractor, err := NewExtractor(cacheDir, camlogPath, table, 470)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	defer extractor.Close()

	if n := extractor.NumSamples(); n != 5 {
		t.Errorf("expected 5 samples, got %d", n)
	}

	// Combined 60 Hz across two interleaved channels is 30 Hz per channel.
	if hz := extractor.SamplingFrequency(); hz != 30.0 {
		t.Errorf("expected 30.0 Hz, got %f", hz)
	}

	if name := extractor.ChannelName(); name != "optical_channel_calcium" {
		t.Errorf("expected calcium channel name, got %s", name)
	}
}

func TestExtractor_ReadRange(t *testing.T) {
	cacheDir, camlogPath, table := writeFixture(t, 10, 2, 2)

	extractor, err := NewExtractor(cacheDir, camlogPath, table, 405)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	defer extractor.Close()

	// Channel 3 owns raw frames 1, 3, 5, 7, 9. Samples [1, 4) of that
	// channel resolve to raw frames 3, 5, 7.
	data, err := extractor.ReadRange(1, 4)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}

	frameBytes := 2 * 2
	if len(data) != 3*frameBytes {
		t.Fatalf("expected %d bytes, got %d", 3*frameBytes, len(data))
	}
	for i, want := range []byte{3, 5, 7} {
		if data[i*frameBytes] != want {
			t.Errorf("sample %d: expected raw frame value %d, got %d", i, want, data[i*frameBytes])
		}
	}
}

func TestExtractor_EmptyRange(t *testing.T) {
	cacheDir, camlogPath, table := writeFixture(t, 10, 2, 2)

	extractor, err := NewExtractor(cacheDir, camlogPath, table, 470)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	defer extractor.Close()

	if _, err = extractor.ReadRange(3, 3); !errors.Is(err, cache.ErrNoFramesSelected) {
		t.Errorf("expected ErrNoFramesSelected, got %v", err)
	}
	if _, err = extractor.ReadRange(5, 2); !errors.Is(err, cache.ErrNoFramesSelected) {
		t.Errorf("expected ErrNoFramesSelected for inverted range, got %v", err)
	}
}

func TestExtractor_NativeTimestamps(t *testing.T) {
	cacheDir, camlogPath, table := writeFixture(t, 6, 2, 2)

	extractor, err := NewExtractor(cacheDir, camlogPath, table, 470)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	defer extractor.Close()

	timestamps := extractor.NativeTimestamps(0, -1)
	if len(timestamps) != 3 {
		t.Fatalf("expected 3 timestamps, got %d", len(timestamps))
	}

	// Channel 2 owns log entries 0, 2, 4.
	expected := []float64{0.0, 0.066, 0.132}
	for i, want := range expected {
		if timestamps[i] != want {
			t.Errorf("timestamp %d: expected %f, got %f", i, want, timestamps[i])
		}
	}
}

func TestExtractor_UnknownWavelength(t *testing.T) {
	cacheDir, camlogPath, table := writeFixture(t, 4, 2, 2)

	if _, err := NewExtractor(cacheDir, camlogPath, table, 500); !errors.Is(err, lightsource.ErrWavelengthNotFound) {
		t.Errorf("expected ErrWavelengthNotFound, got %v", err)
	}
}

func TestExtractor_SingleChannelLog(t *testing.T) {
	cacheDir, _, table := writeFixture(t, 4, 2, 2)

	var log bytes.Buffer
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&log, "#LED:2,%d,%.3f\n", i+1, float64(i)*0.033)
	}
	camlogPath := filepath.Join(t.TempDir(), "single.camlog")
	if err := os.WriteFile(camlogPath, log.Bytes(), 0o644); err != nil {
		t.Fatalf("writing camera log: %v", err)
	}

	if _, err := NewExtractor(cacheDir, camlogPath, table, 470); !errors.Is(err, ErrChannelCount) {
		t.Errorf("expected ErrChannelCount, got %v", err)
	}
}
