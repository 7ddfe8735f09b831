package nwb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"

	"github.com/neurodata-lab/widefield-nwb/internal/metadata"
)

func TestDirWriter_WriteImagingSeries(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDirWriter(dir)
	if err != nil {
		t.Fatalf("NewDirWriter failed: %v", err)
	}

	series := ImagingSeries{
		Name:             "optical_channel_calcium",
		ChannelID:        2,
		WavelengthNm:     470,
		Color:            "blue",
		Height:           2,
		Width:            2,
		SamplingHz:       30.0,
		TimestampsSource: "externally-aligned",
		Timestamps:       []float64{0.0, 0.2, 0.4},
		Data:             []byte{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3},
	}

	if err = writer.WriteImagingSeries(context.Background(), &series); err != nil {
		t.Fatalf("WriteImagingSeries failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "optical_channel_calcium.times.npy"))
	if err != nil {
		t.Fatalf("opening timestamps array: %v", err)
	}
	defer f.Close()

	var timestamps []float64
	if err = npyio.Read(f, &timestamps); err != nil {
		t.Fatalf("reading timestamps array: %v", err)
	}
	if len(timestamps) != 3 || timestamps[1] != 0.2 {
		t.Errorf("unexpected timestamps %v", timestamps)
	}

	for _, name := range []string{
		"optical_channel_calcium.data.npy",
		"optical_channel_calcium.yaml",
	} {
		if _, err = os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}
}

func TestDirWriter_TimestampCountMismatch(t *testing.T) {
	writer, err := NewDirWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirWriter failed: %v", err)
	}

	series := ImagingSeries{
		Name:       "optical_channel_calcium",
		Height:     2,
		Width:      2,
		Timestamps: []float64{0.0},
		Data:       make([]byte, 8), // two samples
	}

	if err = writer.WriteImagingSeries(context.Background(), &series); err == nil {
		t.Error("expected error for timestamp/sample count mismatch")
	}
}

func TestDirWriter_WriteMetadata(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDirWriter(dir)
	if err != nil {
		t.Fatalf("NewDirWriter failed: %v", err)
	}

	doc := metadata.Document{"NWBFile": map[string]any{"lab": "widefield lab"}}
	if err = writer.WriteMetadata(context.Background(), doc); err != nil {
		t.Fatalf("WriteMetadata failed: %v", err)
	}

	loaded, err := metadata.LoadFile(filepath.Join(dir, "metadata.yaml"))
	if err != nil {
		t.Fatalf("reloading metadata: %v", err)
	}
	if _, ok := loaded["NWBFile"]; !ok {
		t.Error("expected NWBFile key in written metadata")
	}
}
