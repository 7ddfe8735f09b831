package lightsource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "imagingLightSource.properties.htsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing properties: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	table, err := Load(writeTable(t, "channel_id\twavelength\tcolor\n2\t470\tblue\n3\t405\tviolet\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	properties := table.Properties()
	if len(properties) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(properties))
	}

	want := Property{ChannelID: 2, WavelengthNm: 470, Color: "blue"}
	if properties[0] != want {
		t.Errorf("expected %+v, got %+v", want, properties[0])
	}
}

func TestLoad_LEDColumnAlias(t *testing.T) {
	table, err := Load(writeTable(t, "LED\twavelength\tcolor\n2\t470\tblue\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	id, err := table.ChannelForWavelength(470)
	if err != nil {
		t.Fatalf("ChannelForWavelength failed: %v", err)
	}
	if id != 2 {
		t.Errorf("expected channel 2, got %d", id)
	}
}

func TestLoad_MissingColumns(t *testing.T) {
	if _, err := Load(writeTable(t, "color\tname\nblue\tx\n")); err == nil {
		t.Error("expected error for missing channel/wavelength columns")
	}
}

func TestChannelForWavelength(t *testing.T) {
	table := NewTable([]Property{
		{ChannelID: 2, WavelengthNm: 470, Color: "blue"},
		{ChannelID: 3, WavelengthNm: 405, Color: "violet"},
	})

	tests := []struct {
		name         string
		wavelengthNm int
		wantChannel  int
		wantErr      bool
	}{
		{"functional", 470, 2, false},
		{"isosbestic", 405, 3, false},
		{"unknown wavelength", 500, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := table.ChannelForWavelength(tt.wavelengthNm)
			if tt.wantErr {
				if !errors.Is(err, ErrWavelengthNotFound) {
					t.Errorf("expected ErrWavelengthNotFound, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ChannelForWavelength failed: %v", err)
			}
			if id != tt.wantChannel {
				t.Errorf("expected channel %d, got %d", tt.wantChannel, id)
			}
		})
	}
}
