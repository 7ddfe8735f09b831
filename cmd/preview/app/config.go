package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	CacheDir      string
	OutputFile    string
	Format        ImageFormat
	CamlogFile    string
	ChannelID     int
	StartSample   int
	NumSamples    int
	Columns       int
	NoAnnotations bool
	Verbose       bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:     ImagePNG,
		ChannelID:  -1,
		NumSamples: 16,
		Columns:    4,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat string
	flag.StringVar(&c.CacheDir, "cache", "", "Path to the frame cache folder")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&c.CamlogFile, "camlog", "", "Path to the camera log for channel demultiplexing")
	flag.IntVar(&c.ChannelID, "channel", -1, "Excitation channel id to preview (requires -camlog)")
	flag.IntVar(&c.StartSample, "start", 0, "First sample of the preview range")
	flag.IntVar(&c.NumSamples, "n", 16, "Number of frames in the montage")
	flag.IntVar(&c.Columns, "cols", 4, "Number of montage columns")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as frame indices and timestamps")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	var err error
	if c.CacheDir == "" {
		err = errors.New("cache folder is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.ChannelID >= 0 && c.CamlogFile == "" {
		err = errors.New("-channel requires -camlog")
	} else if c.StartSample < 0 || c.NumSamples <= 0 || c.Columns <= 0 {
		err = errors.New("invalid preview range")
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
