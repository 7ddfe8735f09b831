package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neurodata-lab/widefield-nwb/internal/align"
	"github.com/neurodata-lab/widefield-nwb/internal/cache"
	"github.com/neurodata-lab/widefield-nwb/internal/extract"
	"github.com/neurodata-lab/widefield-nwb/internal/lightsource"
	"github.com/neurodata-lab/widefield-nwb/internal/metadata"
	"github.com/neurodata-lab/widefield-nwb/internal/nwb"
	"github.com/neurodata-lab/widefield-nwb/internal/storage"
	"github.com/neurodata-lab/widefield-nwb/internal/video"
	"github.com/neurodata-lab/widefield-nwb/internal/video/ffmpeg"
)

const camlogPattern = "*.camlog"

// Run executes one session conversion: build the frame cache, validate
// it, extract both excitation channels with their resolved timestamps,
// write the output container and record the run in the bookkeeping
// database. All failures are fatal; the job is re-runnable.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store := storage.New(config.Storage.DatabaseFile)
	defer store.Close()

	opener := func(path string) (video.Source, error) {
		return ffmpeg.Open(ctx, path)
	}

	builder := cache.NewBuilder(opener, cache.WithLogger(logger))
	cacheDir, err := builder.Build(ctx, config.Session.RawDataDir, config.Session.CacheDir, config.Cache.Force)
	if err != nil {
		return fmt.Errorf("building frame cache: %w", err)
	}

	meta, err := cache.LoadMeta(filepath.Join(cacheDir, cache.MetaFileName))
	if err != nil {
		return fmt.Errorf("validating frame cache: %w", err)
	}

	logger.Info("frame cache ready",
		slog.String("cache", cacheDir),
		slog.Int("frames", meta.TotalNumSamples),
		slog.Int("height", meta.Height),
		slog.Int("width", meta.Width),
		slog.Float64("fps", meta.FPS),
	)

	camlogPath := config.Session.CamlogFile
	if camlogPath == "" {
		if camlogPath, err = findCamlog(config.Session.RawDataDir); err != nil {
			return err
		}
	}

	table, err := lightsource.Load(config.Channels.PropertiesFile)
	if err != nil {
		return err
	}

	source := align.SelectSource(config.Alignment.TimesFile, config.Alignment.LightSourceFile)
	logger.Info("timestamp source selected", slog.String("source", source.Kind.String()))

	sessionID, err := store.CreateSession(ctx, config.Session.Subject, config.Session.ID, config.Session.RawDataDir, config)
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}

	if err = recordCache(ctx, store, sessionID, cacheDir, meta, config.Session.RawDataDir); err != nil {
		return err
	}

	writer, err := nwb.NewDirWriter(config.Session.OutputDir, nwb.WithLogger(logger))
	if err != nil {
		return err
	}

	merged, err := metadata.Merge(config.Metadata.DefaultsFile, config.Metadata.OverridesFile)
	if err != nil {
		return fmt.Errorf("merging metadata: %w", err)
	}
	if err = writer.WriteMetadata(ctx, merged); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	wavelengths := []int{
		config.Channels.FunctionalWavelengthNm,
		config.Channels.IsosbesticWavelengthNm,
	}
	for _, wavelengthNm := range wavelengths {
		if err = convertChannel(ctx, convertChannelParams{
			cacheDir:     cacheDir,
			camlogPath:   camlogPath,
			table:        table,
			source:       source,
			wavelengthNm: wavelengthNm,
			stubFrames:   config.Settings.StubFrames,
			writer:       writer,
			store:        store,
			sessionID:    sessionID,
			logger:       logger,
		}); err != nil {
			return fmt.Errorf("converting %d nm channel: %w", wavelengthNm, err)
		}
	}

	logger.Info("session conversion completed",
		slog.String("subject", config.Session.Subject),
		slog.String("session", config.Session.ID),
		slog.String("output", config.Session.OutputDir),
	)
	return nil
}

type convertChannelParams struct {
	cacheDir     string
	camlogPath   string
	table        *lightsource.Table
	source       align.Source
	wavelengthNm int
	stubFrames   int
	writer       nwb.Writer
	store        *storage.Store
	sessionID    int64
	logger       *slog.Logger
}

func convertChannel(ctx context.Context, p convertChannelParams) error {
	extractor, err := extract.NewExtractor(p.cacheDir, p.camlogPath, p.table, p.wavelengthNm)
	if err != nil {
		return err
	}
	defer extractor.Close()

	timestamps, err := p.source.ChannelTimestamps(extractor, p.table)
	if err != nil {
		return err
	}

	end := extractor.NumSamples()
	if p.stubFrames > 0 && p.stubFrames < end {
		end = p.stubFrames
		p.logger.Warn("stub mode: truncating channel samples",
			slog.Int("wavelengthNm", p.wavelengthNm),
			slog.Int("samples", end),
		)
	}

	data, err := extractor.ReadRange(0, end)
	if err != nil {
		return err
	}
	if len(timestamps) > end {
		timestamps = timestamps[:end]
	}

	height, width := extractor.ImageShape()
	property := extractor.Property()

	series := nwb.ImagingSeries{
		Name:             extractor.ChannelName(),
		ChannelID:        property.ChannelID,
		WavelengthNm:     property.WavelengthNm,
		Color:            property.Color,
		Height:           height,
		Width:            width,
		SamplingHz:       extractor.SamplingFrequency(),
		TimestampsSource: p.source.Kind.String(),
		Timestamps:       timestamps,
		Data:             data,
	}
	if err = p.writer.WriteImagingSeries(ctx, &series); err != nil {
		return err
	}

	_, err = p.store.RecordSeries(ctx, &storage.SeriesRecord{
		SessionID:        p.sessionID,
		Name:             series.Name,
		ChannelID:        series.ChannelID,
		WavelengthNm:     series.WavelengthNm,
		NumSamples:       series.NumSamples(),
		SamplingHz:       series.SamplingHz,
		TimestampsSource: series.TimestampsSource,
	})
	if err != nil {
		return err
	}

	return nil
}

func recordCache(ctx context.Context, store *storage.Store, sessionID int64, cacheDir string, meta cache.Meta, rawDir string) error {
	record := storage.CacheRecord{
		SessionID:       sessionID,
		Path:            cacheDir,
		TotalNumSamples: meta.TotalNumSamples,
		Height:          meta.Height,
		Width:           meta.Width,
		Dtype:           meta.Dtype,
		FPS:             meta.FPS,
	}

	if stat, err := os.Stat(filepath.Join(cacheDir, cache.DataFileName)); err == nil {
		record.CacheBytes = stat.Size()
	}
	if sourcePath, err := filepath.Glob(filepath.Join(rawDir, cache.SourcePattern)); err == nil && len(sourcePath) == 1 {
		if stat, err := os.Stat(sourcePath[0]); err == nil {
			record.SourceBytes = stat.Size()
		}
	}

	if _, err := store.RecordCache(ctx, &record); err != nil {
		return fmt.Errorf("recording cache artifact: %w", err)
	}

	return nil
}

// findCamlog locates exactly one camera log file in the raw-data folder.
func findCamlog(rawDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(rawDir, camlogPattern))
	if err != nil {
		return "", fmt.Errorf("globbing '%s': %w", rawDir, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no '%s' files found in folder '%s'", camlogPattern, rawDir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("multiple '%s' files found in folder '%s', ensure only one is present", camlogPattern, rawDir)
	}
}
