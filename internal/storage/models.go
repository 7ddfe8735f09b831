package storage

import "time"

// Session represents one conversion run for a recording session.
type Session struct {
	ID        int64     // Database identifier
	StartTime time.Time // When the conversion run began
	Subject   string    // Subject identifier
	SessionID string    // Lab session identifier (experiment id)
	RawPath   string    // Raw-data folder the session was converted from
	Config    *string   // Conversion configuration in JSON format, if any
}

// CacheRecord describes a built frame cache artifact.
type CacheRecord struct {
	ID              int64
	SessionID       int64
	Path            string  // Cache folder path
	TotalNumSamples int     // Actual written frame count (ground truth)
	Height          int     // Frame height in pixels
	Width           int     // Frame width in pixels
	Dtype           string  // Stored sample dtype, e.g. "uint8"
	FPS             float64 // Combined interleaved capture rate
	SourceBytes     int64   // Raw video size on disk
	CacheBytes      int64   // Cache binary size on disk
}

// SeriesRecord describes one extracted per-channel imaging series.
type SeriesRecord struct {
	ID               int64
	SessionID        int64
	Name             string  // Series name in the output container
	ChannelID        int     // Excitation channel id
	WavelengthNm     int     // Excitation wavelength
	NumSamples       int     // Demultiplexed per-channel sample count
	SamplingHz       float64 // Per-channel sampling rate
	TimestampsSource string  // "externally-aligned" or "native-log"
}
