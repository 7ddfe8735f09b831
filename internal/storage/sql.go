package storage

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time TIMESTAMP NOT NULL,
    subject    TEXT      NOT NULL,
    session_id TEXT      NOT NULL,
    raw_path   TEXT      NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS caches (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id        INTEGER NOT NULL REFERENCES sessions (id),
    path              TEXT    NOT NULL,
    total_num_samples INTEGER NOT NULL,
    height            INTEGER NOT NULL,
    width             INTEGER NOT NULL,
    dtype             TEXT    NOT NULL,
    fps               REAL    NOT NULL,
    source_bytes      INTEGER NOT NULL,
    cache_bytes       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS series (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id        INTEGER NOT NULL REFERENCES sessions (id),
    name              TEXT    NOT NULL,
    channel_id        INTEGER NOT NULL,
    wavelength_nm     INTEGER NOT NULL,
    num_samples       INTEGER NOT NULL,
    sampling_hz       REAL    NOT NULL,
    timestamps_source TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_caches_session ON caches (session_id);
CREATE INDEX IF NOT EXISTS idx_series_session ON series (session_id);`

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      subject,
                      session_id,
                      raw_path,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    subject,
    session_id,
    raw_path,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    subject,
    session_id,
    raw_path,
    config
FROM sessions
ORDER BY id`

	insertCacheSQL = `
INSERT INTO caches (session_id,
                    path,
                    total_num_samples,
                    height,
                    width,
                    dtype,
                    fps,
                    source_bytes,
                    cache_bytes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertSeriesSQL = `
INSERT INTO series (session_id,
                    name,
                    channel_id,
                    wavelength_nm,
                    num_samples,
                    sampling_hz,
                    timestamps_source)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectSeriesSQL = `
SELECT
    id,
    session_id,
    name,
    channel_id,
    wavelength_nm,
    num_samples,
    sampling_hz,
    timestamps_source
FROM series
WHERE
    session_id = ?
ORDER BY id`
)
