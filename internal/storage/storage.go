// Package storage keeps the conversion bookkeeping database: which
// sessions were converted, the cache artifacts built for them and the
// per-channel series written to the output container.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store handles database operations using a Sqlite database. Write and
// read connections are opened lazily and independently.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a new database handle; the schema is initialized on first
// write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession records a new conversion run and returns its ID.
func (s *Store) CreateSession(ctx context.Context, subject, sessionID, rawPath string, config any) (id int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch c := config.(type) {
		case string:
			configData.Valid = true
			configData.String = c

		case []byte:
			configData.Valid = true
			configData.String = string(c)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, subject, sessionID, rawPath, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	id, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

// Session returns a single conversion run by ID.
func (s *Store) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.Subject, &sess.SessionID, &sess.RawPath, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

// Sessions returns all recorded conversion runs in insertion order.
func (s *Store) Sessions(ctx context.Context) (sessions []Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.Subject, &sess.SessionID, &sess.RawPath, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}

		sessions = append(sessions, sess)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating sessions: %w", err)
	}
	return
}

// RecordCache stores a built cache artifact for a session.
func (s *Store) RecordCache(ctx context.Context, record *CacheRecord) (id int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertCacheSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx,
		record.SessionID,
		record.Path,
		record.TotalNumSamples,
		record.Height,
		record.Width,
		record.Dtype,
		record.FPS,
		record.SourceBytes,
		record.CacheBytes,
	)
	if err != nil {
		err = fmt.Errorf("inserting cache record: %w", err)
		return
	}

	id, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting cache record ID: %w", err)
	}
	return
}

// RecordSeries stores one extracted per-channel series record.
func (s *Store) RecordSeries(ctx context.Context, record *SeriesRecord) (id int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSeriesSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx,
		record.SessionID,
		record.Name,
		record.ChannelID,
		record.WavelengthNm,
		record.NumSamples,
		record.SamplingHz,
		record.TimestampsSource,
	)
	if err != nil {
		err = fmt.Errorf("inserting series record: %w", err)
		return
	}

	id, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting series record ID: %w", err)
	}
	return
}

// SeriesForSession returns the series written for a conversion run.
func (s *Store) SeriesForSession(ctx context.Context, sessionID int64) (records []SeriesRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSeriesSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying series: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r SeriesRecord
		if err = rows.Scan(&r.ID, &r.SessionID, &r.Name, &r.ChannelID, &r.WavelengthNm, &r.NumSamples, &r.SamplingHz, &r.TimestampsSource); err != nil {
			err = fmt.Errorf("scanning series record: %w", err)
			return
		}

		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating series records: %w", err)
	}
	return
}

// Close closes both database connections.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
