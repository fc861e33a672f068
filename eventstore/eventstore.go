// Package eventstore provides a simple light-weight event store implementation
// that uses sqlite or postgres as a backing storage.
// Apart from appending and reading streams, streams can be tombstoned and
// every stream ever created is listed in the $streams system stream
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid2 "github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrStreamNotFound indicates that the requested stream does not exist in the event store
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamDeleted indicates that the requested stream has been tombstoned
	// A deleted stream is also a stream that can not be found
	ErrStreamDeleted = fmt.Errorf("%w: stream is deleted", ErrStreamNotFound)

	// ErrConcurrencyCheckFailed indicates that stream entry related to a particular version already exists
	ErrConcurrencyCheckFailed = errors.New("optimistic concurrency check failed: stream version exists")
)

const (
	// StreamsStream is the system stream listing every stream created in the store
	StreamsStream = "$streams"

	// StreamCreatedType is the event type of $streams records
	StreamCreatedType = "$>"

	systemStreamPrefix = "$"
)

// New construct new event store
func New(opts ...Option) (*EventStore, error) {
	var cfg Cfg

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	if cfg.PostgresDSN == "" && cfg.SQLitePath == "" {
		return nil, fmt.Errorf("either postgres dsn or sqlite path must be provided")
	}

	if cfg.PostgresDSN != "" && cfg.SQLitePath != "" {
		return nil, fmt.Errorf("only one of postgres dsn or sqlite path can be provided")
	}

	var dial gorm.Dialector

	if cfg.PostgresDSN != "" {
		dial = postgres.Open(cfg.PostgresDSN)
	}

	if cfg.SQLitePath != "" {
		dial = sqlite.Open(cfg.SQLitePath)
	}

	db, err := gorm.Open(dial, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if cfg.SQLitePath != "" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	return &EventStore{
		db: db,
	}, db.AutoMigrate(&gormStream{}, &gormEvent{})
}

// Cfg represents event store configuration
type Cfg struct {
	PostgresDSN string
	SQLitePath  string
}

// Option represents event store configuration option
type Option func(Cfg) Cfg

// WithPostgresDB is an event store option that can be used to configure
// the eventstore to use postgres as a backing storage (pgx driver)
func WithPostgresDB(dsn string) Option {
	return func(cfg Cfg) Cfg {
		cfg.PostgresDSN = dsn

		return cfg
	}
}

// WithSQLiteDB is an event store option that can be used to configure
// the eventstore to use sqlite as a backing storage
func WithSQLiteDB(path string) Option {
	return func(cfg Cfg) Cfg {
		cfg.SQLitePath = path

		return cfg
	}
}

// EventStore represents a gorm event store implementation
type EventStore struct {
	db *gorm.DB
}

// Close should be called as a part of cleanup process
// in order to close the underlying sql connection
func (es *EventStore) Close() error {
	sqlDB, err := es.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

type gormEvent struct {
	ID            string `gorm:"unique"`
	Sequence      uint64 `gorm:"autoIncrement;primaryKey"`
	Type          string
	Data          []byte
	Meta          *string
	StreamID      string    `gorm:"index:idx_optimistic_check,unique;index"`
	StreamVersion int       `gorm:"index:idx_optimistic_check,unique"`
	OccurredOn    time.Time `gorm:"autoCreateTime"`
}

// TableName returns gorm table name
func (ge *gormEvent) TableName() string { return "event" }

// gormStream is a directory entry, one per stream name ever written or tombstoned
type gormStream struct {
	Sequence   uint64    `gorm:"autoIncrement;primaryKey"`
	Name       string    `gorm:"unique"`
	CreatedOn  time.Time `gorm:"autoCreateTime"`
	Tombstoned bool
}

// TableName returns gorm table name
func (gs *gormStream) TableName() string { return "stream" }

const (
	// AnyVersion can be used as expectedVer in order to skip the
	// optimistic concurrency check and always append
	AnyVersion int = -1

	// InitialStreamVersion can be used as an initial expectedVer for
	// new streams (as an argument to AppendStream)
	InitialStreamVersion int = 0
)

// AppendStream will try to append provided events to an indicated stream.
// If the stream does not exist it will be created and recorded in $streams.
// Unless expectedVer is AnyVersion an optimistic concurrency check will be
// performed: expectedVer should be InitialStreamVersion for new streams and
// the latest stream version for existing streams, otherwise a concurrency
// error will be raised.
// The new stream version is returned
func (es *EventStore) AppendStream(
	ctx context.Context,
	stream string,
	expectedVer int,
	events []EventToStore) (int, error) {

	if err := validateStreamName(stream); err != nil {
		return 0, err
	}

	if expectedVer < AnyVersion {
		return 0, fmt.Errorf("expected version cannot be less than %d", AnyVersion)
	}

	if len(events) == 0 {
		return 0, fmt.Errorf("at least one event must be provided")
	}

	var version int

	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, found, err := findStream(tx, stream)
		if err != nil {
			return err
		}

		if found && entry.Tombstoned {
			return ErrStreamDeleted
		}

		if !found {
			if err := tx.
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&gormStream{Name: stream}).Error; err != nil {
				return err
			}
		}

		var current int

		if err := tx.
			Model(&gormEvent{}).
			Where("stream_id = ?", stream).
			Select("COALESCE(MAX(stream_version), 0)").
			Scan(&current).Error; err != nil {
			return err
		}

		if expectedVer != AnyVersion && expectedVer != current {
			return ErrConcurrencyCheckFailed
		}

		eventsToSave, err := toGormEvents(stream, current, events)
		if err != nil {
			return err
		}

		if err := tx.Create(&eventsToSave).Error; err != nil {
			return err
		}

		version = current + len(eventsToSave)

		return nil
	})

	var sqliteErr sqlite3.Error

	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return 0, ErrConcurrencyCheckFailed
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return 0, ErrConcurrencyCheckFailed
	}

	if err != nil {
		return 0, err
	}

	return version, nil
}

func toGormEvents(stream string, current int, events []EventToStore) ([]gormEvent, error) {
	out := make([]gormEvent, len(events))

	for i, evt := range events {
		current++

		event := gormEvent{
			ID:            evt.ID,
			Type:          evt.Type,
			Data:          evt.Data,
			StreamID:      stream,
			StreamVersion: current,
			OccurredOn:    evt.OccurredOn,
		}

		if event.Type == "" {
			return nil, fmt.Errorf("event type must be provided")
		}

		if evt.Meta != nil {
			m, err := json.Marshal(evt.Meta)
			if err != nil {
				return nil, err
			}

			ms := string(m)

			event.Meta = &ms
		}

		if event.ID == "" {
			uuid, err := uuid2.NewV7()
			if err != nil {
				return nil, err
			}

			event.ID = uuid.String()
		}

		if event.OccurredOn.IsZero() {
			event.OccurredOn = time.Now().UTC()
		}

		out[i] = event
	}

	return out, nil
}

// ReadStream will read events associated with provided stream, by default
// all of them, oldest first (see ReadOpt).
// If the stream was never written ErrStreamNotFound will be returned, if it
// has been tombstoned ErrStreamDeleted will be returned
func (es *EventStore) ReadStream(ctx context.Context, stream string, opts ...ReadOpt) ([]StoredEvent, error) {
	if len(stream) == 0 {
		return nil, fmt.Errorf("stream name must be provided")
	}

	cfg := ReadConfig{
		direction: forwards,
		from:      StartOfStream,
	}

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	if cfg.maxCount < 0 {
		return nil, fmt.Errorf("max count cannot be negative")
	}

	if stream == StreamsStream {
		return es.readStreams(ctx, cfg)
	}

	db := es.db.WithContext(ctx)

	entry, found, err := findStream(db, stream)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, ErrStreamNotFound
	}

	if entry.Tombstoned {
		return nil, ErrStreamDeleted
	}

	var events []gormEvent

	if err := cfg.apply(db.Where("stream_id = ?", stream), "stream_version").
		Find(&events).Error; err != nil {

		return nil, err
	}

	return decodeEvents(events)
}

// readStreams synthesizes $streams out of the stream directory
func (es *EventStore) readStreams(ctx context.Context, cfg ReadConfig) ([]StoredEvent, error) {
	var entries []gormStream

	if err := cfg.apply(es.db.WithContext(ctx), "sequence").
		Find(&entries).Error; err != nil {

		return nil, err
	}

	out := make([]StoredEvent, len(entries))

	for i, entry := range entries {
		out[i] = StoredEvent{
			ID:            uuid2.NewSHA1(uuid2.NameSpaceURL, []byte(StreamsStream+"/"+entry.Name)).String(),
			Data:          []byte("0@" + entry.Name),
			Sequence:      entry.Sequence,
			Type:          StreamCreatedType,
			StreamID:      StreamsStream,
			StreamVersion: int(entry.Sequence),
			OccurredOn:    entry.CreatedOn,
		}
	}

	return out, nil
}

// TombstoneStream irreversibly deletes a stream. Its events are removed and
// the name can never be appended to again. Tombstoning a stream that was
// never written reserves the name. Tombstoning an already tombstoned
// stream returns ErrStreamDeleted
func (es *EventStore) TombstoneStream(ctx context.Context, stream string) error {
	if err := validateStreamName(stream); err != nil {
		return err
	}

	return es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, found, err := findStream(tx, stream)
		if err != nil {
			return err
		}

		if found && entry.Tombstoned {
			return ErrStreamDeleted
		}

		if !found {
			return tx.Create(&gormStream{Name: stream, Tombstoned: true}).Error
		}

		if err := tx.
			Model(&gormStream{}).
			Where("name = ?", stream).
			Update("tombstoned", true).Error; err != nil {
			return err
		}

		return tx.Where("stream_id = ?", stream).Delete(&gormEvent{}).Error
	})
}

func validateStreamName(stream string) error {
	if len(stream) == 0 {
		return fmt.Errorf("stream name must be provided")
	}

	if strings.HasPrefix(stream, systemStreamPrefix) {
		return fmt.Errorf("system stream %q is read only", stream)
	}

	return nil
}

func findStream(db *gorm.DB, stream string) (gormStream, bool, error) {
	var entry gormStream

	tx := db.Where("name = ?", stream).Limit(1).Find(&entry)
	if tx.Error != nil {
		return entry, false, tx.Error
	}

	return entry, tx.RowsAffected > 0, nil
}

func decodeEvents(events []gormEvent) ([]StoredEvent, error) {
	out := make([]StoredEvent, len(events))

	for i, evt := range events {
		var meta map[string]string

		if evt.Meta != nil {
			err := json.Unmarshal([]byte(*evt.Meta), &meta)
			if err != nil {
				return nil, err
			}
		}

		out[i] = StoredEvent{
			Data:          evt.Data,
			Meta:          meta,
			ID:            evt.ID,
			Sequence:      evt.Sequence,
			Type:          evt.Type,
			StreamID:      evt.StreamID,
			StreamVersion: evt.StreamVersion,
			OccurredOn:    evt.OccurredOn,
		}
	}

	return out, nil
}
