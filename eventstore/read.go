package eventstore

import (
	"errors"

	"gorm.io/gorm"
)

// direction represents the order in which stream events are read
type direction int

const (
	forwards direction = iota
	backwards
)

const (
	// StartOfStream is the default position of a forwards read
	StartOfStream int = 0

	// EndOfStream is the default position of a backwards read
	EndOfStream int = -1
)

// ReadConfig (configure using ReadOpt)
type ReadConfig struct {
	direction direction
	from      int
	maxCount  int
}

// ReadOpt represents read stream option
type ReadOpt func(ReadConfig) ReadConfig

// Backwards is a read option that reverses the read direction. Unless
// FromVersion is also provided the read starts at the end of the stream
func Backwards() ReadOpt {
	return func(cfg ReadConfig) ReadConfig {
		if cfg.direction != backwards && cfg.from == StartOfStream {
			cfg.from = EndOfStream
		}

		cfg.direction = backwards

		return cfg
	}
}

// FromVersion is a read option that indicates the stream version
// from which to start reading events (inclusive)
func FromVersion(version int) ReadOpt {
	return func(cfg ReadConfig) ReadConfig {
		cfg.from = version

		return cfg
	}
}

// WithMaxCount is a read option that limits the number of events read.
// Zero means no limit
func WithMaxCount(n int) ReadOpt {
	return func(cfg ReadConfig) ReadConfig {
		cfg.maxCount = n

		return cfg
	}
}

func (cfg ReadConfig) apply(db *gorm.DB, column string) *gorm.DB {
	switch cfg.direction {
	case backwards:
		if cfg.from != EndOfStream {
			db = db.Where(column+" <= ?", cfg.from)
		}

		db = db.Order(column + " desc")

	default:
		if cfg.from != StartOfStream {
			db = db.Where(column+" >= ?", cfg.from)
		}

		db = db.Order(column + " asc")
	}

	if cfg.maxCount > 0 {
		db = db.Limit(cfg.maxCount)
	}

	return db
}

// ReadResult classifies the outcome of a stream read
type ReadResult int

const (
	// ReadOK means the stream exists and could be read
	ReadOK ReadResult = iota

	// ReadNotFound means the stream was never written or has been tombstoned
	ReadNotFound

	// ReadFailed means the read failed for any other reason
	ReadFailed
)

// String implements fmt.Stringer
func (r ReadResult) String() string {
	switch r {
	case ReadOK:
		return "ok"
	case ReadNotFound:
		return "not found"
	default:
		return "failed"
	}
}

// ResultOf classifies an error returned by ReadStream
func ResultOf(err error) ReadResult {
	switch {
	case err == nil:
		return ReadOK
	case errors.Is(err, ErrStreamNotFound):
		return ReadNotFound
	default:
		return ReadFailed
	}
}
