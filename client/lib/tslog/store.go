// Package tslog is the persistent, bucketed time-series log behind
// oversubscription prediction: every isolate request's requested CPU
// count is appended to the store, bucketed by a configurable sample
// window, so a later read can reconstruct the recent request
// distribution without holding it all in memory.
package tslog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-hclog"
)

const (
	startKey  = "startDtg"
	latestKey = "latest"
)

// Sample is one recorded (timestamp, cpu-count) observation.
type Sample struct {
	TimestampSecs int64 `json:"t"`
	CPUCount      int   `json:"c"`
}

// Store is a badger-backed key-value log with three key classes:
// startDtg (first bucket ever written), latest (most recently written
// bucket), and one key per bucket timestamp holding its accumulated
// samples as a JSON array.
type Store struct {
	db            *badger.DB
	windowMinutes float64
	logger        hclog.Logger
}

// Open creates (if missing) and opens the badger database rooted at
// path. windowMinutes is the bucket width used by RecordSample.
func Open(path string, windowMinutes float64, logger hclog.Logger) (*Store, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if windowMinutes <= 0 {
		return nil, fmt.Errorf("tslog: sample window must be positive, got %v", windowMinutes)
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open time series store at %s: %w", path, err)
	}

	return &Store{db: db, windowMinutes: windowMinutes, logger: logger.Named("tslog")}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bucketKey(t time.Time) string {
	minutes := float64(t.Unix()) / 60.0
	bucketMinutes := float64(int64(minutes/s.windowMinutes)) * s.windowMinutes
	bucketSecs := int64(bucketMinutes * 60.0)
	return strconv.FormatInt(bucketSecs, 10)
}

// RecordSample appends cpuCount, timestamped now, to the current
// bucket and advances the latest pointer to that bucket, both in a
// single transaction.
func (s *Store) RecordSample(cpuCount int) error {
	return s.recordSampleAt(time.Now(), cpuCount)
}

func (s *Store) recordSampleAt(now time.Time, cpuCount int) error {
	bucket := s.bucketKey(now)
	sample := Sample{TimestampSecs: now.Unix(), CPUCount: cpuCount}

	err := s.db.Update(func(txn *badger.Txn) error {
		var samples []Sample

		item, err := txn.Get([]byte(bucket))
		switch {
		case err == nil:
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &samples)
			}); verr != nil {
				return fmt.Errorf("decode bucket %s: %w", bucket, verr)
			}
		case err == badger.ErrKeyNotFound:
		default:
			return fmt.Errorf("read bucket %s: %w", bucket, err)
		}

		samples = append(samples, sample)
		encoded, err := json.Marshal(samples)
		if err != nil {
			return fmt.Errorf("encode bucket %s: %w", bucket, err)
		}
		if err := txn.Set([]byte(bucket), encoded); err != nil {
			return err
		}
		if err := txn.Set([]byte(latestKey), []byte(bucket)); err != nil {
			return err
		}

		if _, err := txn.Get([]byte(startKey)); err == badger.ErrKeyNotFound {
			if err := txn.Set([]byte(startKey), []byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	s.logger.Debug("recorded sample", "bucket", bucket, "cpu", cpuCount)
	return nil
}

// Latest returns the samples held in the bucket the latest pointer
// names, or nil if no sample has ever been recorded.
func (s *Store) Latest() ([]Sample, error) {
	var samples []Sample
	err := s.db.View(func(txn *badger.Txn) error {
		latestItem, err := txn.Get([]byte(latestKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var bucket []byte
		if err := latestItem.Value(func(val []byte) error {
			bucket = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		item, err := txn.Get(bucket)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &samples)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read latest bucket: %w", err)
	}
	return samples, nil
}
