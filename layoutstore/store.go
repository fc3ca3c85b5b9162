package layoutstore

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/crytic/slotguard/logging"
	"github.com/crytic/slotguard/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// DatabaseFileName is the name of the database file within the store directory.
const DatabaseFileName = "layouts.db"

var (
	// latestBucket maps a contract name to its most recent snapshot.
	latestBucket = []byte("latest")
	// historyBucket holds one nested bucket per contract name, mapping a sequence number to a snapshot.
	historyBucket = []byte("history")
)

// ErrSnapshotNotFound is returned when no snapshot exists for a contract.
var ErrSnapshotNotFound = errors.New("no layout snapshot found")

// Store persists layout snapshots in a bbolt database. It is safe for concurrent use.
type Store struct {
	// db is the underlying database.
	db *bbolt.DB

	// path is the path of the database file.
	path string

	// logger describes the Store's log object that can be used to log important events
	logger *logging.Logger
}

// Open opens, creating it if needed, the snapshot database inside the provided directory.
func Open(directory string) (*Store, error) {
	if err := utils.MakeDirectory(directory); err != nil {
		return nil, err
	}

	path := filepath.Join(directory, DatabaseFileName)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open layout store '%s'", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(latestBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(historyBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.WithStack(err)
	}

	return &Store{
		db:     db,
		path:   path,
		logger: logging.GlobalLogger.NewSubLogger("module", logging.STORE_SERVICE),
	}, nil
}

// Path returns the path of the database file.
func (s *Store) Path() string {
	return s.path
}

// Put records a snapshot as the latest one of its contract and appends it to the contract's history. A snapshot
// without an id or creation time is given one.
func (s *Store) Put(snapshot *Snapshot) error {
	if snapshot.ContractName == "" {
		return errors.New("cannot store a snapshot without a contract name")
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.WithStack(err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(latestBucket).Put([]byte(snapshot.ContractName), data); err != nil {
			return err
		}

		history, err := tx.Bucket(historyBucket).CreateBucketIfNotExists([]byte(snapshot.ContractName))
		if err != nil {
			return err
		}
		sequence, err := history.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, sequence)
		return history.Put(key, data)
	})
	if err != nil {
		return errors.Wrapf(err, "could not store the layout snapshot of '%s'", snapshot.ContractName)
	}

	s.logger.Debug("Stored layout snapshot ", snapshot.ID, " of ", snapshot.ContractName, logging.StructuredLogInfo{"fingerprint": snapshot.Fingerprint})
	return nil
}

// Get returns the latest snapshot of a contract, or ErrSnapshotNotFound.
func (s *Store) Get(contractName string) (*Snapshot, error) {
	var snapshot *Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(latestBucket).Get([]byte(contractName))
		if data == nil {
			return nil
		}
		snapshot = &Snapshot{}
		return json.Unmarshal(data, snapshot)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not read the layout snapshot of '%s'", contractName)
	}
	if snapshot == nil {
		return nil, errors.Wrapf(ErrSnapshotNotFound, "contract '%s'", contractName)
	}
	return snapshot, nil
}

// List returns the latest snapshot of every contract, sorted by contract name.
func (s *Store) List() ([]*Snapshot, error) {
	snapshots := make([]*Snapshot, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(latestBucket).ForEach(func(_, data []byte) error {
			snapshot := &Snapshot{}
			if err := json.Unmarshal(data, snapshot); err != nil {
				return err
			}
			snapshots = append(snapshots, snapshot)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not list layout snapshots")
	}
	return snapshots, nil
}

// History returns every snapshot stored for a contract, oldest first.
func (s *Store) History(contractName string) ([]*Snapshot, error) {
	snapshots := make([]*Snapshot, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		history := tx.Bucket(historyBucket).Bucket([]byte(contractName))
		if history == nil {
			return nil
		}
		return history.ForEach(func(_, data []byte) error {
			snapshot := &Snapshot{}
			if err := json.Unmarshal(data, snapshot); err != nil {
				return err
			}
			snapshots = append(snapshots, snapshot)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not read the layout history of '%s'", contractName)
	}
	return snapshots, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
