// Package registry is the registration store shared with the producing
// service: a global enable flag, the install/data paths, and one record per
// consumer application.
package registry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	rootBucket = "broadcast"
	appsBucket = "apps"

	keyEnable      = "enable"
	keyDataPath    = "data_path"
	keyInstallPath = "install_path"
)

var (
	// ErrNotInstalled means the root record or its data path is missing.
	ErrNotInstalled = errors.New("registry: broadcast module not installed")
	// ErrAppNotFound means no record exists for the application.
	ErrAppNotFound = errors.New("registry: application not registered")
)

// App is one consumer application record.
type App struct {
	Title  string `json:"title"`
	Path   string `json:"path"`
	Index  int    `json:"index"`
	Enable bool   `json:"enable"`
}

// Store opens the database per operation, the way a registry key is opened
// and closed around each query, so operators can edit it between checks.
type Store struct {
	path    string
	timeout time.Duration
}

// Open returns a store for the database at path. The file is not touched
// until the first operation.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("registry: path is required")
	}
	return &Store{path: filepath.Clean(path), timeout: time.Second}, nil
}

func (s *Store) Path() string { return s.path }

// ---- root ----

// Install creates the root record. Used by installers and tests.
func (s *Store) Install(dataPath, installPath string, enable bool) error {
	return s.update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		if err != nil {
			return fmt.Errorf("registry: create root: %w", err)
		}
		if _, err := root.CreateBucketIfNotExists([]byte(appsBucket)); err != nil {
			return fmt.Errorf("registry: create apps: %w", err)
		}
		if err := root.Put([]byte(keyDataPath), []byte(dataPath)); err != nil {
			return err
		}
		if err := root.Put([]byte(keyInstallPath), []byte(installPath)); err != nil {
			return err
		}
		return root.Put([]byte(keyEnable), encodeBool(enable))
	})
}

// Installed reports whether the root record exists.
func (s *Store) Installed() (bool, error) {
	var ok bool
	err := s.view(func(tx *bbolt.Tx) error {
		ok = tx.Bucket([]byte(rootBucket)) != nil
		return nil
	})
	if errors.Is(err, ErrNotInstalled) {
		return false, nil
	}
	return ok, err
}

// DataPath returns the directory holding the authorization manifest.
func (s *Store) DataPath() (string, error) {
	var p string
	err := s.view(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return ErrNotInstalled
		}
		v := root.Get([]byte(keyDataPath))
		if len(v) == 0 {
			return ErrNotInstalled
		}
		p = string(v)
		return nil
	})
	return p, err
}

// FeatureEnabled reads the global enable flag. Any failure reads as false.
func (s *Store) FeatureEnabled() bool {
	var on bool
	_ = s.view(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return nil
		}
		on = decodeBool(root.Get([]byte(keyEnable)))
		return nil
	})
	return on
}

// SetFeatureEnabled toggles the global enable flag.
func (s *Store) SetFeatureEnabled(on bool) error {
	return s.update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return ErrNotInstalled
		}
		return root.Put([]byte(keyEnable), encodeBool(on))
	})
}

// ---- apps ----

// AppEnabled reads the per-application enable flag. Any failure reads as false.
func (s *Store) AppEnabled(name string) bool {
	app, err := s.App(name)
	return err == nil && app.Enable
}

// App fetches the record for name.
func (s *Store) App(name string) (App, error) {
	var app App
	err := s.view(func(tx *bbolt.Tx) error {
		apps, err := appsOf(tx)
		if err != nil {
			return err
		}
		payload := apps.Get(appKey(name))
		if payload == nil {
			return ErrAppNotFound
		}
		if err := json.Unmarshal(payload, &app); err != nil {
			return fmt.Errorf("registry: unmarshal app %q: %w", name, err)
		}
		return nil
	})
	return app, err
}

// Register creates or refreshes the record for title. Title, path and index
// are always written; Enable defaults to true only when the record is new so
// an operator's choice is never overwritten. It reports whether the record
// was created.
func (s *Store) Register(title, path string, index int) (bool, error) {
	if strings.TrimSpace(title) == "" {
		return false, fmt.Errorf("registry: title is required")
	}

	created := false
	err := s.update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return ErrNotInstalled
		}
		apps, err := root.CreateBucketIfNotExists([]byte(appsBucket))
		if err != nil {
			return fmt.Errorf("registry: create apps: %w", err)
		}

		app := App{Enable: true}
		if payload := apps.Get(appKey(title)); payload != nil {
			if err := json.Unmarshal(payload, &app); err != nil {
				return fmt.Errorf("registry: unmarshal app %q: %w", title, err)
			}
		} else {
			created = true
		}

		app.Title = title
		app.Path = path
		app.Index = index

		payload, err := json.Marshal(app)
		if err != nil {
			return fmt.Errorf("registry: marshal app %q: %w", title, err)
		}
		return apps.Put(appKey(title), payload)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// SetAppEnabled toggles an existing record's enable flag.
func (s *Store) SetAppEnabled(name string, on bool) error {
	return s.update(func(tx *bbolt.Tx) error {
		apps, err := appsOf(tx)
		if err != nil {
			return err
		}
		payload := apps.Get(appKey(name))
		if payload == nil {
			return ErrAppNotFound
		}
		var app App
		if err := json.Unmarshal(payload, &app); err != nil {
			return fmt.Errorf("registry: unmarshal app %q: %w", name, err)
		}
		app.Enable = on
		payload, err = json.Marshal(app)
		if err != nil {
			return err
		}
		return apps.Put(appKey(name), payload)
	})
}

// ---- db access ----

func (s *Store) view(fn func(tx *bbolt.Tx) error) error {
	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: s.timeout, ReadOnly: true})
	if err != nil {
		// a missing file is a missing install
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotInstalled
		}
		return fmt.Errorf("registry: open %s: %w", s.path, err)
	}
	defer db.Close()
	return db.View(fn)
}

func (s *Store) update(fn func(tx *bbolt.Tx) error) error {
	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: s.timeout})
	if err != nil {
		return fmt.Errorf("registry: open %s: %w", s.path, err)
	}
	defer db.Close()
	return db.Update(fn)
}

func appsOf(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	root := tx.Bucket([]byte(rootBucket))
	if root == nil {
		return nil, ErrNotInstalled
	}
	apps := root.Bucket([]byte(appsBucket))
	if apps == nil {
		return nil, ErrAppNotFound
	}
	return apps, nil
}

// appKey is case-insensitive like the registry keys it stands in for.
func appKey(name string) []byte {
	return []byte(strings.ToLower(name))
}

func encodeBool(on bool) []byte {
	b := make([]byte, 4)
	if on {
		binary.LittleEndian.PutUint32(b, 1)
	}
	return b
}

func decodeBool(b []byte) bool {
	return len(b) == 4 && binary.LittleEndian.Uint32(b) != 0
}
