package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tamzrod/broadcast-bridge/internal/registry"
)

// Store is the part of the registration store the verifier needs.
type Store interface {
	DataPath() (string, error)
	Register(title, path string, index int) (bool, error)
}

// Verifier resolves application GUIDs.
type Verifier struct {
	store      Store
	executable string
	log        *slog.Logger
}

// NewVerifier builds a verifier. executable is recorded as the app's path;
// empty means the current process executable.
func NewVerifier(store Store, executable string, log *slog.Logger) *Verifier {
	if executable == "" {
		if exe, err := os.Executable(); err == nil {
			executable = exe
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{store: store, executable: executable, log: log}
}

// Verify resolves id. On success the identity is registered; on any
// failure the store is left untouched.
func (v *Verifier) Verify(ctx context.Context, id uuid.UUID) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	dataPath, err := v.store.DataPath()
	if err != nil {
		if errors.Is(err, registry.ErrNotInstalled) {
			return Identity{}, ErrNotInstalled
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	m, err := ReadManifest(filepath.Join(dataPath, ManifestFile))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	rec, ok := m.Lookup(id, func(r Record) bool {
		return r.Status == statusAuthorized || r.Status == statusTest
	})
	if !ok {
		return Identity{}, ErrUnknownIdentity
	}

	ident := Identity{
		GUID:   id,
		Index:  rec.Index,
		Title:  rec.Title,
		Status: Verified,
	}

	if rec.Status == statusTest {
		present, err := markerPresent(dataPath)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		if !present {
			ident.Status = TestPendingSetup
			return ident, ErrSetupRequired
		}
		ident.Status = VerifiedTest
	}

	created, err := v.store.Register(ident.Title, v.executable, ident.Index)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: register: %v", ErrAccessDenied, err)
	}

	v.log.Info("application id verified",
		"guid", RegistryForm(id),
		"index", ident.Index,
		"title", ident.Title,
		"status", ident.Status.String(),
		"registered", created,
	)
	return ident, nil
}

// markerPresent checks for the developer marker. It is only consulted at
// verification time; removing it later does not revoke a running session.
func markerPresent(dataPath string) (bool, error) {
	_, err := os.Stat(filepath.Join(dataPath, DevMarker))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
