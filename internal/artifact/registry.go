package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrArtifactNotFound is returned when a registry has no artifact of that name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Registry resolves a contract name to a deployable artifact.
type Registry interface {
	Resolve(ctx context.Context, name string) (*Artifact, error)
}

// NetworkRecorder is implemented by registries that persist where an artifact
// was deployed.
type NetworkRecorder interface {
	RecordNetwork(ctx context.Context, name string, chainID int64, address common.Address, txHash common.Hash) error
}

// DirectoryRegistry reads artifacts from a Truffle build directory
// (build/contracts/<Name>.json).
type DirectoryRegistry struct {
	dir string
	mu  sync.Mutex
}

// NewDirectoryRegistry creates a registry rooted at dir.
func NewDirectoryRegistry(dir string) *DirectoryRegistry {
	return &DirectoryRegistry{dir: dir}
}

// Dir returns the registry root.
func (r *DirectoryRegistry) Dir() string {
	return r.dir
}

// Resolve loads <dir>/<name>.json.
func (r *DirectoryRegistry) Resolve(ctx context.Context, name string) (*Artifact, error) {
	path, err := r.path(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, name, r.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", name, err)
	}
	if a.ContractName == "" {
		a.ContractName = name
	}
	return &a, nil
}

// RecordNetwork writes the deployed address into the artifact's networks map,
// keyed by chain id. Fields the registry does not model are preserved.
func (r *DirectoryRegistry) RecordNetwork(ctx context.Context, name string, chainID int64, address common.Address, txHash common.Hash) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", name, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse artifact %s: %w", name, err)
	}

	networks := map[string]json.RawMessage{}
	if raw, ok := doc["networks"]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &networks); err != nil {
			return fmt.Errorf("parse networks of %s: %w", name, err)
		}
	}

	entry, err := json.Marshal(map[string]any{
		"events":          map[string]any{},
		"links":           map[string]any{},
		"address":         address.Hex(),
		"transactionHash": txHash.Hex(),
	})
	if err != nil {
		return fmt.Errorf("encode network entry: %w", err)
	}
	networks[strconv.FormatInt(chainID, 10)] = entry

	if doc["networks"], err = json.Marshal(networks); err != nil {
		return fmt.Errorf("encode networks: %w", err)
	}
	if doc["updatedAt"], err = json.Marshal(time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("encode updatedAt: %w", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", name, err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (r *DirectoryRegistry) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(r.dir, name+".json"), nil
}

var (
	_ Registry        = (*DirectoryRegistry)(nil)
	_ NetworkRecorder = (*DirectoryRegistry)(nil)
)
