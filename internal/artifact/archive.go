package artifact

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// maxArchiveSize bounds the artifact archive download.
const maxArchiveSize = 256 << 20

// ArchiveRegistry serves artifacts from a .zip or .tar.zst archive fetched
// over HTTP.
// The archive is verified against a sha256 checksum before anything in it is
// parsed, then kept in memory.
type ArchiveRegistry struct {
	url        string
	checksum   string
	httpClient *http.Client

	mu        sync.Mutex
	artifacts map[string]*Artifact
}

// NewArchiveRegistry creates a registry for the archive at url.
// checksum has the form "sha256:<hex>" and is mandatory.
func NewArchiveRegistry(url, checksum string, httpClient *http.Client) (*ArchiveRegistry, error) {
	if url == "" {
		return nil, fmt.Errorf("artifact archive url is required")
	}
	if !strings.HasPrefix(checksum, "sha256:") {
		return nil, fmt.Errorf("artifact archive checksum must be sha256:<hex>, refusing unverified artifacts")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ArchiveRegistry{
		url:        url,
		checksum:   strings.ToLower(checksum),
		httpClient: httpClient,
	}, nil
}

// Resolve returns the artifact named name, downloading the archive on first use.
func (r *ArchiveRegistry) Resolve(ctx context.Context, name string) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.artifacts == nil {
		loaded, err := r.load(ctx)
		if err != nil {
			return nil, err
		}
		r.artifacts = loaded
	}

	a, ok := r.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, name, r.url)
	}
	clone := *a
	return &clone, nil
}

func (r *ArchiveRegistry) load(ctx context.Context) (map[string]*Artifact, error) {
	data, err := r.download(ctx)
	if err != nil {
		return nil, fmt.Errorf("download artifacts: %w", err)
	}

	actual := fmt.Sprintf("sha256:%x", sha256.Sum256(data))
	if actual != r.checksum {
		return nil, fmt.Errorf("artifact integrity check failed: expected %s, got %s", r.checksum, actual)
	}

	loaded := make(map[string]*Artifact)
	add := func(file string, content []byte) error {
		if path.Ext(file) != ".json" {
			return nil
		}
		var a Artifact
		if err := json.Unmarshal(content, &a); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), ".json")
		if a.ContractName == "" {
			a.ContractName = name
		}
		loaded[name] = &a
		return nil
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		err = walkZip(data, add)
	case bytes.HasPrefix(data, zstdMagic):
		err = walkTarZstd(data, add)
	default:
		err = fmt.Errorf("unsupported archive format, want .zip or .tar.zst")
	}
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

var (
	zipMagic  = []byte("PK\x03\x04")
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func walkZip(data []byte, fn func(name string, content []byte) error) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxArchiveSize))
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
		if err := fn(f.Name, content); err != nil {
			return err
		}
	}
	return nil
}

// walkTarZstd reads a zstd-compressed tar, the layout forge artifact
// bundles ship in.
func walkTarZstd(data []byte, fn func(name string, content []byte) error) error {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(io.LimitReader(tr, maxArchiveSize))
		if err != nil {
			return fmt.Errorf("read %s: %w", header.Name, err)
		}
		if err := fn(header.Name, content); err != nil {
			return err
		}
	}
}

func (r *ArchiveRegistry) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d from %s", resp.StatusCode, r.url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxArchiveSize {
		return nil, fmt.Errorf("archive exceeds %d bytes", maxArchiveSize)
	}
	return data, nil
}

var _ Registry = (*ArchiveRegistry)(nil)
