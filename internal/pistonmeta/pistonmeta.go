// Package pistonmeta keeps a disk cache of the per-version metadata
// documents referenced by the version manifest.
package pistonmeta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/fetch"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"go.uber.org/zap"
)

const upstream = "piston-meta"

// Store serves documents from dir, downloading the ones it does not have
// yet. A document on disk never expires.
type Store struct {
	dir     string
	fetcher fetch.ArtifactFetcher
	log     *zap.Logger
}

func New(dir string, f fetch.ArtifactFetcher, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, fetcher: f, log: log.With(zap.String("source", upstream))}
}

// Document returns the metadata document of v. Numbers are kept as
// json.Number so they survive re-encoding unchanged.
func (s *Store) Document(ctx context.Context, v catalog.Version) (map[string]any, error) {
	path, err := s.path(v.ID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.download(ctx, v, path); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return decode(data)
}

// Cached reports whether the document of id is on disk.
func (s *Store) Cached(id string) bool {
	path, err := s.path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return "", &client.NotFoundError{Upstream: upstream, BaseVersion: id}
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *Store) download(ctx context.Context, v catalog.Version, path string) error {
	if v.URL == "" {
		return &client.NotFoundError{Upstream: upstream, BaseVersion: v.ID}
	}

	artifact, err := s.fetcher.Fetch(ctx, v.URL)
	if err != nil {
		return fmt.Errorf("downloading %s metadata: %w", v.ID, err)
	}
	data, err := io.ReadAll(artifact.Body)
	_ = artifact.Body.Close()
	if err != nil {
		return fmt.Errorf("reading %s metadata: %w", v.ID, err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("%s metadata is not valid JSON", v.ID)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, v.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s metadata: %w", v.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s metadata: %w", v.ID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("storing %s metadata: %w", v.ID, err)
	}

	s.log.Info("stored metadata document", zap.String("version", v.ID), zap.String("path", path))
	return nil
}

func decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding metadata document: %w", err)
	}
	return doc, nil
}
