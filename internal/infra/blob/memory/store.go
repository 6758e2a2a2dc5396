// Package memory implements an in-memory blob Store for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"digitalroom/internal/blob/core"
)

const defaultBaseURL = "memory://blob"

type entry struct {
	obj  core.Object
	data []byte
}

// Store implements core.Store backed by process memory. Intended for tests.
type Store struct {
	mu      sync.RWMutex
	objs    map[string]entry
	baseURL string
}

// New returns an in-memory blob store. Public URLs are built from baseURL
// (default memory://blob).
func New(baseURL string) *Store {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Store{objs: make(map[string]entry), baseURL: baseURL}
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

func key(bucket, p string) string { return bucket + "/" + p }

// Upload stores a new object; errors if the path is taken.
func (s *Store) Upload(_ context.Context, bucket, p string, r io.Reader, opts core.UploadOptions) (core.Object, error) {
	clean, err := core.CleanPath(bucket, p)
	if err != nil {
		return core.Object{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(bucket, clean)
	if _, exists := s.objs[k]; exists {
		return core.Object{}, fmt.Errorf("%s: %w", k, core.ErrExists)
	}
	obj := core.Object{
		Bucket:       bucket,
		Path:         clean,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
		URL:          s.PublicURL(bucket, clean),
	}
	s.objs[k] = entry{obj: obj, data: b}
	return obj, nil
}

// PublicURL derives the object URL without checking existence.
func (s *Store) PublicURL(bucket, p string) string {
	return core.JoinURL(s.baseURL, bucket, p)
}

// Open returns the stored bytes of an object. Test helper.
func (s *Store) Open(bucket, p string) (io.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objs[key(bucket, p)]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(append([]byte(nil), e.data...)), true
}

// Remove deletes the object returning true if it existed.
func (s *Store) Remove(_ context.Context, bucket, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(bucket, p)
	_, ok := s.objs[k]
	delete(s.objs, k)
	return ok, nil
}

// List returns all objects in bucket matching prefix.
func (s *Store) List(_ context.Context, bucket, prefix string) ([]core.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Object, 0)
	for _, e := range s.objs {
		if e.obj.Bucket != bucket || !strings.HasPrefix(e.obj.Path, prefix) {
			continue
		}
		obj := e.obj
		obj.Metadata = cloneMetadata(obj.Metadata)
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
