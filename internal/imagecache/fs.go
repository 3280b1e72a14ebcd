// Helmsman - Media Server Companion Cache Layer
// Copyright 2026 Helmsman Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/helmsman-media/helmsman

package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// FileInfo describes a cached file on disk.
type FileInfo struct {
	Exists  bool
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// FileSystem is the filesystem surface the resolver consumes. Abstracted so
// tests can substitute an in-memory implementation and count downloads.
type FileSystem interface {
	// Stat reports on path. A missing file is (FileInfo{Exists: false}, nil),
	// not an error.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Remove deletes path. Removing a missing file is a no-op.
	Remove(ctx context.Context, path string) error

	// DownloadToFile fetches remoteURI into destPath, replacing any
	// existing file only on success.
	DownloadToFile(ctx context.Context, remoteURI, destPath string) error
}

// OSFileSystem implements FileSystem against the real filesystem and an
// HTTP client. Downloads are rate limited and written through a temp file
// so a failed fetch never clobbers a previously cached image.
type OSFileSystem struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewOSFileSystem creates an OSFileSystem. timeout bounds each download;
// downloadsPerSecond caps the request rate (0 disables the limit).
func NewOSFileSystem(timeout time.Duration, downloadsPerSecond float64) *OSFileSystem {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if downloadsPerSecond > 0 {
		limit = rate.Limit(downloadsPerSecond)
	}
	return &OSFileSystem{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Stat reports on path.
func (f *OSFileSystem) Stat(_ context.Context, path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FileInfo{}, nil
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FileInfo{
		Exists:  true,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Remove deletes path, tolerating its absence.
func (f *OSFileSystem) Remove(_ context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// DownloadToFile fetches remoteURI into destPath via a temp file + rename.
func (f *OSFileSystem) DownloadToFile(ctx context.Context, remoteURI, destPath string) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURI, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", remoteURI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", remoteURI, resp.StatusCode)
	}

	tmp := destPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", destPath, err)
	}
	return nil
}
