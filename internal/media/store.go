package media

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBytes    = 20 * 1024 * 1024
	DefaultConcurrency = 4
	defaultExtension   = ".jpg"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Store keeps downloaded media files named by the hash of their source URL.
type Store struct {
	dir         string
	client      *http.Client
	maxBytes    int64
	concurrency int
	logger      zerolog.Logger
}

type Options struct {
	Dir         string
	Timeout     time.Duration
	MaxBytes    int64
	Concurrency int
	HTTPClient  *http.Client
}

func NewStore(opts Options, logger zerolog.Logger) (*Store, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, fmt.Errorf("media dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Store{
		dir:         dir,
		client:      client,
		maxBytes:    maxBytes,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// NameFor returns the file name a media URL is stored under.
func NameFor(rawURL string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(rawURL)))
	return hex.EncodeToString(sum[:])[:16] + extensionOf(rawURL)
}

func extensionOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return defaultExtension
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if _, ok := allowedExtensions[ext]; ok {
		return ext
	}
	return defaultExtension
}

// Path returns the absolute location of a stored file name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Exists reports whether name is present in the store.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Fetch downloads rawURL unless a file for it is already stored and returns its name.
func (s *Store) Fetch(ctx context.Context, rawURL string) (string, error) {
	name := NameFor(rawURL)
	if s.Exists(name) {
		return name, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build media request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download media %s: status %d", rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp media file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, copyErr := io.Copy(tmp, io.LimitReader(resp.Body, s.maxBytes+1))
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	if written == 0 {
		return "", fmt.Errorf("download media %s: empty body", rawURL)
	}
	if written > s.maxBytes {
		return "", fmt.Errorf("download media %s: larger than %d bytes", rawURL, s.maxBytes)
	}

	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return "", fmt.Errorf("store media file: %w", err)
	}
	return name, nil
}

// Resolve fetches urls concurrently and returns stored names in input order,
// skipping downloads that failed. When limit > 0 it keeps fetching later urls
// until limit names are stored or the urls run out.
func (s *Store) Resolve(ctx context.Context, urls []string, limit int) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for next := 0; next < len(urls); {
		want := len(urls) - next
		if limit > 0 {
			want = min(want, limit-len(out))
		}
		if want <= 0 || ctx.Err() != nil {
			break
		}
		batch := urls[next : next+want]
		next += want

		for _, name := range s.fetchAll(ctx, batch) {
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// fetchAll downloads urls concurrently. Failed downloads leave an empty name.
func (s *Store) fetchAll(ctx context.Context, urls []string) []string {
	names := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rawURL := range urls {
		g.Go(func() error {
			name, err := s.Fetch(gctx, rawURL)
			if err != nil {
				s.logger.Warn().Err(err).Str("media_url", rawURL).Msg("media download failed, dropping reference")
				return nil
			}
			names[i] = name
			return nil
		})
	}
	_ = g.Wait()
	return names
}
