package binary

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/failure"
	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/logging"
)

const (
	// DefaultHeaderTimeout bounds the wait for response headers. There is no
	// deadline on the body: large archives take as long as they take.
	DefaultHeaderTimeout = 60 * time.Second
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "vdlaunch/1.0"
	// ChunkSize is the read size used when streaming a download.
	ChunkSize = 8 * 1024
	// PartSuffix is appended to the destination path while downloading.
	PartSuffix = ".part"
)

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	HeaderTimeout time.Duration
	UserAgent     string
	Logger        logging.Logger
}

// Fetcher downloads URLs to local files.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    logging.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.HeaderTimeout <= 0 {
		opts.HeaderTimeout = DefaultHeaderTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.HeaderTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Release assets redirect to object storage
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		logger:    logging.OrNoop(opts.Logger),
	}
}

// Fetch downloads url to destPath and returns the number of bytes written.
//
// The body is streamed into destPath+".part" in ChunkSize reads and renamed to
// destPath only after it was fully written and closed. On any error the part
// file is removed and destPath is left untouched. When the server sends a
// Content-Length, onProgress is called after every chunk with the whole
// percentage downloaded so far; otherwise it is never called. A panicking
// onProgress does not abort the download.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string, onProgress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, failure.New(failure.KindFetch, "create request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, failure.New(failure.KindFetch, "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, failure.Newf(failure.KindFetch, "", "unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, failure.New(failure.KindFetch, "create dest dir", err)
	}

	tmpPath := destPath + PartSuffix
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, failure.New(failure.KindFetch, "create temp file", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	written, err := copyWithProgress(tmpFile, resp.Body, resp.ContentLength, onProgress)
	if err != nil {
		return written, failure.New(failure.KindFetch, "copy response body", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return written, failure.Newf(failure.KindFetch, "", "short body: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := tmpFile.Close(); err != nil {
		return written, failure.New(failure.KindFetch, "close temp file", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return written, failure.New(failure.KindFetch, "rename temp file", err)
	}
	cleanupNeeded = false

	f.logger.Debug("downloaded", "url", url, "path", destPath, "bytes", written)
	return written, nil
}

// copyWithProgress copies src to dst in ChunkSize pieces, reporting progress
// against total when it is known.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if total > 0 && onProgress != nil {
				report(onProgress, int(written*100/total))
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// report invokes fn, discarding any panic it raises.
func report(fn ProgressFunc, percent int) {
	defer func() { _ = recover() }()
	fn(percent)
}
