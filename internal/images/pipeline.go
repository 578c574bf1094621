package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/config"
	"github.com/gardenshed/seedscout/internal/metrics"
)

// maxBodyBytes caps a single image download.
const maxBodyBytes = 20 << 20

// Downloader fetches candidate images, normalizes them, and writes
// them under a single base directory. Saved files are always JPEG.
type Downloader struct {
	client    *http.Client
	baseDir   string
	maxCount  int
	maxPixels int
	quality   int
	userAgent string
	logger    *zap.Logger
}

// NewDownloader validates and creates the base directory, then returns
// a downloader bound to it.
func NewDownloader(cfg config.ImagesConfig, userAgent string, logger *zap.Logger) (*Downloader, error) {
	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve image dir: %w", err)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Downloader{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseDir:   baseDir,
		maxCount:  cfg.MaxDownload,
		maxPixels: cfg.MaxPixels,
		quality:   cfg.JPEGQuality,
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// BaseDir returns the resolved storage directory.
func (d *Downloader) BaseDir() string {
	return d.baseDir
}

// Download fetches up to the configured count of urls sequentially and
// returns the paths of the files written. A failed candidate is logged
// and skipped; the next URL is tried in its place.
func (d *Downloader) Download(ctx context.Context, ownerID string, urls []string) []string {
	var saved []string
	for _, rawURL := range urls {
		if len(saved) >= d.maxCount {
			break
		}
		path, err := d.DownloadOne(ctx, ownerID, rawURL)
		if err != nil {
			d.logger.Warn("image download failed",
				zap.String("url", rawURL), zap.Error(err))
			continue
		}
		saved = append(saved, path)
	}
	return saved
}

// DownloadOne fetches one image, resizes it to fit the pixel bound
// without upscaling, and writes it as a JPEG. Returns the path of the
// file written.
func (d *Downloader) DownloadOne(ctx context.Context, ownerID, rawURL string) (path string, err error) {
	defer func() { metrics.ObserveImage(err) }()

	dest, err := d.destPath(ownerID)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image fetch: status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > d.maxPixels || bounds.Dy() > d.maxPixels {
		img = imaging.Fit(img, d.maxPixels, d.maxPixels, imaging.Lanczos)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	if err := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(d.quality)); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("encode image: %w", err)
	}
	return dest, nil
}

// destPath builds the target filename and rejects owner IDs that would
// escape the base directory.
func (d *Downloader) destPath(ownerID string) (string, error) {
	if ownerID == "" || ownerID != filepath.Base(ownerID) || strings.Contains(ownerID, "..") {
		return "", fmt.Errorf("invalid owner id %q", ownerID)
	}
	name := fmt.Sprintf("%s_web_%d.jpg", ownerID, time.Now().UnixNano())
	dest := filepath.Join(d.baseDir, name)
	if filepath.Dir(dest) != d.baseDir {
		return "", fmt.Errorf("invalid owner id %q", ownerID)
	}
	return dest, nil
}
