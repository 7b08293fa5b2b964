// Package images downloads the screenshots attached to audit records,
// recompresses them and rewrites the records to point at the local copies.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// DownloadTimeout bounds a single image download.
const DownloadTimeout = 30 * time.Second

// MaxImageBytes is the default cap on an image response body.
const MaxImageBytes = 50 << 20

// Downloaded describes one image written into a client folder.
type Downloaded struct {
	OriginalURL    string `json:"originalUrl"`
	LocalPath      string `json:"localPath"`
	Filename       string `json:"filename"`
	FieldName      string `json:"fieldName"`
	Client         string `json:"client"`
	RecordID       string `json:"recordId"`
	Index          int    `json:"index"`
	OriginalBytes  int    `json:"originalBytes"`
	OptimizedBytes int    `json:"optimizedBytes"`
}

// Downloader fetches and optimizes record images into client folders.
type Downloader struct {
	outputDir string
	profiles  *Profiles
	prefixes  map[string]string
	fields    []string
	maxBytes  int64
	client    *http.Client
	logger    *slog.Logger
}

// Option customizes a Downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithFields replaces the list of image-bearing fields.
func WithFields(fields []string) Option {
	return func(d *Downloader) { d.fields = fields }
}

// WithMaxBytes sets the largest image body accepted. Larger images fail.
func WithMaxBytes(n int64) Option {
	return func(d *Downloader) { d.maxBytes = n }
}

// NewDownloader creates a downloader writing under outputDir.
func NewDownloader(outputDir string, profiles *Profiles, logger *slog.Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Downloader{
		outputDir: outputDir,
		profiles:  profiles,
		prefixes:  DefaultFieldPrefixes(),
		fields:    audit.ImageFields,
		maxBytes:  MaxImageBytes,
		client:    &http.Client{Timeout: DownloadTimeout},
		logger:    logger.With("component", "images"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ClientImagesDir returns the image directory of a client's bundle.
func (d *Downloader) ClientImagesDir(client string) string {
	return filepath.Join(d.outputDir, audit.Slug(client), "assets", "img")
}

// DownloadAll downloads every image referenced by the records, one at a time.
// Failed images are logged and skipped.
func (d *Downloader) DownloadAll(ctx context.Context, records []audit.Record) []Downloaded {
	var out []Downloaded
	var failed, originalTotal, optimizedTotal int
	counters := make(map[string]int)

	for _, rec := range records {
		for _, field := range d.fields {
			for _, att := range audit.ParseAttachments(rec.Fields[field]) {
				if err := ctx.Err(); err != nil {
					d.logger.Warn("image download interrupted", "error", err)
					return out
				}

				// Names that share a slug share a folder.
				key := audit.Slug(rec.Client) + "\x00" + field
				index := counters[key]
				counters[key]++

				img, err := d.download(ctx, rec, field, att, index)
				if err != nil {
					failed++
					d.logger.Error("image download failed", "url", att.URL, "field", field, "client", rec.Client, "error", err)
					continue
				}
				originalTotal += img.OriginalBytes
				optimizedTotal += img.OptimizedBytes
				out = append(out, img)
			}
		}
	}

	attrs := []any{"downloaded", len(out), "failed", failed}
	if originalTotal > 0 {
		attrs = append(attrs,
			"original", humanize.Bytes(uint64(originalTotal)),
			"optimized", humanize.Bytes(uint64(optimizedTotal)),
			"reduction", fmt.Sprintf("%d%%", 100-optimizedTotal*100/originalTotal),
		)
	}
	d.logger.Info("image downloads complete", attrs...)
	return out
}

func (d *Downloader) download(ctx context.Context, rec audit.Record, field string, att audit.Attachment, index int) (Downloaded, error) {
	data, err := d.fetch(ctx, att.URL)
	if err != nil {
		return Downloaded{}, err
	}

	profile := d.profiles.ForField(field)
	filename := d.Filename(rec.Client, field, originalName(att), index, profile)

	optimized, err := Optimize(data, profile)
	if err != nil {
		d.logger.Warn("image optimization failed, keeping original", "file", filename, "error", err)
		optimized = data
	}

	dir := d.ClientImagesDir(rec.Client)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Downloaded{}, fmt.Errorf("creating image directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), optimized, 0o644); err != nil {
		return Downloaded{}, fmt.Errorf("writing image: %w", err)
	}

	d.logger.Info("image saved",
		"file", filename,
		"profile", profile.Name,
		"original", humanize.Bytes(uint64(len(data))),
		"optimized", humanize.Bytes(uint64(len(optimized))),
	)

	return Downloaded{
		OriginalURL:    att.URL,
		LocalPath:      "assets/img/" + filename,
		Filename:       filename,
		FieldName:      field,
		Client:         rec.Client,
		RecordID:       rec.ID,
		Index:          index,
		OriginalBytes:  len(data),
		OptimizedBytes: len(optimized),
	}, nil
}

func (d *Downloader) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "auditreports/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("image exceeds %s", humanize.IBytes(uint64(d.maxBytes)))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	return data, nil
}

// Filename builds the local name for an image: client slug, a prefix derived
// from the field, a 1-based suffix for every image after the first, and the
// original extension.
func (d *Downloader) Filename(client, field, original string, index int, p Profile) string {
	prefix, ok := d.prefixes[field]
	if !ok {
		prefix = "screenshot"
	}

	name := audit.Slug(client) + "-" + prefix
	if index > 0 {
		name += fmt.Sprintf("-%d", index+1)
	}

	ext := strings.ToLower(path.Ext(original))
	if ext == "" || len(ext) > 5 {
		ext = p.Extension()
	}
	return name + ext
}

func originalName(att audit.Attachment) string {
	if att.Filename != "" && att.Filename != "Screenshot" {
		return sanitizeFilename(att.Filename)
	}
	u := att.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return sanitizeFilename(path.Base(u))
}

var filenameReplacer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

func sanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}
