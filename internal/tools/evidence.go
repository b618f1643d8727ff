package tools

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/config"
)

// Evidence writes screenshots to disk and hands back their paths. Image bytes
// never travel in tool results.
type Evidence struct {
	dir      string
	maxWidth int
	maxFiles int
	now      func() time.Time
	logger   *zap.Logger

	mu sync.Mutex
}

// NewEvidence creates a store rooted at cfg.Dir. The directory is created on
// first write.
func NewEvidence(cfg config.EvidenceConfig, logger *zap.Logger) *Evidence {
	return &Evidence{
		dir:      cfg.Dir,
		maxWidth: cfg.MaxWidth,
		maxFiles: cfg.MaxFiles,
		now:      time.Now,
		logger:   logger.Named("evidence"),
	}
}

// Capture screenshots the viewport, or the element matching selector, and
// saves it under label.
func (e *Evidence) Capture(ctx context.Context, page browser.Page, selector, label string) (string, error) {
	data, err := page.Screenshot(ctx, selector)
	if err != nil {
		return "", fmt.Errorf("evidence: capture failed: %w", err)
	}
	return e.Save(data, label)
}

// Save writes PNG data as <timestamp>-<label>-<id>.png and returns the path.
func (e *Evidence) Save(data []byte, label string) (string, error) {
	if e.dir == "" {
		return "", fmt.Errorf("evidence: no directory configured")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(e.dir, 0o700); err != nil {
		return "", fmt.Errorf("evidence: creating %s: %w", e.dir, err)
	}
	if e.maxWidth > 0 {
		scaled, err := downscale(data, e.maxWidth)
		if err != nil {
			e.logger.Debug("Keeping original capture; downscale failed.", zap.Error(err))
		} else {
			data = scaled
		}
	}

	name := fmt.Sprintf("%s-%s-%s.png",
		e.now().UTC().Format("20060102T150405Z"),
		sanitizeLabel(label),
		uuid.NewString()[:8])
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("evidence: writing %s: %w", path, err)
	}
	e.logger.Info("Evidence captured.", zap.String("path", path))
	e.prune()
	return path, nil
}

// List returns saved captures, oldest first.
func (e *Evidence) List() ([]string, error) {
	if e.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(e.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("evidence: listing %s: %w", e.dir, err)
	}
	var out []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".png") {
			continue
		}
		out = append(out, filepath.Join(e.dir, ent.Name()))
	}
	// Names start with a sortable UTC timestamp.
	sort.Strings(out)
	return out, nil
}

// prune removes the oldest captures beyond maxFiles. Caller holds mu.
func (e *Evidence) prune() {
	if e.maxFiles <= 0 {
		return
	}
	files, err := e.List()
	if err != nil || len(files) <= e.maxFiles {
		return
	}
	for _, f := range files[:len(files)-e.maxFiles] {
		if err := os.Remove(f); err != nil {
			e.logger.Warn("Failed to prune old evidence.", zap.String("path", f), zap.Error(err))
		}
	}
}

// downscale shrinks a PNG to maxWidth, keeping the aspect ratio. Narrower
// images are returned unchanged.
func downscale(data []byte, maxWidth int) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return data, nil
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanitizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '/' || r == '.':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return "capture"
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}
