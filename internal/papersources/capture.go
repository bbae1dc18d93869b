package papersources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMinParseRate is the parse success rate below which a page is captured.
const DefaultMinParseRate = 0.9

// PageCapture writes raw upstream pages with a low parse rate to disk so the
// failing entries can be inspected later. A nil *PageCapture only logs.
type PageCapture struct {
	dir          string
	minParseRate float64
	logger       zerolog.Logger
	now          func() time.Time
}

// NewPageCapture creates a capture writing into dir. An empty dir disables
// writing but keeps the warning log.
func NewPageCapture(dir string, minParseRate float64, logger zerolog.Logger) *PageCapture {
	if minParseRate <= 0 || minParseRate > 1 {
		minParseRate = DefaultMinParseRate
	}
	return &PageCapture{
		dir:          dir,
		minParseRate: minParseRate,
		logger:       logger.With().Str("component", "page_capture").Logger(),
		now:          time.Now,
	}
}

// Check records a page whose parse rate fell below the threshold. It returns
// the written file path, or "" when nothing was written. Write failures are
// logged and never returned: the page still proceeds with its parsed subset.
func (c *PageCapture) Check(job string, page, parsed, total int, raw []byte) string {
	if c == nil || total == 0 {
		return ""
	}
	rate := float64(parsed) / float64(total)
	if rate >= c.minParseRate {
		return ""
	}

	c.logger.Warn().
		Str("job_name", job).
		Int("page", page).
		Int("parsed", parsed).
		Int("total", total).
		Float64("parse_rate", rate).
		Msg("low parse rate on page")

	if c.dir == "" {
		return ""
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Error().Err(err).Str("dir", c.dir).Msg("failed to create capture directory")
		return ""
	}

	name := fmt.Sprintf("%s_p%d_%s.raw", sanitizeFileName(job), page, c.now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("failed to write page capture")
		return ""
	}
	return path
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
