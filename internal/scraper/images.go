package scraper

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"
)

// minImageDimension is the smallest width/height a product image may have and
// still be worth publishing.
const minImageDimension = 300

// ImageQualifier filters candidate image URLs by decoded pixel size. It is a
// filter, never an error source: any fetch or decode failure simply
// disqualifies the candidate.
type ImageQualifier struct {
	client    *http.Client
	minWidth  int
	minHeight int
}

func NewImageQualifier(timeout time.Duration) *ImageQualifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ImageQualifier{
		client:    &http.Client{Timeout: timeout},
		minWidth:  minImageDimension,
		minHeight: minImageDimension,
	}
}

// Qualifies reports whether url resolves to a bitmap at least 300x300 pixels.
func (q *ImageQualifier) Qualifies(url string) bool {
	resp, err := q.client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	// DecodeConfig reads just the header, no need to pull the full bitmap.
	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return false
	}
	return cfg.Width >= q.minWidth && cfg.Height >= q.minHeight
}
