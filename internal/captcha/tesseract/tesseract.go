// Package tesseract implements captcha.Engine with libtesseract through cgo.
package tesseract

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text with a fresh tesseract client per image, clients are not
// safe for concurrent use.
type Engine struct {
	// Languages defaults to tesseract's own default ("eng") when empty.
	Languages []string
	// Whitelist restricts recognized characters, empty means no restriction.
	Whitelist string
}

func (e Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(e.Languages) > 0 {
		if err := client.SetLanguage(e.Languages...); err != nil {
			return "", err
		}
	}
	if e.Whitelist != "" {
		if err := client.SetWhitelist(e.Whitelist); err != nil {
			return "", err
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	return client.Text()
}
