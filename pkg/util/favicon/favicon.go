// Package favicon loads the server list icon.
package favicon

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

// Favicon is a 64x64 sized data uri image sent in response to a server list ping.
// Example: "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAEAAAAABCAYAAABubagXAAAAEElEQVR42mP8z8BQzzCCAQB+lAGA+H8KEAAAAABJRU5ErkJggg=="
type Favicon string

const size = 64

// FromImage converts an image.Image to Favicon, scaling it down to 64x64 if larger.
func FromImage(img image.Image) (Favicon, error) {
	if b := img.Bounds(); b.Dx() > size || b.Dy() > size {
		img = resize.Resize(size, size, img, resize.Bilinear)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return "", err
	}
	return FromBytes(buf.Bytes()), nil
}

// FromFile takes the filename of an image and converts it to Favicon.
func FromFile(filename string) (Favicon, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}
	return FromImage(img)
}

const (
	dataImagePrefix = "data:image/"
	dataFullPrefix  = dataImagePrefix + "png;base64,"
)

// Load parses s as data uri or loads it as image file.
// An empty s or a missing file returns an empty Favicon without error.
func Load(s string) (Favicon, error) {
	if s == "" {
		return "", nil
	}
	if strings.HasPrefix(s, dataImagePrefix) {
		return Favicon(s), nil
	}
	f, err := FromFile(s)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("favicon %q: %w", s, err)
	}
	return f, nil
}

// FromBytes takes the bytes of a png image and converts it to Favicon.
func FromBytes(b []byte) Favicon {
	return Favicon(dataFullPrefix + base64.StdEncoding.EncodeToString(b))
}

// Bytes returns the png bytes of the favicon.
func (f Favicon) Bytes() []byte {
	s := strings.TrimPrefix(string(f), dataFullPrefix)
	b, _ := base64.StdEncoding.DecodeString(s)
	return b
}
