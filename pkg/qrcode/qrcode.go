// Package qrcode renders invoice links as inline PNG data URLs.
package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

const (
	defaultSize = 256
	dataURLPNG  = "data:image/png;base64,"
)

// DataURL encodes content into a PNG QR code and returns it as a data URL.
func DataURL(content string) (string, error) {
	return DataURLSize(content, defaultSize)
}

// DataURLSize is DataURL with an explicit pixel size.
func DataURLSize(content string, size int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("qr content required")
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := goqrcode.Encode(content, goqrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return dataURLPNG + base64.StdEncoding.EncodeToString(png), nil
}
