package qrcode

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURLProducesDecodablePNG(t *testing.T) {
	url, err := DataURLSize("https://shop.example.com/invoices/INV-20260101-0001", 128)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, dataURLPNG))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, dataURLPNG))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestDataURLRejectsEmptyContent(t *testing.T) {
	_, err := DataURL("   ")
	require.Error(t, err)
}
