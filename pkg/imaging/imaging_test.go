package imaging_test

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"go-freelance-backend/pkg/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit(t *testing.T) {
	t.Run("Should keep small images as they are", func(t *testing.T) {
		w, h := imaging.Fit(100, 50, 256)
		assert.Equal(t, []int{100, 50}, []int{w, h})
	})

	t.Run("Should scale the longer side down to the limit", func(t *testing.T) {
		w, h := imaging.Fit(1024, 512, 256)
		assert.Equal(t, []int{256, 128}, []int{w, h})

		w, h = imaging.Fit(300, 900, 300)
		assert.Equal(t, []int{100, 300}, []int{w, h})
	})

	t.Run("Should never return a zero side", func(t *testing.T) {
		w, h := imaging.Fit(5000, 2, 256)
		assert.Equal(t, 256, w)
		assert.Equal(t, 1, h)
	})
}

func TestCompress(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, image.NewRGBA(image.Rect(0, 0, 600, 300))))

	t.Run("Should re-encode as a bounded JPEG", func(t *testing.T) {
		out, err := imaging.Compress(src.Bytes(), imaging.MaxIconDimension, imaging.IconQuality)
		require.NoError(t, err)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 256, cfg.Width)
		assert.Equal(t, 128, cfg.Height)
	})

	t.Run("Should fail on data that is not an image", func(t *testing.T) {
		_, err := imaging.Compress([]byte("not an image"), 256, 85)
		assert.Error(t, err)
	})

	t.Run("Should build a JPEG data URL", func(t *testing.T) {
		url, err := imaging.IconDataURL(src.Bytes())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
	})
}
