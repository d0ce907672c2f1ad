package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "rooms/abc/photo.jpg", bytes.NewBufferString("hello")))

	rc, err := s.Get(ctx, "rooms/abc/photo.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, "rooms/abc/photo.jpg"))
	require.NoError(t, s.Delete(ctx, "rooms/abc/photo.jpg"), "deleting twice is fine")

	_, err = s.Get(ctx, "rooms/abc/photo.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageStaysInsideBase(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	// Cleaned against "/" so it lands inside the base directory.
	require.NoError(t, s.Save(ctx, "../../escape.txt", bytes.NewBufferString("x")))
	rc, err := s.Get(ctx, "escape.txt")
	require.NoError(t, err)
	rc.Close()
}

func TestImageProcessorFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		src.Set(x, x%200, color.RGBA{R: 255, A: 255})
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, err := NewImageProcessor().Fit(&in, 100, 100)
	require.NoError(t, err)

	img, format, err := image.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	_, err = NewImageProcessor().Fit(bytes.NewBufferString("not an image"), 10, 10)
	assert.Error(t, err)
}
