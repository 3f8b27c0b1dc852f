package utils

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestMediaTypeFor(t *testing.T) {
	for name, want := range map[string]string{
		"proof.jpg":  "image",
		"proof.PNG":  "image",
		"clip.mp4":   "video",
		"clip.webm":  "video",
		"report.pdf": "",
	} {
		got, err := MediaTypeFor(name)
		if want == "" {
			assert.Error(t, err, name)
			continue
		}
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestSaveProofFileRejectsOversizedUpload(t *testing.T) {
	chdirTemp(t)

	_, err := SaveProofFile(make([]byte, maxFileSize+1), "big.jpg")
	assert.Error(t, err)
}

func TestGenerateProofThumbnailFromImage(t *testing.T) {
	chdirTemp(t)

	img := imaging.New(640, 480, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	proofURL, err := SaveProofFile(buf.Bytes(), "proof.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/proofs/proof.jpg", proofURL)

	thumbnailURL, err := GenerateProofThumbnail(proofURL)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/thumbnails/proof.jpg", thumbnailURL)

	thumbnailData, err := os.ReadFile(filepath.Join("uploads", "thumbnails", "proof.jpg"))
	require.NoError(t, err)

	thumbnail, err := imaging.Decode(bytes.NewReader(thumbnailData))
	require.NoError(t, err)
	assert.Equal(t, 320, thumbnail.Bounds().Dx(), "width capped with aspect ratio preserved")
	assert.Equal(t, 240, thumbnail.Bounds().Dy())
}
