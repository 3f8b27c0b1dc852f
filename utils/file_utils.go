package utils

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	// Base directory for storing uploaded files
	uploadBaseDir = "uploads"
	// Base URL for serving files
	baseURL = "/uploads"
	// Maximum proof file size (10MB)
	maxFileSize = 10 * 1024 * 1024
)

var (
	allowedImageExts = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
	}
	allowedVideoExts = map[string]bool{
		".mp4":  true,
		".mov":  true,
		".webm": true,
	}
)

// cleanFilename removes any potentially dangerous characters from the filename
func cleanFilename(filename string) string {
	filename = filepath.Base(filename)
	reg := regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	return reg.ReplaceAllString(filename, "")
}

// MediaTypeFor classifies an uploaded proof file by extension
func MediaTypeFor(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case allowedImageExts[ext]:
		return "image", nil
	case allowedVideoExts[ext]:
		return "video", nil
	default:
		return "", fmt.Errorf("unsupported proof format %q. Allowed: jpg, jpeg, png, gif, mp4, mov, webm", ext)
	}
}

// SaveProofFile stores a submission proof under uploads/proofs and returns
// its URL.
func SaveProofFile(fileData []byte, filename string) (string, error) {
	if len(fileData) > maxFileSize {
		return "", fmt.Errorf("file too large. Maximum size is %d bytes", maxFileSize)
	}

	cleanName := cleanFilename(filename)
	if _, err := MediaTypeFor(cleanName); err != nil {
		return "", err
	}

	fullPath := filepath.Join(uploadBaseDir, "proofs", cleanName)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %v", err)
	}

	if err := os.WriteFile(fullPath, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %v", err)
	}

	return fmt.Sprintf("%s/proofs/%s", baseURL, cleanName), nil
}

// GenerateProofThumbnail produces a small JPEG preview for an uploaded proof.
// Images are resized directly; for videos the first second's frame is
// extracted with ffmpeg before resizing.
func GenerateProofThumbnail(proofURL string) (string, error) {
	proofPath := strings.TrimPrefix(proofURL, baseURL+"/")
	fullProofPath := filepath.Join(uploadBaseDir, proofPath)

	mediaType, err := MediaTypeFor(fullProofPath)
	if err != nil {
		return "", err
	}

	var sourceData []byte
	if mediaType == "video" {
		// Unique per call; concurrent submissions must not share a frame file
		frameFile, err := os.CreateTemp("", "proof_frame_*.jpg")
		if err != nil {
			return "", fmt.Errorf("failed to create frame file: %v", err)
		}
		framePath := frameFile.Name()
		frameFile.Close()
		defer os.Remove(framePath)

		err = ffmpeg.Input(fullProofPath).
			Output(framePath, ffmpeg.KwArgs{"vframes": 1, "ss": "00:00:01"}).
			OverWriteOutput().
			Run()
		if err != nil {
			return "", fmt.Errorf("failed to extract video frame: %v", err)
		}

		sourceData, err = os.ReadFile(framePath)
		if err != nil {
			return "", fmt.Errorf("failed to read video frame: %v", err)
		}
	} else {
		sourceData, err = os.ReadFile(fullProofPath)
		if err != nil {
			return "", fmt.Errorf("failed to read proof file: %v", err)
		}
	}

	img, err := imaging.Decode(bytes.NewReader(sourceData))
	if err != nil {
		return "", fmt.Errorf("failed to decode proof image: %v", err)
	}

	// Max width 320px, aspect ratio preserved
	resized := imaging.Resize(img, 320, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %v", err)
	}

	proofFilename := filepath.Base(proofPath)
	thumbnailFilename := fmt.Sprintf("thumbnails/%s.jpg", strings.TrimSuffix(proofFilename, filepath.Ext(proofFilename)))
	fullThumbnailPath := filepath.Join(uploadBaseDir, thumbnailFilename)

	if err := os.MkdirAll(filepath.Dir(fullThumbnailPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %v", err)
	}

	if err := os.WriteFile(fullThumbnailPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %v", err)
	}

	return fmt.Sprintf("%s/%s", baseURL, thumbnailFilename), nil
}
