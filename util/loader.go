// Package util - helpers for loading image sequences from disk.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageExtensions lists the file extensions LoadDirectoryImageFiles accepts.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number parsed from a "frame-<n>" file name, or -1.
	Frame int
}

// IsImage reports whether name carries one of ImageExtensions.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files named "frame-<n>.<ext>" (or "<n>.<ext>") sort by frame number ahead
// of every other file. The rest sort by name.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() || !IsImage(file.Name()) {
			continue
		}

		imgPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", imgPath)
		}
		images = append(images, ImageFile{
			Path:  imgPath,
			Data:  data,
			Frame: frameNumber(file.Name()),
		})
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		switch {
		case a.Frame >= 0 && b.Frame >= 0 && a.Frame != b.Frame:
			return a.Frame < b.Frame
		case (a.Frame >= 0) != (b.Frame >= 0):
			return a.Frame >= 0
		}
		return a.Path < b.Path
	})

	return images, nil
}

func frameNumber(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	frame, err := strconv.Atoi(strings.TrimPrefix(stem, "frame-"))
	if err != nil || frame < 0 {
		return -1
	}
	return frame
}
