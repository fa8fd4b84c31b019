package images

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Load decodes the image at path, applying EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return img, nil
}

// Save encodes img to path. The format follows the file extension.
func Save(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

// ReadMat decodes the image at path with OpenCV and converts it into a Go
// image. It accepts every format the OpenCV build supports.
//
// Arguments:
//   - path: The image file.
//   - gray: Decode as single channel grayscale.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if OpenCV could not read the file.
func ReadMat(path string, gray bool) (image.Image, error) {
	flags := gocv.IMReadColor
	if gray {
		flags = gocv.IMReadGrayScale
	}
	mat := gocv.IMRead(path, flags)
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.Errorf("failed to read %s", path)
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to convert %s", path)
	}
	return img, nil
}

// WriteMat encodes img to path with OpenCV.
func WriteMat(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "failed to convert image")
	}
	defer mat.Close()
	if !gocv.IMWrite(path, mat) {
		return errors.Errorf("failed to write %s", path)
	}
	return nil
}
