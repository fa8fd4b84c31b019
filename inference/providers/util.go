package providers

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// LibraryPathEnv names the environment variable that overrides the default
// ONNX Runtime shared library location.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error if the platform has no known library.
func GetSharedLibPath() (string, error) {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p, nil
	}
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.1.21.0.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library for %s/%s", runtime.GOOS, runtime.GOARCH)
}
