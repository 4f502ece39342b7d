package api

import (
	"archive/zip"
	"net/http"
	"os"

	"github.com/spkg/zipfs"
)

// NewStaticHandler serves a small bundled web UI straight out of a zip
// archive, avoiding the need to unpack static assets onto disk. If
// zipPath is empty or cannot be opened, a handler that always 404s is
// returned instead of failing construction — the diagnostics API is
// useful without a UI bundle.
func NewStaticHandler(zipPath string) http.Handler {
	if zipPath == "" {
		return http.NotFoundHandler()
	}
	f, err := os.Open(zipPath)
	if err != nil {
		return http.NotFoundHandler()
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return http.NotFoundHandler()
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return http.NotFoundHandler()
	}
	fs, err := zipfs.New(zr, zipPath)
	if err != nil {
		_ = f.Close()
		return http.NotFoundHandler()
	}
	return http.FileServer(fs)
}
