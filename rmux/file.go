package rmux

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// FileOpener opens files for streaming into a response.
type FileOpener interface {
	OpenForRead(path string) (io.ReadCloser, error)
}

// osFileOpener opens files from the local file system.
type osFileOpener struct{}

// OpenForRead opens the file at the given path for reading.
func (osFileOpener) OpenForRead(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)

	switch {
	case err == nil:
		return file, nil
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	case os.IsPermission(err):
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return nil, err
	}
}

// readFile reads the whole file through the application's file opener.
func (ctx *context) readFile(path string) ([]byte, error) {
	file, err := ctx.app.fileOpener.OpenForRead(path)

	if err != nil {
		return nil, err
	}

	defer file.Close()
	return io.ReadAll(file)
}

// contentTypeFor derives the content type from the file extension.
func contentTypeFor(path string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(path))

	if mimeType == "" {
		mimeType = contentTypeOctetStream
	}

	return mimeType
}

// Download streams the file contents as the response body.
// The content type is derived from the file extension.
func (ctx *context) Download(path string) error {
	data, err := ctx.readFile(path)

	if err != nil {
		return err
	}

	if err := ctx.response.SetHeaderIfAbsent(contentTypeHeader, contentTypeFor(path)); err != nil {
		return err
	}

	return ctx.Bytes(data)
}

// Attachment streams the file like Download and additionally marks it
// for download by the client, using the given display name or the
// file's base name. The file is read before any header is touched, so
// a failed read produces an error response without download headers.
func (ctx *context) Attachment(path string, displayName ...string) error {
	data, err := ctx.readFile(path)

	if err != nil {
		return err
	}

	name := filepath.Base(path)

	if len(displayName) > 0 && displayName[0] != "" {
		name = displayName[0]
	}

	if err := ctx.response.SetHeader(contentDispositionHeader, fmt.Sprintf("attachment; filename=%q", name)); err != nil {
		return err
	}

	if err := ctx.response.SetHeaderIfAbsent(contentTypeHeader, contentTypeFor(path)); err != nil {
		return err
	}

	return ctx.Bytes(data)
}
