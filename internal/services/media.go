package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
)

// Upload is an image received from the admin client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaStore persists an image and returns its public URL.
type MediaStore interface {
	Store(ctx context.Context, upload Upload) (string, error)
}

var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// CheckImage enforces the jpg/jpeg/png allow-list on the declared content
// type, the file extension and the sniffed bytes. It returns the canonical
// extension and a reader positioned at the start of the image.
func CheckImage(upload Upload) (string, io.Reader, error) {
	unsupported := func(reason string) error {
		return &apperrors.MediaError{Kind: apperrors.MediaUnsupportedFormat, Err: fmt.Errorf("%s", reason)}
	}

	declared := strings.ToLower(strings.TrimSpace(strings.Split(upload.ContentType, ";")[0]))
	if declared != "" && declared != "application/octet-stream" {
		if _, ok := allowedImageTypes[declared]; !ok {
			return "", nil, unsupported("content type " + declared)
		}
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext != "" && !allowedExtensions[ext] {
		return "", nil, unsupported("extension " + ext)
	}
	if upload.Body == nil {
		return "", nil, unsupported("empty body")
	}

	br := bufio.NewReaderSize(upload.Body, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", nil, &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: err}
	}
	if len(head) == 0 {
		return "", nil, unsupported("empty body")
	}
	sniffed := http.DetectContentType(head)
	canonical, ok := allowedImageTypes[sniffed]
	if !ok {
		return "", nil, unsupported("detected " + sniffed)
	}
	return canonical, br, nil
}
