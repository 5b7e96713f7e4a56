package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blogspace/internal/utils"
)

const maxImageSize = 5 << 20 // 5MB

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func uploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "./uploads"
	}
	return dir
}

// SaveImage writes an uploaded image to the local upload directory and
// returns the public path it will be served from. The stored name is
// opaque so the original filename never reaches the filesystem.
func SaveImage(file multipart.File, header *multipart.FileHeader, prefix string) (string, error) {
	if header.Size > maxImageSize {
		return "", errors.New("image must be smaller than 5MB")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		return "", errors.New("only image files are allowed")
	}

	if err := os.MkdirAll(uploadDir(), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s-%d-%s%s", prefix, time.Now().UnixNano(), utils.RandStringBytesMaskImpr(6), ext)
	dst, err := os.Create(filepath.Join(uploadDir(), name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return "/uploads/" + name, nil
}
