package ai

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageBytes caps images read from disk.
const MaxImageBytes = 20 << 20

// ImageFromFile reads an image and encodes it for ExtractStudyMaterial.
// The MIME type comes from the content, then the extension.
func ImageFromFile(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > MaxImageBytes {
		return Image{}, fmt.Errorf("image %s is %d bytes, limit %d", filepath.Base(path), info.Size(), MaxImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	return EncodeImage(data, filepath.Ext(path)), nil
}

// EncodeImage base64-encodes raw image bytes. ext is a fallback hint such
// as ".png" for content the sniffer cannot classify.
func EncodeImage(data []byte, ext string) Image {
	mt := http.DetectContentType(data)
	if !strings.HasPrefix(mt, "image/") {
		if byExt := mime.TypeByExtension(strings.ToLower(ext)); byExt != "" {
			mt = byExt
		}
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return Image{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mt,
	}
}
