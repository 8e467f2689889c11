package upload

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultGateway serves permanent URLs for uploaded artifacts.
const DefaultGateway = "arweave.net"

// defaultImageExt is used when the staged file name has no extension.
const defaultImageExt = "png"

// ImageURL returns the permanent URL of an image upload with an extension hint.
func ImageURL(gateway, id, ext string) string {
	if ext == "" {
		ext = defaultImageExt
	}
	return MetadataURL(gateway, id) + "?ext=" + ext
}

// MetadataURL returns the permanent URL of a metadata upload.
func MetadataURL(gateway, id string) string {
	if gateway == "" {
		gateway = DefaultGateway
	}
	return "https://" + strings.TrimRight(gateway, "/") + "/" + id
}

// imageExt returns the lowercased extension of name without the dot.
func imageExt(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return defaultImageExt
	}
	return ext
}

// imageContentType maps an extension to a MIME type, defaulting to PNG.
func imageContentType(ext string) string {
	if t := mime.TypeByExtension("." + ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/png"
}
