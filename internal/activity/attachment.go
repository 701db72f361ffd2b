package activity

import (
	"path"
	"strings"
)

// Kind is how an attachment is rendered.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDocument:
		return "document"
	default:
		return "file"
	}
}

var extensionKinds = map[string]Kind{
	"jpg":  KindImage,
	"jpeg": KindImage,
	"png":  KindImage,
	"gif":  KindImage,
	"bmp":  KindImage,
	"svg":  KindImage,
	"pdf":  KindDocument,
	"doc":  KindDocument,
	"docx": KindDocument,
	"txt":  KindDocument,
	"xlsx": KindDocument,
}

// Classify returns the rendering kind for a file name, judged by its
// extension only.
func Classify(name string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	return extensionKinds[ext]
}

// AttachmentURL returns the download URL of a stored attachment.
func AttachmentURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/uploads/" + name
}
