package values

import (
	"mime/multipart"
)

// Blob is an opaque binary leaf such as an uploaded file. A blob stands for a
// single user-selected resource: it is shared by reference and never cloned
// or traversed.
type Blob interface {
	BlobName() string
	BlobSize() int64
}

// File is the in-memory Blob used by forms that carry file inputs.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f *File) BlobName() string { return f.Name }
func (f *File) BlobSize() int64  { return int64(len(f.Data)) }

// IsBlob reports whether v is treated as an opaque leaf. Besides Blob
// implementations, *multipart.FileHeader from net/http form parsing counts.
func IsBlob(v any) bool {
	switch v.(type) {
	case Blob, *multipart.FileHeader:
		return true
	}
	return false
}
