// Package models defines the receipt and loyalty-card record types and the
// ephemeral per-record cache state published to the UI.
package models

// Receipt is a stored receipt with an optional attached image.
//
// RemoteImageRef is an opaque reference to a blob in remote storage.
// LocalImagePath and the upload bookkeeping fields are machine-local state:
// they are persisted in the local cache but never written to the remote
// document store.
type Receipt struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Store string  `json:"store"`
	Date  Date    `json:"date"`
	Price float64 `json:"price"`

	RemoteImageRef string `json:"remoteImageRef,omitempty"`
	LocalImagePath string `json:"localImagePath,omitempty"`

	// PendingUpload is true while the local image has not yet been durably
	// mirrored to the remote blob store.
	PendingUpload bool `json:"pendingUpload,omitempty"`

	// UploadProgress is present only while an upload is actively running.
	// It is never persisted non-nil across a process restart.
	UploadProgress *int `json:"uploadProgress,omitempty"`
}

// HasLocalImage reports whether the receipt references a local image file.
func (r Receipt) HasLocalImage() bool {
	return r.LocalImagePath != ""
}

// ReceiptDoc is the remote representation of a receipt: the descriptive
// fields plus the blob reference, nothing machine-local.
type ReceiptDoc struct {
	Name     string  `json:"name"`
	Store    string  `json:"store"`
	Date     Date    `json:"date"`
	Price    float64 `json:"price"`
	ImageRef string  `json:"imageRef,omitempty"`
}

// Doc strips a receipt down to its remote representation.
func (r Receipt) Doc() ReceiptDoc {
	return ReceiptDoc{
		Name:     r.Name,
		Store:    r.Store,
		Date:     r.Date,
		Price:    r.Price,
		ImageRef: r.RemoteImageRef,
	}
}

// Receipt rebuilds a full record from a remote document. Machine-local
// fields start out empty; the merge rule in the sync coordinator carries
// them over from any existing local record.
func (d ReceiptDoc) Receipt(id string) Receipt {
	return Receipt{
		ID:             id,
		Name:           d.Name,
		Store:          d.Store,
		Date:           d.Date,
		Price:          d.Price,
		RemoteImageRef: d.ImageRef,
	}
}

// ReplaceByID returns items with the receipt sharing r's id replaced by r,
// or with r appended when no such receipt exists. Order is preserved.
func ReplaceByID(items []Receipt, r Receipt) []Receipt {
	out := make([]Receipt, len(items))
	replaced := false
	for i, item := range items {
		if item.ID == r.ID {
			out[i] = r
			replaced = true
		} else {
			out[i] = item
		}
	}
	if !replaced {
		out = append(out, r)
	}
	return out
}
