package models

import "encoding/json"

// UploadPayload is the durable job input for the upload pipeline. It carries
// everything the worker needs so the job can run long after the enqueueing
// process has exited.
type UploadPayload struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Store          string  `json:"store"`
	Date           Date    `json:"date"`
	Price          float64 `json:"price"`
	LocalImagePath string  `json:"localImagePath,omitempty"`
	RemoteImageRef string  `json:"remoteImageRef,omitempty"`

	// PreviousImageRef is set on image replacement; the superseded blob is
	// deleted after the new one is durable.
	PreviousImageRef string `json:"previousImageRef,omitempty"`
}

// UploadPayloadFor builds the job payload for a receipt.
func UploadPayloadFor(r Receipt, previousRef string) UploadPayload {
	return UploadPayload{
		ID:               r.ID,
		Name:             r.Name,
		Store:            r.Store,
		Date:             r.Date,
		Price:            r.Price,
		LocalImagePath:   r.LocalImagePath,
		RemoteImageRef:   r.RemoteImageRef,
		PreviousImageRef: previousRef,
	}
}

func (p UploadPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

func DecodeUploadPayload(b []byte) (UploadPayload, error) {
	var p UploadPayload
	err := json.Unmarshal(b, &p)
	return p, err
}
