package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDate_JSONRoundTrip(t *testing.T) {
	d := DateOf(2024, time.May, 1)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"2024-05-01"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, d.String(), back.String())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("01/05/2024")
	require.Error(t, err)
}

func TestReceipt_DocStripsLocalState(t *testing.T) {
	pct := 42
	r := Receipt{
		ID:             "r1",
		Name:           "Milk",
		Store:          "CoOp",
		Date:           DateOf(2024, time.May, 1),
		Price:          3.49,
		RemoteImageRef: "users/u/images/a.jpg",
		LocalImagePath: "/tmp/r1.jpg",
		PendingUpload:  true,
		UploadProgress: &pct,
	}

	doc := r.Doc()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NotContains(t, string(b), "localImagePath")
	require.NotContains(t, string(b), "pendingUpload")
	require.NotContains(t, string(b), "uploadProgress")

	back := doc.Receipt("r1")
	require.Equal(t, "r1", back.ID)
	require.Equal(t, r.Name, back.Name)
	require.Equal(t, r.RemoteImageRef, back.RemoteImageRef)
	require.Empty(t, back.LocalImagePath)
	require.False(t, back.PendingUpload)
	require.Nil(t, back.UploadProgress)
}

func TestReplaceByID(t *testing.T) {
	items := []Receipt{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}}

	got := ReplaceByID(items, Receipt{ID: "b", Name: "two*"})
	require.Len(t, got, 2)
	require.Equal(t, "two*", got[1].Name)
	require.Equal(t, "one", got[0].Name, "other records untouched")

	got = ReplaceByID(items, Receipt{ID: "c", Name: "three"})
	require.Len(t, got, 3)
	require.Equal(t, "c", got[2].ID, "append preserves order")

	require.Equal(t, "two", items[1].Name, "input slice is not mutated")
}

func TestUploadPayload_EncodeDecode(t *testing.T) {
	p := UploadPayloadFor(Receipt{
		ID:             "r1",
		Name:           "Milk",
		Store:          "CoOp",
		Date:           DateOf(2024, time.May, 1),
		Price:          3.49,
		LocalImagePath: "/tmp/r1.jpg",
	}, "users/u/images/old.jpg")

	b, err := p.Encode()
	require.NoError(t, err)

	back, err := DecodeUploadPayload(b)
	require.NoError(t, err)
	require.Equal(t, p, back)

	_, err = DecodeUploadPayload([]byte("{not json"))
	require.Error(t, err)
}
