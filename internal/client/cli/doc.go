// Package cli implements the interactive ReceiptVault client.
//
// The CLI wires the local store, the S3-backed remote stores, the image
// cache, and the durable job scheduler together, then drives them from a
// small read-eval-print loop. Command handlers log their own errors; the
// loop itself only does I/O and dispatch.
package cli
