// Package storage provides the object-storage boundary for the ingestion pipeline.
//
// The pipeline only writes: Upload turns a sanitized key plus a reader into an
// object URI that the remote import job later reads. Open exists solely for the
// import-job side of the local corpus provider; the upload path never reads back.
package storage

import (
	"context"
	"io"
	"strings"
)

// ObjectStore is the write-side interface consumed by the ingestion pipeline.
type ObjectStore interface {
	// Upload writes the object under key and returns its URI.
	Upload(ctx context.Context, key string, r io.Reader) (string, error)

	// Open reads an object back by its URI. Used only by import jobs.
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// SanitizeName maps any rune outside {a-z, A-Z, 0-9, '.', '_', '-'} to '_'.
// The mapping is idempotent: SanitizeName(SanitizeName(x)) == SanitizeName(x).
//
// Multi-byte runes collapse to a single '_' each, so "João Silva.pdf"
// becomes "Jo_o_Silva.pdf".
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
