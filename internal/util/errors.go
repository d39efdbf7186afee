package util

import "errors"

var (
	ErrDocumentNotFound   = errors.New("specbook document not found or unreadable")
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")
	ErrMalformedResponse  = errors.New("malformed extraction response")
	ErrNoExtractableText  = errors.New("no extractable text found in PDF")
)
