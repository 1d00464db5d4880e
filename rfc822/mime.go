package rfc822

import (
	"mime"
	"strings"
)

type MIMEType string

const (
	TextPlain        MIMEType = "text/plain"
	TextHTML         MIMEType = "text/html"
	MultipartMixed   MIMEType = "multipart/mixed"
	MultipartRelated MIMEType = "multipart/related"
	MessageRFC822    MIMEType = "message/rfc822"
)

// ParseContentType parses a Content-Type field value into a media type and its
// parameters. An absent value defaults to text/plain.
func ParseContentType(val string) (string, map[string]string, error) {
	if val == "" {
		val = string(TextPlain)
	}

	return mime.ParseMediaType(val)
}

func isMultipart(mediaType string) bool {
	return strings.HasPrefix(mediaType, "multipart/")
}

func isEmbeddedMessage(mediaType string) bool {
	return MIMEType(mediaType) == MessageRFC822
}
