package loader

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// decodeBody converts a response body to UTF-8. The declared charset wins;
// when the Content-Type header carries none, byte-level detection supplies a
// hint before the standard BOM/meta prescan runs.
func decodeBody(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	if !hasCharsetParam(contentType) {
		if label := detectCharset(body); label != "" {
			if contentType == "" {
				contentType = "text/html; charset=" + label
			} else {
				contentType = contentType + "; charset=" + label
			}
		}
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func hasCharsetParam(contentType string) bool {
	if contentType == "" {
		return false
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := params["charset"]
	return ok
}

// detectCharset runs statistical detection and returns a charset label, or
// empty when detection is inconclusive. UTF-8 is returned as empty too: the
// prescan default already handles it and a redundant hint would override a
// meta declaration.
func detectCharset(body []byte) string {
	res, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || res == nil || res.Confidence < 60 {
		return ""
	}
	label := strings.ToLower(res.Charset)
	if label == "utf-8" || label == "ascii" {
		return ""
	}
	return label
}
