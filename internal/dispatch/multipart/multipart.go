// Package multipart re-serializes an incoming multipart/form-data body
// into the canonical form the JS formData() polyfill expects (§4.6): each
// part carries a Content-Disposition line, an optional Content-Type, a
// blank line, then the payload — base64 for file parts, UTF-8 inline
// otherwise — with a terminating "--boundary--".
package multipart

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// Normalize re-serializes body (a multipart/form-data payload) into the
// canonical wire form, reusing the same boundary from contentType.
func Normalize(body io.Reader, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("parsing content-type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("multipart content-type missing boundary")
	}

	reader := multipart.NewReader(body, boundary)

	var b strings.Builder
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading multipart part: %w", err)
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("reading part body: %w", err)
		}

		b.WriteString("--")
		b.WriteString(boundary)
		b.WriteString("\r\n")

		disposition := fmt.Sprintf(`form-data; name="%s"`, part.FormName())
		if fn := part.FileName(); fn != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, fn)
		}
		b.WriteString("Content-Disposition: ")
		b.WriteString(disposition)
		b.WriteString("\r\n")

		if ct := part.Header.Get("Content-Type"); ct != "" {
			b.WriteString("Content-Type: ")
			b.WriteString(ct)
			b.WriteString("\r\n")
		}

		b.WriteString("\r\n")
		if part.FileName() != "" {
			b.WriteString(base64.StdEncoding.EncodeToString(data))
		} else {
			b.WriteString(string(data))
		}
		b.WriteString("\r\n")
	}

	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("--\r\n")

	return []byte(b.String()), nil
}
