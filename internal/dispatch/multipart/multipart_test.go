package multipart

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildMultipart(t *testing.T, fields map[string]string, fileName, fileContentType string, fileBody []byte) (string, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="file"; filename="` + fileName + `"`},
			"Content-Type":        {fileContentType},
		})
		require.NoError(t, err)
		_, err = part.Write(fileBody)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.String(), w.FormDataContentType()
}

func TestNormalize_TextFieldInlinedVerbatim(t *testing.T) {
	body, contentType := buildMultipart(t, map[string]string{"name": "hello world"}, "", "", nil)

	out, err := Normalize(strings.NewReader(body), contentType)
	require.NoError(t, err)

	require.Contains(t, string(out), `Content-Disposition: form-data; name="name"`)
	require.Contains(t, string(out), "hello world")
}

func TestNormalize_FileFieldBase64Encoded(t *testing.T) {
	payload := []byte("binary-ish content")
	body, contentType := buildMultipart(t, nil, "a.txt", "text/plain", payload)

	out, err := Normalize(strings.NewReader(body), contentType)
	require.NoError(t, err)

	require.Contains(t, string(out), `filename="a.txt"`)
	require.Contains(t, string(out), "Content-Type: text/plain")
	require.Contains(t, string(out), base64.StdEncoding.EncodeToString(payload))
}

func TestNormalize_TerminatesWithClosingBoundary(t *testing.T) {
	body, contentType := buildMultipart(t, map[string]string{"a": "1"}, "", "", nil)

	out, err := Normalize(strings.NewReader(body), contentType)
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(string(out), "--\r\n"))
}

func TestNormalize_MissingBoundaryErrors(t *testing.T) {
	_, err := Normalize(strings.NewReader("irrelevant"), "multipart/form-data")
	require.Error(t, err)
}

func TestNormalize_MultipleFieldsPreserved(t *testing.T) {
	body, contentType := buildMultipart(t, map[string]string{"a": "1", "b": "2"}, "", "", nil)

	out, err := Normalize(strings.NewReader(body), contentType)
	require.NoError(t, err)

	require.Contains(t, string(out), `name="a"`)
	require.Contains(t, string(out), `name="b"`)
}
