package jsruntime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeHeaders_LowercasesKeysAndEscapesQuotes(t *testing.T) {
	in := map[string]string{
		"Content-Type":  `text/html; charset="utf-8"`,
		"X-Request-ID":  "abc123",
	}

	out := sanitizeHeaders(in)

	require.Equal(t, `text/html; charset='utf-8'`, out["content-type"])
	require.Equal(t, "abc123", out["x-request-id"])
	_, hadOriginalCasing := out["Content-Type"]
	require.False(t, hadOriginalCasing)
}

func TestLoadPreloads_ReadsEveryEmbeddedModule(t *testing.T) {
	srcs, err := loadPreloads()
	require.NoError(t, err)
	require.Len(t, srcs, len(preloadOrder))
	for _, src := range srcs {
		require.NotEmpty(t, src)
	}
}

func TestErrorResultJSON_WrapsMessage(t *testing.T) {
	out := errorResultJSON(errTest{"boom"})
	require.Contains(t, out, "boom")
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
