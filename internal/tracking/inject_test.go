package tracking

import (
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://mail.example.com"

func TestInjectOpenPixel_BeforeBody(t *testing.T) {
	out := InjectOpenPixel("<html><body>hi</body></html>", 9, base)

	assert.Equal(t, 1, strings.Count(out, "<img"))
	assert.Regexp(t, `<img src="https://mail\.example\.com/track/open/[A-Za-z0-9_=-]+\.gif"[^>]*/></body></html>$`, out)
	assert.True(t, strings.HasPrefix(out, "<html><body>hi<img"))
}

func TestInjectOpenPixel_NoBody(t *testing.T) {
	out := InjectOpenPixel("<p>hi</p>", 9, base+"/")

	assert.True(t, strings.HasPrefix(out, "<p>hi</p><img"))
	assert.True(t, strings.HasSuffix(out, "/>"))
	assert.Contains(t, out, base+"/track/open/")
}

func TestInjectOpenPixel_TokenResolvesToID(t *testing.T) {
	out := InjectOpenPixel("<BODY>x</BODY>", 31, base)

	m := regexp.MustCompile(`/track/open/([^"]+)\.gif`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	id, ok := Decode(m[1])
	assert.True(t, ok)
	assert.Equal(t, int64(31), id)
	assert.True(t, strings.HasSuffix(out, "</BODY>"))
}

func TestRewriteLinks(t *testing.T) {
	html := `<a href="mailto:a@b.com">mail</a>` +
		`<a href="https://example.com/Unsubscribe?u=1">bye</a>` +
		`<a href="https://example.com">site</a>` +
		`<a class="x" href='https://example.com/p?a=1&b=2'>deep</a>`

	out := RewriteLinks(html, 5, base)

	assert.Contains(t, out, `<a href="mailto:a@b.com">mail</a>`)
	assert.Contains(t, out, `<a href="https://example.com/Unsubscribe?u=1">bye</a>`)
	assert.NotContains(t, out, `href="https://example.com"`)

	hrefs := regexp.MustCompile(`href=["']([^"']+)["']`).FindAllStringSubmatch(out, -1)
	require.Len(t, hrefs, 4)

	for i, want := range map[int]string{2: "https://example.com", 3: "https://example.com/p?a=1&b=2"} {
		u, err := url.Parse(hrefs[i][1])
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hrefs[i][1], base+"/track/click/"))
		assert.Equal(t, want, u.Query().Get("url"))

		id, ok := Decode(strings.TrimPrefix(u.Path, "/track/click/"))
		assert.True(t, ok)
		assert.Equal(t, int64(5), id)
	}
}

func TestDecorate(t *testing.T) {
	out := Decorate(`<html><body><a href="https://example.com">x</a></body></html>`, 3, base)

	assert.Contains(t, out, "/track/click/")
	assert.Contains(t, out, "/track/open/")
	assert.Equal(t, 1, strings.Count(out, "<img"))
}

func TestInjectOpenPixel_NonASCIIBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"dotted capital I", "<html><body><p>İİİİİİ ok</p></body></html>"},
		{"invalid utf-8", strings.Repeat("\xff", 9) + "</body>"},
		{"mixed case", "<p>ÄÖÜ</p></Body>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out string
			require.NotPanics(t, func() { out = InjectOpenPixel(tt.in, 7, base) })

			idx := strings.Index(out, "<img")
			require.GreaterOrEqual(t, idx, 0)
			assert.True(t, strings.EqualFold(out[strings.Index(out, "/>")+2:][:7], "</body>"))
			assert.Equal(t, tt.in, out[:idx]+out[strings.Index(out, "/>")+2:])
		})
	}
}

func TestRewriteLinks_DecodesCharacterReferences(t *testing.T) {
	out := RewriteLinks(`<a href="https://shop.example/p?a=1&amp;b=2">buy</a>`, 4, base)

	href := regexp.MustCompile(`href="([^"]+)"`).FindStringSubmatch(out)
	require.Len(t, href, 2)
	u, err := url.Parse(href[1])
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/p?a=1&b=2", u.Query().Get("url"))
}

func TestClickURL_KeepsTargetReadable(t *testing.T) {
	got := ClickURL(base, "tok", "https://example.com")
	assert.Equal(t, base+"/track/click/tok?url=https://example.com", got)

	u, err := url.Parse(ClickURL(base, "tok", "https://example.com/a b?x=1&y=2#top"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a b?x=1&y=2#top", u.Query().Get("url"))
}
