package tracking

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
)

var hrefRe = regexp.MustCompile(`(?i)(href\s*=\s*)(?:"([^"]*)"|'([^']*)')`)

// ':' and '/' are legal in a query value and keep the target readable in the link.
var queryUnescaper = strings.NewReplacer("%3A", ":", "%2F", "/")

const closingBody = "</body>"

// OpenPixelURL is where the open pixel for a token is served.
func OpenPixelURL(baseURL, token string) string {
	return fmt.Sprintf("%s/track/open/%s.gif", strings.TrimRight(baseURL, "/"), token)
}

// ClickURL wraps target in a click-tracking redirect.
func ClickURL(baseURL, token, target string) string {
	return fmt.Sprintf("%s/track/click/%s?url=%s", strings.TrimRight(baseURL, "/"), token,
		queryUnescaper.Replace(url.QueryEscape(target)))
}

// InjectOpenPixel places an invisible 1x1 image right before the closing body tag, or at
// the end when there is none.
func InjectOpenPixel(body string, id int64, baseURL string) string {
	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none" />`, OpenPixelURL(baseURL, Encode(id)))

	idx := lastClosingBody(body)
	if idx < 0 {
		return body + pixel
	}
	return body[:idx] + pixel + body[idx:]
}

// lastClosingBody finds the last </body> in any letter case. It compares the original
// bytes, so offsets stay valid for non-ASCII and invalid UTF-8 input.
func lastClosingBody(body string) int {
	for i := len(body) - len(closingBody); i >= 0; i-- {
		if body[i] == '<' && strings.EqualFold(body[i:i+len(closingBody)], closingBody) {
			return i
		}
	}
	return -1
}

// RewriteLinks points every anchor href at the click endpoint. mailto and unsubscribe
// links are left untouched. Character references in the href are decoded first, so the
// redirect goes where the browser would have gone.
func RewriteLinks(body string, id int64, baseURL string) string {
	token := Encode(id)
	return hrefRe.ReplaceAllStringFunc(body, func(m string) string {
		parts := hrefRe.FindStringSubmatch(m)
		prefix, quote, target := parts[1], `"`, parts[2]
		if strings.HasSuffix(m, "'") {
			quote, target = "'", parts[3]
		}

		lower := strings.ToLower(target)
		if strings.Contains(lower, "mailto:") || strings.Contains(lower, "unsubscribe") {
			return m
		}
		return prefix + quote + ClickURL(baseURL, token, html.UnescapeString(target)) + quote
	})
}

// Decorate applies both the open pixel and click rewriting.
func Decorate(body string, id int64, baseURL string) string {
	return InjectOpenPixel(RewriteLinks(body, id, baseURL), id, baseURL)
}
