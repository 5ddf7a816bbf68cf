package applications

import (
	"strings"

	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true,
}

var rawTextElements = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true,
}

// CoverLetterText flattens the rich-text cover letter into plain text,
// turning block elements into line breaks.
func CoverLetterText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skipping := ""
	lineBreak := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input, either way keep what was read so far.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			if skipping == "" {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if rawTextElements[tag] {
				switch {
				case tt == html.StartTagToken && skipping == "":
					skipping = tag
				case tt == html.EndTagToken && skipping == tag:
					skipping = ""
				}
				continue
			}
			if skipping != "" {
				continue
			}
			if blockElements[tag] {
				lineBreak()
			}
			if tag == "li" && tt == html.StartTagToken {
				b.WriteString("- ")
			}
		}
	}
}
