package extract

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	mdConv    = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// Markdown renders raw HTML as Markdown for previews. The markup is
// sanitized first so scripts, handlers and unsafe links never reach the
// output. Relative links are resolved against baseURL when it is set.
// A conversion failure yields "".
func Markdown(raw, baseURL string) string {
	clean := sanitizer.Sanitize(raw)
	var (
		md  string
		err error
	)
	if baseURL != "" {
		md, err = mdConv.ConvertString(clean, converter.WithDomain(baseURL))
	} else {
		md, err = mdConv.ConvertString(clean)
	}
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}
