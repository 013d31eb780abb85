package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// contentDisposition builds an attachment header with an ASCII fallback and
// the UTF-8 name in filename*.
func contentDisposition(filename string) string {
	var fallback strings.Builder
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\':
			fallback.WriteByte('_')
		case r < 0x20 || r > 0x7e:
			fallback.WriteByte('_')
		default:
			fallback.WriteRune(r)
		}
	}
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", fallback.String(), url.PathEscape(filename))
}
