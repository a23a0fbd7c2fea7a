package livereload

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const maxInjectSize = 512 * 1024

// Tag is the markup inserted into pages.
const Tag = `<script async src="` + ScriptPath + `"></script>`

// InjectionPoint returns the byte offset of the last </body> end tag, or -1.
// Tags inside comments, scripts and attribute values are not matched.
func InjectionPoint(doc []byte) int {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset, found := 0, -1
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed tail; either way the scan is over.
			return found
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			if string(name) == "body" {
				found = offset
			}
		}
		offset += raw
	}
}

// Inject inserts Tag before the closing body tag. Documents without one are
// returned unchanged.
func Inject(doc []byte) []byte {
	at := InjectionPoint(doc)
	if at < 0 {
		return doc
	}
	out := make([]byte, 0, len(doc)+len(Tag))
	out = append(out, doc[:at]...)
	out = append(out, Tag...)
	return append(out, doc[at:]...)
}

// Middleware injects the client script into HTML responses from next.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isPageRequest(r.URL.Path) || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

func isPageRequest(p string) bool {
	return p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(p, ".html") || strings.HasSuffix(p, ".htm")
}

// injector buffers an HTML response so the script can be inserted. Non-HTML
// or oversized responses pass through untouched.
type injector struct {
	http.ResponseWriter
	status        int
	buf           []byte
	buffering     bool
	passthrough   bool
	headerWritten bool
}

func (i *injector) WriteHeader(code int) {
	i.status = code
	if i.passthrough {
		i.ResponseWriter.WriteHeader(code)
		i.headerWritten = true
	}
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.buffering && !i.passthrough {
		ct := i.Header().Get("Content-Type")
		if i.status != http.StatusOK || (ct != "" && !strings.Contains(ct, "text/html")) {
			i.startPassthrough()
		} else {
			i.buffering = true
		}
	}
	if i.passthrough {
		return i.ResponseWriter.Write(data)
	}
	if len(i.buf)+len(data) > maxInjectSize {
		i.startPassthrough()
		if len(i.buf) > 0 {
			if _, err := i.ResponseWriter.Write(i.buf); err != nil {
				return 0, err
			}
			i.buf = nil
		}
		return i.ResponseWriter.Write(data)
	}
	i.buf = append(i.buf, data...)
	return len(data), nil
}

func (i *injector) startPassthrough() {
	i.passthrough = true
	i.buffering = false
	i.Header().Del("Content-Length")
	i.ResponseWriter.WriteHeader(i.status)
	i.headerWritten = true
}

func (i *injector) finalize() {
	if i.passthrough {
		return
	}
	if !i.buffering {
		if !i.headerWritten {
			i.ResponseWriter.WriteHeader(i.status)
		}
		return
	}
	out := Inject(i.buf)
	i.Header().Set("Content-Length", strconv.Itoa(len(out)))
	i.ResponseWriter.WriteHeader(i.status)
	_, _ = i.ResponseWriter.Write(out)
}
