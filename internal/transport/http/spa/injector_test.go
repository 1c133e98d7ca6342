package spa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const script = "<script>boot()</script>"

func TestInjectBeforeHeadClose(t *testing.T) {
	doc := "<html><head><title>x</title></head><body></body></html>"
	out := string(Inject([]byte(doc), script))

	assert.Equal(t, "<html><head><title>x</title><script>boot()</script></head><body></body></html>", out)
}

func TestInjectCaseInsensitiveWithSpace(t *testing.T) {
	doc := "<HTML><HEAD></HEAD ></HTML>"
	out := string(Inject([]byte(doc), script))

	assert.Equal(t, "<HTML><HEAD><script>boot()</script></HEAD ></HTML>", out)
}

func TestInjectOnlyFirstOccurrence(t *testing.T) {
	doc := "<head></head><template></head></template>"
	out := string(Inject([]byte(doc), script))

	assert.Equal(t, 1, strings.Count(out, script))
	assert.True(t, strings.HasPrefix(out, "<head>"+script+"</head>"))
}

func TestInjectNoHead(t *testing.T) {
	doc := "<p>fragment</p>"
	assert.Equal(t, doc, string(Inject([]byte(doc), script)))
}

func TestInjectPreservesOtherBytes(t *testing.T) {
	doc := "<html>\r\n<head>\n\t<meta charset=\"utf-8\">\n</head>\n<body>é</body></html>"
	out := string(Inject([]byte(doc), script))

	assert.Equal(t, doc, strings.Replace(out, script, "", 1))
}

func TestBootstrapScript(t *testing.T) {
	s := BootstrapScript("/api/config")

	assert.True(t, strings.HasPrefix(s, "<script>"))
	assert.Contains(t, s, `fetch("/api/config"`)
	assert.Contains(t, s, "window.__RTS_CONFIG__")
	assert.Contains(t, s, "window.SERVER_CONFIG = cfg")
	assert.Contains(t, s, "return null")
}

func TestPlaceholderHasHead(t *testing.T) {
	out := string(Inject([]byte(Placeholder), script))
	assert.Contains(t, out, script+"</head>")
	assert.Contains(t, out, `<div id="root">`)
}
