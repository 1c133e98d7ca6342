// Package spa serves the browser application's entry document with the
// runtime configuration bootstrap inserted into its head.
package spa

import (
	"bytes"
	"regexp"
)

// ConfigGlobal is the window property holding the config promise.
const ConfigGlobal = "__RTS_CONFIG__"

var headClose = regexp.MustCompile(`(?i)</head\s*>`)

// BootstrapScript returns a script that fetches configPath once and exposes
// the result as a promise on window[ConfigGlobal]. A failed fetch resolves to
// null so the page still renders.
func BootstrapScript(configPath string) string {
	return `<script>
(function () {
  if (window.` + ConfigGlobal + `) { return; }
  window.` + ConfigGlobal + ` = fetch("` + configPath + `", { credentials: "same-origin", headers: { "Accept": "application/json" } })
    .then(function (res) {
      if (!res.ok) { throw new Error("config request failed with status " + res.status); }
      return res.json();
    })
    .then(function (cfg) { window.SERVER_CONFIG = cfg; return cfg; })
    .catch(function (err) { console.warn("Server configuration unavailable:", err); return null; });
})();
</script>
`
}

// Inject inserts script immediately before the first closing head tag. A
// document without one is returned unchanged.
func Inject(doc []byte, script string) []byte {
	loc := headClose.FindIndex(doc)
	if loc == nil {
		return doc
	}
	var out bytes.Buffer
	out.Grow(len(doc) + len(script))
	out.Write(doc[:loc[0]])
	out.WriteString(script)
	out.Write(doc[loc[0]:])
	return out.Bytes()
}

// Placeholder is served when no entry document exists.
const Placeholder = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>RTS AI</title>
</head>
<body>
<div id="root">The application build was not found on this server.</div>
</body>
</html>
`
