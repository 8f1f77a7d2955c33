package dashboard

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Projects []projectView
	Error    string
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>berth</title>
<style>
  body { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; margin: 2rem auto; max-width: 72rem; padding: 0 1rem; background: #0f1115; color: #d8dee9; }
  h1 { font-size: 1.2rem; letter-spacing: .08em; }
  h1 span { color: #5e81ac; }
  table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
  th, td { text-align: left; padding: .45rem .7rem; border-bottom: 1px solid #242933; font-size: .85rem; vertical-align: top; }
  th { color: #81a1c1; font-weight: 600; text-transform: uppercase; font-size: .7rem; letter-spacing: .1em; }
  a { color: #88c0d0; text-decoration: none; }
  a:hover { text-decoration: underline; }
  .ports span { display: inline-block; background: #1c2128; border-radius: 4px; padding: .1rem .45rem; margin: .1rem .2rem .1rem 0; }
  .path { color: #616e88; }
  .empty { color: #616e88; margin-top: 2rem; }
  .error { background: #3b1f26; border: 1px solid #bf616a; color: #ebcb8b; padding: .6rem .9rem; border-radius: 6px; margin-top: 1rem; }
</style>
</head>
<body>
<h1><span>&#9875;</span> berth &mdash; {{len .Projects}} project(s) registered</h1>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .Projects}}
<table>
<thead>
<tr><th>Project</th><th>Domain</th><th>Ports</th><th>Path</th></tr>
</thead>
<tbody>
{{range .Projects}}
<tr>
  <td>{{.Name}}</td>
  <td>{{if .URL}}<a href="{{.URL}}">{{.Domain}}</a>{{else}}&ndash;{{end}}</td>
  <td class="ports">{{range .PortList}}<span>{{.Name}}={{.Port}}</span>{{end}}</td>
  <td class="path">{{.Path}}</td>
</tr>
{{end}}
</tbody>
</table>
{{else}}
<p class="empty">Nothing registered yet. Run berth init inside a project.</p>
{{end}}
<script>
(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + '/livereload');

        ws.onopen = function() {
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            if (msg.type === 'registry-changed') {
                location.reload();
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    connect();
})();
</script>
</body>
</html>
`
