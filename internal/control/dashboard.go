package control

import (
	"html/template"
	"net/http"
)

type dashboardView struct {
	Port int
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	st := h.engine.GetState()
	view := dashboardView{}
	if st.Port != nil {
		view.Port = *st.Port
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = dashboardTemplate.Execute(w, view)
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>devport routes</title>
    <style>
      :root {
        --bg: #f6f4ef;
        --panel: #ffffff;
        --ink: #1d1f24;
        --muted: #5d6470;
        --accent: #0f766e;
        --danger: #b42318;
        --border: #d8d3c6;
      }
      * { box-sizing: border-box; }
      body {
        margin: 0;
        font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, sans-serif;
        color: var(--ink);
        background: var(--bg);
      }
      .wrap {
        max-width: 860px;
        margin: 32px auto;
        padding: 0 18px;
      }
      .panel {
        background: var(--panel);
        border: 1px solid var(--border);
        border-radius: 14px;
        padding: 22px;
        box-shadow: 0 8px 24px rgba(0,0,0,0.08);
      }
      h1 { margin: 0 0 10px; font-size: 1.45rem; }
      .meta { color: var(--muted); margin: 4px 0 18px; }
      table { width: 100%; border-collapse: collapse; }
      th, td {
        text-align: left;
        padding: 8px 10px;
        border-bottom: 1px solid var(--border);
        font-size: 0.95rem;
      }
      th { color: var(--muted); font-weight: 600; }
      code {
        font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, monospace;
        background: #f2f5f8;
        border: 1px solid #dde3ea;
        border-radius: 6px;
        padding: 2px 6px;
      }
      .status { font-weight: 600; }
      .status.running { color: var(--accent); }
      .status.error { color: var(--danger); }
      .status.stopped, .status.starting { color: var(--muted); }
      .empty { color: var(--muted); padding: 14px 0; }
    </style>
  </head>
  <body>
    <main class="wrap">
      <section class="panel">
        <h1>devport</h1>
        <p class="meta">Proxying <code>*.localhost:{{.Port}}</code></p>
        <table>
          <thead>
            <tr><th>Route</th><th>Status</th><th>Backend</th><th>Task</th></tr>
          </thead>
          <tbody id="routes"></tbody>
        </table>
        <p class="empty" id="empty" hidden>No routes registered.</p>
      </section>
    </main>
    <script>
      async function refresh() {
        try {
          const resp = await fetch('/api/routes');
          const routes = await resp.json();
          const tbody = document.getElementById('routes');
          tbody.innerHTML = '';
          for (const rt of routes) {
            const row = document.createElement('tr');
            const link = document.createElement('a');
            link.href = rt.url;
            link.textContent = rt.name;
            const nameCell = document.createElement('td');
            nameCell.appendChild(link);
            const statusCell = document.createElement('td');
            statusCell.textContent = rt.status;
            statusCell.className = 'status ' + rt.status;
            const backendCell = document.createElement('td');
            backendCell.textContent = rt.targetHost + ':' + rt.targetPort;
            const taskCell = document.createElement('td');
            taskCell.textContent = rt.taskId || '';
            row.append(nameCell, statusCell, backendCell, taskCell);
            tbody.appendChild(row);
          }
          document.getElementById('empty').hidden = routes.length > 0;
        } catch (err) {
          // Poll again; the daemon may be restarting.
        }
      }
      refresh();
      setInterval(refresh, 2000);
    </script>
  </body>
</html>`))
