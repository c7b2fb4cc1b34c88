package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// embedPage serves the hosted dashboard: a single self-contained page
// that renders the JSON API, safe to drop into an iframe.
func (s *Server) embedPage(c echo.Context) error {
	return c.HTML(http.StatusOK, embedHTML)
}

const embedHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Intelligence Hub</title>
<style>
  :root { color-scheme: dark; }
  body { margin: 0; background: #0e1117; color: #e6e6e6; font: 14px/1.45 -apple-system, "Segoe UI", Roboto, sans-serif; }
  header { padding: 14px 20px; border-bottom: 1px solid #262b36; display: flex; justify-content: space-between; align-items: baseline; }
  header h1 { margin: 0; font-size: 17px; letter-spacing: .04em; }
  header span { color: #8b93a7; font-size: 12px; }
  main { display: grid; grid-template-columns: repeat(auto-fit, minmax(340px, 1fr)); gap: 16px; padding: 16px 20px; }
  section { background: #161b26; border: 1px solid #262b36; border-radius: 8px; padding: 12px 14px; }
  h2 { margin: 0 0 8px; font-size: 13px; text-transform: uppercase; letter-spacing: .08em; color: #8b93a7; }
  table { width: 100%; border-collapse: collapse; }
  td, th { padding: 4px 6px; text-align: left; border-bottom: 1px solid #20252f; }
  th { color: #8b93a7; font-weight: 500; font-size: 12px; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .hot { color: #ff6b6b; } .warm { color: #ffb86b; } .cool { color: #6bcB8b; }
  .sev4 { color: #ff6b6b; } .sev3 { color: #ffb86b; } .sev2 { color: #e6e6e6; }
  ul { margin: 0; padding-left: 18px; }
  li { margin: 2px 0; }
  a { color: #7aa2f7; text-decoration: none; }
  footer { padding: 10px 20px 18px; color: #5b6275; font-size: 11px; }
</style>
</head>
<body>
<header><h1>INTELLIGENCE HUB</h1><span id="asof"></span></header>
<main>
  <section><h2>Category Heat</h2><table id="heat"></table></section>
  <section><h2>Tension Index</h2><table id="tension"></table></section>
  <section><h2>Alerts</h2><ul id="alerts"></ul></section>
  <section><h2>Narratives</h2><ul id="narratives"></ul></section>
  <section><h2>Latest Headlines</h2><ul id="news"></ul></section>
  <section><h2>Agency Notices</h2><ul id="gov"></ul></section>
</main>
<footer>Composite and tension formulas documented at <a href="/api/methodology">/api/methodology</a>. CSV downloads at /api/export/&lt;table&gt;.csv.</footer>
<script>
const esc = s => { const d = document.createElement("span"); d.textContent = s ?? ""; return d.innerHTML; };
const cls = v => v >= 0.75 ? "hot" : v >= 0.25 ? "warm" : "cool";

async function load() {
  const get = p => fetch(p).then(r => r.ok ? r.json() : null);
  const [snap, alerts] = await Promise.all([get("/api/snapshot"), get("/api/alerts?limit=12")]);
  if (!snap) { document.getElementById("asof").textContent = "warming up, retrying..."; setTimeout(load, 5000); return; }

  document.getElementById("asof").textContent = "as of " + new Date(snap.takenAt).toLocaleString();

  document.getElementById("heat").innerHTML =
    "<tr><th>Category</th><th>Articles</th><th>News z</th><th>Tone</th><th>Mkt %</th><th>Composite</th></tr>" +
    (snap.heat || []).map(h => '<tr><td>' + esc(h.category) + '</td><td class="num">' + h.newsCount +
      '</td><td class="num">' + h.newsZ.toFixed(2) + '</td><td class="num">' + h.sentiment.toFixed(2) +
      '</td><td class="num">' + h.marketPct.toFixed(2) + '</td><td class="num ' + cls(h.composite) + '">' +
      h.composite.toFixed(2) + "</td></tr>").join("");

  document.getElementById("tension").innerHTML =
    "<tr><th>Category</th><th>Score</th><th>Neg density</th><th>Drawdown</th></tr>" +
    (snap.tension || []).map(t => '<tr><td>' + esc(t.category) + '</td><td class="num ' + cls(t.tension / 100) + '">' +
      t.tension.toFixed(1) + '</td><td class="num">' + t.drivers.negDensity.toFixed(2) +
      '</td><td class="num">' + t.drivers.marketDrawdown.toFixed(2) + "</td></tr>").join("");

  document.getElementById("alerts").innerHTML = (alerts || []).length
    ? alerts.map(a => '<li class="sev' + a.severity + '">[' + esc(a.kind) + '] ' +
        (a.link ? '<a href="' + esc(a.link) + '" target="_blank" rel="noopener">' + esc(a.title) + "</a>" : esc(a.title)) + "</li>").join("")
    : "<li>none</li>";

  document.getElementById("narratives").innerHTML =
    (snap.narratives || []).map(n => "<li><b>" + esc(n.category) + ":</b> " + esc(n.label) + " (" + n.docs + ")</li>").join("");

  document.getElementById("news").innerHTML =
    (snap.articles || []).slice(0, 12).map(a => '<li><a href="' + esc(a.link) + '" target="_blank" rel="noopener">' +
      esc(a.title) + "</a> <small>" + esc(a.source) + "</small></li>").join("");

  document.getElementById("gov").innerHTML =
    (snap.govNotices || []).slice(0, 10).map(n => '<li><a href="' + esc(n.link) + '" target="_blank" rel="noopener">' +
      esc(n.title) + "</a> <small>" + esc(n.source) + "</small></li>").join("");
}

load();
setInterval(load, 120000);
</script>
</body>
</html>`
