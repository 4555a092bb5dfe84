package review

// indexHTML is the single-page review UI. It is deliberately small: the
// JSON API does the work, this page just walks the queue.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>LinkedIn Extraction Review</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 1.5rem; max-width: 1200px; }
  h1 { font-size: 1.3rem; }
  button { margin-right: 0.4rem; padding: 0.3rem 0.7rem; cursor: pointer; }
  pre { background: #f6f6f6; border: 1px solid #ddd; padding: 0.6rem; overflow: auto; max-height: 24rem; font-size: 0.8rem; }
  textarea { width: 100%; font-family: monospace; font-size: 0.8rem; }
  input[type=text] { width: 100%; }
  .row { display: flex; gap: 1rem; }
  .col { flex: 1; min-width: 0; }
  .muted { color: #666; font-size: 0.85rem; }
  #message { margin-left: 0.6rem; color: #056608; }
</style>
</head>
<body>
<h1>LinkedIn Extraction Review</h1>
<p class="muted">Walk the work queue (pending, needs_fix, skipped) and validate, skip, or correct each extraction.</p>

<div>
  <button id="reload">Reload queue</button>
  <button id="sync">Sync from API</button>
  <button id="export">Export fixtures</button>
  <span id="message"></span>
</div>

<p><b id="counter">0 / 0</b> <span id="meta" class="muted"></span></p>

<div class="row">
  <div class="col">
    <h3>Extracted</h3>
    <pre id="extracted">(empty)</pre>
    <h3>Trace</h3>
    <pre id="trace">(empty)</pre>
  </div>
  <div class="col">
    <h3>Raw element</h3>
    <pre id="raw">(empty)</pre>
  </div>
</div>

<div>
  <button id="prev">&#8592; Previous</button>
  <button id="next">Next &#8594;</button>
  <button id="validate">Validate</button>
  <button id="skip">Skip</button>
  <button id="needsfix">Needs fix</button>
  <button id="fixed">Mark fixed + validated</button>
</div>

<h3>Correction (JSON)</h3>
<textarea id="corrected" rows="10"></textarea>
<p><input id="notes" type="text" placeholder="Notes"></p>
<button id="save">Save correction</button>

<script>
var queue = [];
var idx = 0;

function pretty(obj) { return obj == null ? "(empty)" : JSON.stringify(obj, null, 2); }
function byId(id) { return document.getElementById(id); }
function message(text) { byId("message").textContent = text; }

function current() { return queue.length ? queue[Math.min(idx, queue.length - 1)] : null; }

function render() {
  var item = current();
  byId("counter").textContent = item ? (idx + 1) + " / " + queue.length : "0 / 0";
  if (!item) {
    byId("meta").textContent = "";
    byId("extracted").textContent = "(queue empty)";
    byId("raw").textContent = "(queue empty)";
    byId("trace").textContent = "(queue empty)";
    byId("corrected").value = "";
    byId("notes").value = "";
    return;
  }
  byId("meta").textContent = item.element_id + " · " + item.resource_name + " · " + item.status;
  byId("extracted").textContent = pretty(item.corrected || item.extracted);
  byId("raw").textContent = pretty(item.raw);
  byId("corrected").value = pretty(item.corrected || item.extracted);
  byId("notes").value = item.notes || "";
  loadTrace(item.element_id);
}

function loadTrace(id) {
  fetch("/api/items/" + id + "/preview").then(function (r) { return r.json(); }).then(function (p) {
    byId("trace").textContent = (p.trace || []).join("\n") || "(no trace)";
  }).catch(function () { byId("trace").textContent = "(trace unavailable)"; });
}

function loadQueue(keepIndex) {
  return fetch("/api/queue").then(function (r) { return r.json(); }).then(function (data) {
    queue = data.items || [];
    if (!keepIndex || idx >= queue.length) { idx = Math.max(0, Math.min(idx, queue.length - 1)); }
    render();
  });
}

function setStatus(status) {
  var item = current();
  if (!item) { return; }
  fetch("/api/items/" + item.element_id + "/status", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ status: status })
  }).then(function (r) {
    if (!r.ok) { throw new Error("status " + r.status); }
    message("Set " + status + ".");
    return loadQueue(true);
  }).catch(function (e) { message("Error: " + e.message); });
}

byId("reload").onclick = function () { loadQueue(false).then(function () { message("Queue reloaded."); }); };
byId("prev").onclick = function () { if (idx > 0) { idx--; render(); } };
byId("next").onclick = function () { if (idx < queue.length - 1) { idx++; render(); } };
byId("validate").onclick = function () { setStatus("validated"); };
byId("skip").onclick = function () { setStatus("skipped"); };
byId("needsfix").onclick = function () { setStatus("needs_fix"); };
byId("fixed").onclick = function () { setStatus("fixed_validated"); };

byId("save").onclick = function () {
  var item = current();
  if (!item) { return; }
  var corrected;
  try { corrected = JSON.parse(byId("corrected").value); }
  catch (e) { message("Invalid JSON."); return; }
  fetch("/api/items/" + item.element_id + "/correction", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ corrected: corrected, notes: byId("notes").value })
  }).then(function (r) {
    if (!r.ok) { throw new Error("status " + r.status); }
    message("Correction saved.");
    return loadQueue(true);
  }).catch(function (e) { message("Error: " + e.message); });
};

byId("sync").onclick = function () {
  message("Syncing…");
  fetch("/api/sync", { method: "POST" }).then(function (r) { return r.json().then(function (d) { return { ok: r.ok, d: d }; }); }).then(function (res) {
    if (!res.ok) { throw new Error(res.d.error || "sync failed"); }
    message("Synced: " + res.d.inserted + " new, " + res.d.updated + " updated, queue " + res.d.queue + ".");
    return loadQueue(false);
  }).catch(function (e) { message("Error: " + e.message); });
};

byId("export").onclick = function () {
  fetch("/api/export", { method: "POST" }).then(function (r) { return r.json(); }).then(function (d) {
    message("Exported " + d.exported + " fixture(s) to " + d.dir + ".");
  }).catch(function (e) { message("Error: " + e.message); });
};

loadQueue(false);
</script>
</body>
</html>
`
