package web

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/pkg/utils"
)

// respondTimesHTML renders the htmx fragment polled by the dashboard. The row
// whose desktop is active is highlighted even when its session is empty.
func (h *Handler) respondTimesHTML(w http.ResponseWriter, times []models.DesktopAndTime, active uuid.UUID) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(times) == 0 {
		w.Write([]byte(`<div class="loading">No desktops</div>`))
		return
	}

	var total uint64
	for _, t := range times {
		total += t.Time.Total
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, t := range times {
		var percentage float64
		if total > 0 {
			percentage = float64(t.Time.Total) / float64(total) * 100.0
		}
		class := "desktop-item"
		if active != uuid.Nil && t.Desktop.ID == active {
			class += " active"
		}
		fmt.Fprintf(&b, `
		<div class="%s" style="--bar-width: %.1f%%">
			<span class="desktop-name">%s</span>
			<div>
				<span class="desktop-time">%s</span>
				<span class="desktop-percentage">%.1f%%</span>
			</div>
		</div>`, class, percentage, html.EscapeString(t.Desktop.Name), utils.FormatSeconds(t.Time.Total), percentage)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatRoundedUnit(int64(total)))

	w.Write([]byte(b.String()))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>vdtime</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --bg-primary: #f5f5f5;
            --bg-secondary: white;
            --text-primary: #333;
            --text-muted: #7f8c8d;
            --border-color: #eee;
            --accent-color: #3498db;
            --heading-color: #2c3e50;
            --shadow: rgba(0,0,0,0.1);
        }

        @media (prefers-color-scheme: dark) {
            :root {
                --bg-primary: #1a1a1a;
                --bg-secondary: #2d2d2d;
                --text-primary: #e0e0e0;
                --text-muted: #a0a0a0;
                --border-color: #404040;
                --accent-color: #5dade2;
                --heading-color: #5dade2;
                --shadow: rgba(0,0,0,0.3);
            }
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
        }

        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 30px; }
        h1 { font-size: 2rem; }

        .header-btn {
            background: var(--bg-secondary);
            color: var(--text-primary);
            border: 2px solid var(--border-color);
            border-radius: 50px;
            padding: 8px 16px;
            cursor: pointer;
        }
        .header-btn:hover { border-color: var(--accent-color); }

        .report-box {
            max-width: 640px;
            background: var(--bg-secondary);
            border-radius: 8px;
            box-shadow: 0 2px 4px var(--shadow);
            padding: 24px;
        }
        .report-box h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            color: var(--heading-color);
            border-bottom: 2px solid var(--accent-color);
            padding-bottom: 10px;
        }

        .desktop-item {
            display: flex;
            justify-content: space-between;
            padding: 12px 8px;
            border-bottom: 1px solid var(--border-color);
            position: relative;
        }
        .desktop-item::before {
            content: '';
            position: absolute;
            left: 0; top: 0;
            height: 100%;
            width: var(--bar-width, 0%);
            background: var(--accent-color);
            opacity: 0.2;
            border-radius: 4px;
        }
        .desktop-item > * { position: relative; }
        .desktop-item.active .desktop-name { font-weight: 700; }
        .desktop-time { color: var(--text-muted); font-family: monospace; white-space: pre; }
        .desktop-percentage { color: var(--accent-color); font-weight: 600; margin-left: 10px; }
        .loading { color: var(--text-muted); font-style: italic; }
        .total { margin-top: 20px; font-weight: 600; color: var(--heading-color); }
    </style>
</head>
<body>
    <div class="header">
        <h1>Desktop time</h1>
        <button class="header-btn" hx-post="/reset" hx-swap="none" hx-confirm="Reset all desktop times?">Reset</button>
    </div>
    <div class="report-box">
        <h2>Since last reset</h2>
        <div hx-get="/time_all" hx-trigger="load, every 5s" hx-swap="innerHTML">
            <div class="loading">Loading...</div>
        </div>
    </div>
</body>
</html>`
