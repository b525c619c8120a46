// Package templates renders the dashboard page and its live fragments.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"fraudguard/internal/models"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"

// Dashboard is the single-page UI. Panels start as placeholders and are
// filled over SSE.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Fraud Detection Dashboard</title>
<script type="module" src="`+datastarScript+`"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1d2330}
header{background:#1d2330;color:#fff;padding:1rem 2rem}
main{max-width:1100px;margin:0 auto;padding:1.5rem}
section{background:#fff;border-radius:8px;padding:1rem 1.5rem;margin-bottom:1.5rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.cards{display:grid;grid-template-columns:repeat(auto-fit,minmax(180px,1fr));gap:1rem}
.card{border:1px solid #e3e6ec;border-radius:6px;padding:.75rem 1rem}
.card strong{display:block;font-size:1.6rem}
.modern-table{width:100%;border-collapse:collapse}
.modern-table th,.modern-table td{padding:.4rem .6rem;border-bottom:1px solid #eceef2;text-align:left}
.histograms{display:grid;grid-template-columns:repeat(auto-fit,minmax(280px,1fr));gap:1rem}
.risk-high{color:#b42318}.risk-medium{color:#b54708}.risk-low{color:#067647}
</style>
</head>
<body data-signals="{statsData: {totalTransactions: 0, fraudDetected: 0}}">
<header><h1>Fraud Detection Dashboard</h1>
<p><span data-text="$statsData.fraudDetected"></span> flagged of <span data-text="$statsData.totalTransactions"></span> recent transactions</p></header>
<main>
<section data-on-load="@get('/sse/stats')">
<h2>Recent transactions</h2>
<div id="stats-content">Loading...</div>
<button data-on-click="@get('/sse/stats')">Refresh</button>
</section>
<section>
<h2>Bulk analysis</h2>
<form id="upload-form">
<input type="file" name="file" accept=".csv,text/csv" required>
<button type="submit">Analyze</button>
</form>
<div id="batch-content" data-on-load="@get('/sse/latest-batch')">No batch analyzed yet.</div>
</section>
</main>
<script>
document.getElementById('upload-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const body = new FormData(e.target);
  const res = await fetch('/api/analyze-csv', {method: 'POST', body});
  const out = await res.json();
  if (!out.success) {
    document.getElementById('batch-content').textContent = out.error.message;
    return;
  }
  window.location.reload();
});
</script>
</body>
</html>`)
		return err
	})
}

// StatsCards renders the #stats-content fragment.
func StatsCards(stats models.DashboardStats) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div id="stats-content"><div class="cards">`); err != nil {
			return err
		}
		cards := []struct {
			label string
			value int
		}{
			{"Transactions", stats.TotalTransactions},
			{"Fraud detected", stats.FraudDetected},
			{"Suspicious", stats.SuspiciousTransactions},
		}
		for _, c := range cards {
			if _, err := fmt.Fprintf(w, `<div class="card">%s<strong>%d</strong></div>`,
				templ.EscapeString(c.label), c.value); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</div>`); err != nil {
			return err
		}
		if err := countTable("Risk level", stats.ByRiskLevel).Render(ctx, w); err != nil {
			return err
		}
		if err := countTable("Top fraud categories", stats.TopFraudCategories).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// BatchOverview renders the headline counts of a bulk batch and its fraud
// breakdowns into #batch-overview.
func BatchOverview(s models.BulkAnalysisSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div id="batch-overview"><div class="cards">`+
			`<div class="card">Scored<strong>%d</strong></div>`+
			`<div class="card">Fraudulent<strong>%d</strong></div>`+
			`<div class="card">Suspicious<strong>%d</strong></div>`+
			`<div class="card">Safe<strong>%d</strong></div>`+
			`<div class="card">Row errors<strong>%d</strong></div>`+
			`</div><p>Batch %s processed %s</p><div class="histograms"><div>`,
			s.TotalTransactions,
			s.FraudulentTransactions,
			s.SuspiciousTransactions,
			s.SafeTransactions,
			s.ErrorCount,
			templ.EscapeString(s.BatchID),
			templ.EscapeString(s.ProcessedAt.Format("2006-01-02 15:04:05 MST")),
		)
		if err != nil {
			return err
		}
		if err := countTable("Fraud by merchant category", s.FraudByMerchantCategory).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</div><div>`); err != nil {
			return err
		}
		if err := countTable("Fraud by card entry method", s.FraudByCardEntryMethod).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</div><div>`); err != nil {
			return err
		}
		if err := amountTable(s.AmountDistribution).Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</div></div></div>`)
		return err
	})
}

func amountTable(buckets []models.AmountBucketCount) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h3>Amount distribution</h3><table class="modern-table">`+
			`<thead><tr><th>Amount</th><th>Fraudulent</th><th>Legitimate</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, b := range buckets {
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%d</td><td>%d</td></tr>`,
				templ.EscapeString(b.Name), b.Fraudulent, b.Legitimate); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

func countTable(title string, entries []models.CountEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h3>%s</h3><table class="modern-table"><tbody>`, templ.EscapeString(title)); err != nil {
			return err
		}
		if len(entries) == 0 {
			if _, err := io.WriteString(w, `<tr><td>None</td></tr>`); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%d</td></tr>`, templ.EscapeString(e.Name), e.Value); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}
