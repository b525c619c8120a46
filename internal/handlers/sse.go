package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"fraudguard/internal/models"
	"fraudguard/internal/services"
	"fraudguard/internal/ui/templates"
)

const maxSampleRows = 50

const emptyBatchHTML = `<div id="batch-content">No batch analyzed yet.</div>`

var batchTableTemplate = template.Must(template.New("batchTable").Parse(`
<div id="batch-content">
{{.Overview}}
<table class="modern-table">
<thead><tr><th>Row</th><th>Merchant</th><th>Category</th><th>Entry</th><th>Amount</th><th>Confidence</th><th>Risk</th><th>Status</th></tr></thead>
<tbody>
{{range $i, $item := .Data}}{{if lt $i $.MaxRows}}<tr>
<td>{{.Row}}</td>
<td>{{.MerchantName}}</td>
<td><span class="category-badge">{{.MerchantCategory}}</span></td>
<td>{{.CardEntryMethod}}</td>
<td><strong>${{printf "%.2f" .Amount}}</strong></td>
<td>{{printf "%.2f" .Confidence}}</td>
<td class="risk-{{.RiskLevel}}">{{.RiskLevel}}</td>
<td>{{.Status}}</td>
</tr>{{end}}{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type batchTemplateData struct {
	Overview template.HTML
	Data     []models.BulkRowResult
	MaxRows  int
}

func (h *SSEHandlers) renderBatchTable(r *http.Request, summary *models.BulkAnalysisSummary) (string, error) {
	overview, err := renderComponent(r, templates.BatchOverview(*summary))
	if err != nil {
		return "", err
	}

	rows := summary.SampleResults
	if len(rows) > maxSampleRows {
		rows = rows[:maxSampleRows]
	}

	var buf strings.Builder
	err = batchTableTemplate.Execute(&buf, batchTemplateData{
		Overview: template.HTML(overview),
		Data:     rows,
		MaxRows:  maxSampleRows,
	})
	return buf.String(), err
}

func renderComponent(r *http.Request, c templ.Component) (string, error) {
	var buf strings.Builder
	err := c.Render(r.Context(), &buf)
	return buf.String(), err
}

func (h *SSEHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.DashboardStats(r.Context())
	if err != nil {
		h.logger.Error("load dashboard stats", "error", err)
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}

	html, err := renderComponent(r, templates.StatsCards(stats))
	if err != nil {
		h.logger.Error("render stats cards", "error", err)
		return
	}

	jsonData, err := json.Marshal(map[string]any{
		"statsData": stats,
	})
	if err != nil {
		h.logger.Error("marshal stats data", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchElements(html)
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleLatestBatch(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.analytics.LatestBatch()
	if !ok {
		sse := datastar.NewSSE(w, r)
		sse.PatchElements(emptyBatchHTML)
		return
	}

	html, err := h.renderBatchTable(r, summary)
	if err != nil {
		h.logger.Error("render batch table", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
