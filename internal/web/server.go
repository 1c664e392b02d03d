// Package web exposes the HTTP surface: a small dashboard, a JSON portfolio
// endpoint, an SSE stream of journaled decisions, and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
)

const decisionPollInterval = 2 * time.Second

type portfolioReader interface {
	Portfolio(ctx context.Context) (domain.Portfolio, error)
}

type cashReader interface {
	Latest(ctx context.Context) (domain.CashSnapshot, bool, error)
}

type decisionReader interface {
	EventsAfter(index uint64) ([]domain.DecisionEventRecord, error)
}

// Server exposes HTTP endpoints serving the dashboard, the portfolio JSON
// view and an SSE stream of decisions.
type Server struct {
	addr       string
	portfolios portfolioReader
	cash       cashReader
	decisions  decisionReader
	logger     *zap.Logger
}

// NewServer creates a web server instance.
func NewServer(addr string, portfolios portfolioReader, cash cashReader, decisions decisionReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:       addr,
		portfolios: portfolios,
		cash:       cash,
		decisions:  decisions,
		logger:     logger,
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/portfolio", s.handlePortfolio)
	mux.HandleFunc("/decisions/stream", s.handleDecisionStream)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

type positionView struct {
	Date     string  `json:"date,omitempty"`
	Ticker   string  `json:"ticker"`
	Qty      float64 `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

type portfolioView struct {
	Positions []positionView `json:"positions"`
	Cash      *cashView      `json:"cash,omitempty"`
}

type cashView struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.portfolios.Portfolio(r.Context())
	if err != nil {
		s.logger.Error("portfolio read failed", zap.Error(err))
		http.Error(w, "failed to load portfolio", http.StatusInternalServerError)
		return
	}

	view := portfolioView{Positions: make([]positionView, 0, portfolio.Len())}
	for _, pos := range portfolio.Positions() {
		view.Positions = append(view.Positions, positionView{
			Date:     pos.DateString(),
			Ticker:   pos.Ticker,
			Qty:      pos.Qty,
			AvgPrice: pos.AvgPrice,
		})
	}

	if s.cash != nil {
		snapshot, found, err := s.cash.Latest(r.Context())
		if err != nil {
			s.logger.Error("cash read failed", zap.Error(err))
			http.Error(w, "failed to load cash", http.StatusInternalServerError)
			return
		}
		if found {
			view.Cash = &cashView{Date: snapshot.DateString(), Amount: snapshot.Amount}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.Error("portfolio encode failed", zap.Error(err))
	}
}

func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	if s.decisions == nil {
		http.Error(w, "decision journal not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat keeps proxies from closing idle streams
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(decisionPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendDecisions := func() error {
		records, err := s.decisions.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: decision\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendDecisions(); err != nil {
		s.logger.Error("decision stream initial load failed", zap.Error(err))
		http.Error(w, "failed to load decisions", http.StatusInternalServerError)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendDecisions(); err != nil {
				s.logger.Warn("decision stream poll failed", zap.Error(err))
			}
		}
	}
}

// Single-page dashboard: holdings plus a live decision feed.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Folio</title>
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Press+Start+2P&family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --ink-soft:#9c9c9c;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      display:flex;
      align-items:center;
      justify-content:center;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1200px, 96vw);
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:grid;
      grid-template-columns:1fr 380px;
      gap:2rem;
    }
    header { display:flex; justify-content:space-between; align-items:flex-start; gap:1rem; }
    .eyebrow {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.55rem;
      text-transform:uppercase;
      letter-spacing:.2em;
      margin:0;
    }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#ffffff;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    .main-content { display:flex; flex-direction:column; gap:1.5rem; }
    table {
      width:100%;
      border-collapse:collapse;
      background:#fff;
      border:3px solid var(--ink);
      font-size:.75rem;
    }
    th, td { padding:.6rem .8rem; border-bottom:1px dashed var(--ink-soft); text-align:right; }
    th:first-child, td:first-child { text-align:left; }
    th {
      font-size:.6rem;
      text-transform:uppercase;
      letter-spacing:.15em;
      border-bottom:2px solid var(--ink);
    }
    .cash-box {
      border:3px solid var(--ink);
      background:#fff;
      padding:1rem 1.2rem;
      box-shadow:6px 6px 0 rgba(0,0,0,.12);
    }
    .cash-box .label {
      font-size:.6rem;
      text-transform:uppercase;
      letter-spacing:.2em;
      color:var(--ink-mid);
    }
    .cash-box .value { margin-top:.5rem; font-size:1.6rem; font-weight:700; }
    .empty-state {
      border:2px dashed var(--ink-soft);
      padding:2rem;
      text-align:center;
      font-size:.75rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      color:var(--ink-mid);
    }
    .decisions-sidebar {
      display:flex;
      flex-direction:column;
      gap:1rem;
      max-height:calc(100vh - 8rem);
      overflow-y:auto;
    }
    .sidebar-title {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.6rem;
      text-transform:uppercase;
      letter-spacing:.15em;
      margin:0 0 .5rem 0;
      padding-bottom:.8rem;
      border-bottom:2px solid var(--ink);
    }
    .decision-card {
      border:2px solid var(--ink);
      padding:1rem;
      background:#fff;
      box-shadow:4px 4px 0 rgba(0,0,0,.12);
      font-size:.68rem;
      line-height:1.4;
    }
    .decision-job { font-weight:700; text-transform:uppercase; letter-spacing:.1em; }
    .decision-time { font-size:.6rem; color:var(--ink-mid); float:right; }
    .decision-summary { margin-top:.6rem; color:var(--ink-mid); font-style:italic; }
    .decision-orders { margin-top:.6rem; }
    .order-pill {
      display:inline-block;
      font-size:.55rem;
      padding:.25rem .5rem;
      margin:.15rem .2rem 0 0;
      background:var(--panel);
      border:1px solid var(--ink-soft);
    }
    @media (max-width:760px) {
      #app { grid-template-columns:1fr; }
      .decisions-sidebar { max-height:400px; }
    }
  </style>
</head>
<body>
  <div id="app">
    <div class="main-content">
      <header>
        <p class="eyebrow">folio portfolio</p>
        <div id="status" class="status">Loading…</div>
      </header>
      <div id="cashBox" class="cash-box" style="display:none">
        <div class="label">Cash balance</div>
        <div id="cashValue" class="value">0.00</div>
      </div>
      <div id="holdings">
        <div class="empty-state">Loading holdings…</div>
      </div>
    </div>
    <aside class="decisions-sidebar">
      <h3 class="sidebar-title">Decisions</h3>
      <div id="decisions"></div>
    </aside>
  </div>
<script>
const statusEl = document.getElementById('status');
const holdingsEl = document.getElementById('holdings');
const cashBox = document.getElementById('cashBox');
const cashValue = document.getElementById('cashValue');
const decisionsEl = document.getElementById('decisions');
const MAX_DECISIONS = 50;

function renderHoldings(data){
  if(data.cash){
    cashBox.style.display = 'block';
    cashValue.textContent = data.cash.amount.toFixed(2) + '  (' + data.cash.date + ')';
  }
  if(!data.positions || data.positions.length === 0){
    holdingsEl.innerHTML = '<div class="empty-state">Portfolio is empty</div>';
    return;
  }
  let html = '<table><tr><th>Ticker</th><th>Qty</th><th>Avg price</th><th>Value</th><th>Date</th></tr>';
  for(const p of data.positions){
    html += '<tr><td>' + p.ticker + '</td>' +
      '<td>' + p.qty.toFixed(4) + '</td>' +
      '<td>' + p.avg_price.toFixed(2) + '</td>' +
      '<td>' + (p.qty * p.avg_price).toFixed(2) + '</td>' +
      '<td>' + (p.date || '') + '</td></tr>';
  }
  html += '</table>';
  holdingsEl.innerHTML = html;
}

async function refreshPortfolio(){
  try{
    const resp = await fetch('/portfolio');
    if(!resp.ok){ throw new Error('status ' + resp.status); }
    renderHoldings(await resp.json());
    statusEl.textContent = 'Live';
  }catch(err){
    statusEl.textContent = 'Error';
    console.error('portfolio fetch', err);
  }
}

function createDecisionCard(event){
  const card = document.createElement('div');
  card.className = 'decision-card';

  const time = document.createElement('span');
  time.className = 'decision-time';
  const ts = new Date(event.ts);
  time.textContent = Number.isNaN(ts.getTime()) ? '' : ts.toLocaleString();

  const job = document.createElement('span');
  job.className = 'decision-job';
  job.textContent = event.job || 'decision';

  card.append(job, time);

  if(event.summary){
    const summary = document.createElement('div');
    summary.className = 'decision-summary';
    summary.textContent = event.summary;
    card.appendChild(summary);
  }

  if(event.orders && event.orders.length > 0){
    const orders = document.createElement('div');
    orders.className = 'decision-orders';
    for(const o of event.orders){
      const pill = document.createElement('span');
      pill.className = 'order-pill';
      const side = o.qty < 0 ? 'SELL' : 'BUY';
      pill.textContent = side + ' ' + Math.abs(o.qty) + ' ' + o.ticker + ' @ ' + o.price;
      orders.appendChild(pill);
    }
    card.appendChild(orders);
  }

  return card;
}

function connectDecisionSSE(){
  const source = new EventSource('/decisions/stream');
  source.addEventListener('decision', (event) => {
    try{
      const payload = JSON.parse(event.data);
      decisionsEl.insertBefore(createDecisionCard(payload), decisionsEl.firstChild);
      while(decisionsEl.children.length > MAX_DECISIONS){
        decisionsEl.removeChild(decisionsEl.lastChild);
      }
      refreshPortfolio();
    }catch(err){
      console.error('decision parse', err);
    }
  });
  source.addEventListener('error', () => {
    source.close();
    setTimeout(connectDecisionSSE, 2000);
  });
}

refreshPortfolio();
setInterval(refreshPortfolio, 30000);
connectDecisionSSE();
</script>
</body>
</html>`
