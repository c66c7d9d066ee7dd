package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/feed"
	"main/internal/gateway"
	"main/internal/journal"
	"main/internal/marketstate"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/pnl"
	"main/internal/report"
	"main/internal/ring"
	"main/internal/risk"
	"main/internal/store"
	"main/internal/strategy"
)

// State is the engine lifecycle.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateStopping
	StateStopped
)

const (
	marketRingCapacity = 1024

	// paperStaleAfter expires resting paper quotes that never filled.
	paperStaleAfter = 100 * time.Millisecond

	joinTimeout = 2 * time.Second
)

// Options bundles the collaborators the supervisor wires together.
type Options struct {
	Config  ops.Config
	Source  feed.Source
	Gateway gateway.Gateway
	Store   store.KeyValueStore
	Journal *journal.Journal
	// LogDir receives the final risk report; empty skips it.
	LogDir string
}

// Engine owns the four workers and every core component. Workers poll
// the shared running flag and exit at their next loop boundary.
type Engine struct {
	cfg     ops.Config
	source  feed.Source
	gateway gateway.Gateway
	kv      store.KeyValueStore
	journal *journal.Journal
	logDir  string

	book    *book.Book
	market  *marketstate.State
	mdRing  *ring.Ring[model.Snapshot]
	tracker *pnl.Tracker
	risk    *risk.Manager
	metrics *obs.Metrics
	params  strategy.Params
	idGen   *clientIDGen
	orders  *orderTable

	state     atomic.Int32
	running   atomic.Bool
	emergency atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
	startedAt time.Time
	stoppedAt time.Time
}

// New constructs the engine and wires the components. The gateway and
// source are bound here; nothing runs until Start.
func New(opt Options) *Engine {
	cfg := opt.Config

	kv := opt.Store
	if kv == nil {
		kv = store.NewNoop()
	}

	riskMgr := risk.NewManager(risk.Config{
		DailyLossLimit:       cfg.MaxDailyLossLimit,
		DrawdownLimit:        cfg.MaxDrawdown,
		MaxOrdersPerSecond:   cfg.OrderRateLimit,
		EnableCircuitBreaker: cfg.EnableCircuitBreaker,
	})
	riskMgr.SetPositionLimit(cfg.TradingSymbol, cfg.PositionLimit)

	e := &Engine{
		cfg:     cfg,
		source:  opt.Source,
		gateway: opt.Gateway,
		kv:      kv,
		journal: opt.Journal,
		logDir:  opt.LogDir,
		book:    book.New(cfg.TradingSymbol),
		market:  marketstate.New(),
		mdRing:  ring.New[model.Snapshot](marketRingCapacity),
		tracker: pnl.NewTracker(),
		risk:    riskMgr,
		metrics: obs.NewMetrics(),
		params: strategy.Params{
			TickSize:          0.01,
			SpreadOffsetTicks: 0.25,
			MinSpreadTicks:    0.5,
			OrderSize:         cfg.OrderSize,
			NeutralBand:       0.01,
			ImbalanceFactor:   1.5,
			HardCap:           cfg.MaxInventory,
			Levels:            5,
		},
		idGen:  newClientIDGen(0),
		orders: newOrderTable(),
	}
	if e.gateway == nil && cfg.PaperTrading {
		e.gateway = gateway.NewPaper(gateway.PaperConfig{NeutralBand: e.params.NeutralBand}, e.tracker.Net)
	}
	e.state.Store(int32(StateInit))
	return e
}

// Tracker exposes the position tracker, e.g. for the paper gateway's
// inventory bias.
func (e *Engine) Tracker() *pnl.Tracker {
	return e.tracker
}

// Risk exposes the risk manager.
func (e *Engine) Risk() *risk.Manager {
	return e.risk
}

// Metrics exposes the hot-path counters.
func (e *Engine) Metrics() *obs.Metrics {
	return e.metrics
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start subscribes the market data stream, restores the order cache and
// spawns the four workers.
func (e *Engine) Start(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateInit), int32(StateRunning)) {
		return nil
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running.Store(true)
	e.startedAt = time.Now()

	e.restoreOrders()

	if err := e.source.Subscribe(e.ctx, e.cfg.TradingSymbol); err != nil {
		e.state.Store(int32(StateStopped))
		e.running.Store(false)
		e.cancel()
		return err
	}

	for _, worker := range []func(){
		e.marketDataWorker,
		e.tradingWorker,
		e.riskWorker,
		e.metricsWorker,
	} {
		e.wg.Add(1)
		go func(run func()) {
			defer e.wg.Done()
			run()
		}(worker)
	}

	go func() {
		e.risk.Monitor(e.ctx)
	}()

	e.journal.Info("engine started")
	logs.Infof("engine started: symbol=%s paper=%v", e.cfg.TradingSymbol, e.cfg.PaperTrading)
	return nil
}

// Stop flips the running flag, closes the transport, joins the workers
// within the per-worker bound and writes the session reports. Safe to
// call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.state.Store(int32(StateStopping))
		e.running.Store(false)
		e.source.Close()
		if e.cancel != nil {
			e.cancel()
		}

		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(4 * joinTimeout):
			// A missed join is a bug; surface it loudly instead of
			// detaching.
			logs.Error("worker join timed out")
			e.journal.Critical("worker join timed out")
		}

		e.stoppedAt = time.Now()
		e.persistOrders()
		e.writeReports()
		e.kv.Close()
		e.journal.Info("engine stopped")
		e.journal.Close()
		e.state.Store(int32(StateStopped))
		logs.Info("engine stopped")
	})
}

// Wait blocks until every worker exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// EmergencyTriggered reports whether the risk worker forced the stop.
func (e *Engine) EmergencyTriggered() bool {
	return e.emergency.Load()
}

func (e *Engine) restoreOrders() {
	orders, err := store.LoadOrders(e.ctx, e.kv)
	if err != nil {
		e.journal.Warning("order cache restore failed: " + err.Error())
		return
	}
	for i := range orders {
		o := orders[i]
		if o.Status.IsTerminal() {
			continue
		}
		e.orders.add(&o)
	}
	if n := e.orders.size(); n > 0 {
		logs.Infof("restored %d cached orders", n)
	}
}

func (e *Engine) persistOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, o := range e.orders.orders {
		if err := store.SaveOrder(ctx, e.kv, *o); err != nil {
			e.journal.Warning("order cache save failed: " + err.Error())
			return
		}
	}
}

func (e *Engine) writeReports() {
	summary := report.Build(report.Session{
		Symbol:  e.cfg.TradingSymbol,
		Start:   e.startedAt,
		End:     e.stoppedAt,
		Trading: e.tracker.Snapshot(),
		Metrics: e.metrics.Snapshot(),
	})
	e.journal.WriteSummary(summary)

	if e.logDir != "" {
		path := filepath.Join(e.logDir, "final_risk_report.log")
		if f, err := os.Create(path); err == nil {
			e.risk.WriteReport(f)
			f.Close()
		}
	}
}
