// Package livesync keeps an in-memory view of the shared inventory in step
// with the entity store. One watcher per collection re-queries its entire
// result set whenever the store reports a change and replaces the cached
// slice wholesale; consumers only ever see immutable snapshot copies.
package livesync

import (
	"context"
	"log"
	"sort"
	"sync"

	"battery-rental-backend/internal/model"
	"battery-rental-backend/internal/store"
)

// Snapshot is one coherent copy of the synchronized view. Collections
// update on independent ticks, so a snapshot can be transiently
// inconsistent across entity types; convergence is eventual.
type Snapshot struct {
	Customers    []model.Customer
	Assets       []model.Asset
	Transactions []model.LoanTransaction
	Markets      []string
	Market       string
	Loading      bool
}

// Counters are the dashboard roll-up numbers derived from a snapshot.
type Counters struct {
	Available int `json:"available"`
	Given     int `json:"given"`
	Pending   int `json:"pending"`
}

// Counters computes the asset and transaction counts for this snapshot.
func (s Snapshot) Counters() Counters {
	var c Counters
	for _, a := range s.Assets {
		switch a.Status {
		case model.AssetAvailable:
			c.Available++
		case model.AssetGiven:
			c.Given++
		}
	}
	for _, t := range s.Transactions {
		if t.Status == model.TransactionPending {
			c.Pending++
		}
	}
	return c
}

// PendingReturn is one customer with outstanding pending transactions.
type PendingReturn struct {
	Customer model.Customer `json:"customer"`
	Count    int            `json:"count"`
}

// PendingReturns groups pending transactions by customer, most outstanding
// first. Transactions whose customer is not in the current working set
// (inactive, or scoped out by the market filter) are skipped.
func (s Snapshot) PendingReturns() []PendingReturn {
	byID := make(map[string]model.Customer, len(s.Customers))
	for _, c := range s.Customers {
		byID[c.ID] = c
	}

	counts := make(map[string]int)
	for _, t := range s.Transactions {
		if t.Status != model.TransactionPending {
			continue
		}
		if _, ok := byID[t.CustomerID]; !ok {
			continue
		}
		counts[t.CustomerID]++
	}

	result := make([]PendingReturn, 0, len(counts))
	for id, n := range counts {
		result = append(result, PendingReturn{Customer: byID[id], Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Customer.Name < result[j].Customer.Name
	})
	return result
}

// Engine owns the synchronized view and the watcher lifecycle. Customers
// and transactions are market-scoped and their watchers are torn down and
// re-established on every market switch; assets and the market list are
// global and watched once for the process lifetime.
type Engine struct {
	store store.Store
	state *StateFile

	mu           sync.RWMutex
	market       string
	customers    []model.Customer
	assets       []model.Asset
	transactions []model.LoanTransaction
	markets      []string
	loading      bool
	generation   int

	omu       sync.Mutex
	observers map[chan Snapshot]struct{}

	genMu      sync.Mutex
	runCtx     context.Context
	scopedStop context.CancelFunc
}

// NewEngine creates an engine over the given store. The last selected
// market is restored from the state file, defaulting to the unscoped
// pseudo-market.
func NewEngine(s store.Store, state *StateFile) *Engine {
	market := model.MarketAll
	if v, ok := state.Get(MarketKey); ok {
		market = v
	}
	return &Engine{
		store:     s,
		state:     state,
		market:    market,
		markets:   model.DefaultMarkets(),
		loading:   true,
		observers: make(map[chan Snapshot]struct{}),
	}
}

// Start establishes the global watchers and the first market-scoped
// watcher generation. It returns immediately; watchers run until ctx is
// cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.genMu.Lock()
	defer e.genMu.Unlock()
	e.runCtx = ctx
	go e.watch(ctx, store.Assets, func(ctx context.Context) error {
		return e.refreshAssets(ctx)
	})
	go e.watch(ctx, store.Settings, func(ctx context.Context) error {
		return e.refreshMarkets(ctx)
	})
	e.startScopedLocked()
}

// startScopedLocked spins up the customer and transaction watchers for the
// currently selected market. Each call advances the scoped generation:
// cancellation is advisory, so a query from the previous generation can
// still be in flight when the new one starts, and its result must not land
// in the cache. Callers hold genMu.
func (e *Engine) startScopedLocked() {
	ctx, cancel := context.WithCancel(e.runCtx)
	e.scopedStop = cancel

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	market := e.Market()
	filter := market
	if filter == model.MarketAll {
		filter = ""
	}

	go e.watch(ctx, store.Customers, func(ctx context.Context) error {
		return e.refreshCustomers(ctx, filter, gen)
	})
	// The transaction watcher is established last; its first delivery
	// settles the loading state.
	go e.watch(ctx, store.Transactions, func(ctx context.Context) error {
		return e.refreshTransactions(ctx, filter, gen)
	})
}

// watch runs one subscription: an initial wholesale load, then a re-query
// on every change-feed tick that touches the collection. The change feed
// is joined before the initial load so no commit can fall in between.
func (e *Engine) watch(ctx context.Context, col store.Collection, refresh func(context.Context) error) {
	changes := e.store.Watch(ctx)
	if err := refresh(ctx); err != nil {
		log.Printf("livesync: initial %s load failed: %v", col, err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if !c.Has(col) {
				continue
			}
			if err := refresh(ctx); err != nil {
				log.Printf("livesync: %s refresh failed: %v", col, err)
			}
		}
	}
}

func (e *Engine) refreshCustomers(ctx context.Context, market string, gen int) error {
	customers, err := e.store.ListActiveCustomers(ctx, market)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil
	}
	e.customers = customers
	e.mu.Unlock()
	e.publish()
	return nil
}

func (e *Engine) refreshAssets(ctx context.Context) error {
	assets, err := e.store.ListAssets(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.assets = assets
	e.mu.Unlock()
	e.publish()
	return nil
}

func (e *Engine) refreshTransactions(ctx context.Context, market string, gen int) error {
	transactions, err := e.store.ListTransactions(ctx, market)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil
	}
	e.transactions = transactions
	e.loading = false
	e.mu.Unlock()
	e.publish()
	return nil
}

func (e *Engine) refreshMarkets(ctx context.Context) error {
	markets, err := e.store.Markets(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.markets = markets
	e.mu.Unlock()
	e.publish()
	return nil
}

// Market returns the currently selected market.
func (e *Engine) Market() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.market
}

// SetMarket switches the active market: the selection is persisted, the
// market-scoped watchers of the previous generation are cancelled and a
// new generation is established with the new predicate. Global watchers
// are untouched.
func (e *Engine) SetMarket(name string) {
	e.genMu.Lock()
	defer e.genMu.Unlock()

	e.mu.Lock()
	if name == e.market {
		e.mu.Unlock()
		return
	}
	e.market = name
	e.loading = true
	e.mu.Unlock()

	if err := e.state.Set(MarketKey, name); err != nil {
		log.Printf("livesync: failed to persist market selection: %v", err)
	}

	if e.scopedStop != nil {
		e.scopedStop()
	}
	e.startScopedLocked()
}

// Snapshot returns a copy of the current view. The returned slices are
// owned by the caller; mutating them never touches the engine's cache.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Customers:    append([]model.Customer(nil), e.customers...),
		Assets:       append([]model.Asset(nil), e.assets...),
		Transactions: append([]model.LoanTransaction(nil), e.transactions...),
		Markets:      append([]string(nil), e.markets...),
		Market:       e.market,
		Loading:      e.loading,
	}
}

// SelectAssets resolves asset ids against the batteries currently shown as
// Available, preserving selection order and dropping duplicates, unknown
// ids and batteries already out. This is the click-time view the lending
// workflow trusts; no re-verification against the store happens before
// commit, so two callers working from the same snapshot can still both
// select the same battery.
func (e *Engine) SelectAssets(ids []string) []model.Asset {
	e.mu.RLock()
	byID := make(map[string]model.Asset, len(e.assets))
	for _, a := range e.assets {
		if a.Status != model.AssetAvailable {
			continue
		}
		byID[a.ID] = a
	}
	e.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	var selected []model.Asset
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := byID[id]; ok {
			selected = append(selected, a)
		}
	}
	return selected
}

// Subscribe registers an observer. The current snapshot is delivered
// immediately, then every published snapshot after it; a slow observer
// sees the latest snapshot rather than a backlog. The returned cancel
// func must be called when the observer goes away.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	ch <- e.Snapshot()
	e.omu.Lock()
	e.observers[ch] = struct{}{}
	e.omu.Unlock()

	cancel := func() {
		e.omu.Lock()
		delete(e.observers, ch)
		e.omu.Unlock()
	}
	return ch, cancel
}

// publish fans the current snapshot out to all observers without ever
// blocking: a full observer slot is drained and replaced with the latest.
func (e *Engine) publish() {
	snap := e.Snapshot()
	e.omu.Lock()
	defer e.omu.Unlock()
	for ch := range e.observers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
