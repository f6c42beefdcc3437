package trading

import (
	"context"
	"sync"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

type fakePortfolios struct {
	mu   sync.Mutex
	data map[string]domain.Portfolio
}

func newFakePortfolios() *fakePortfolios {
	return &fakePortfolios{data: make(map[string]domain.Portfolio)}
}

func (f *fakePortfolios) Get(_ context.Context, user string) (domain.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.data[user]; ok {
		return p, nil
	}
	return domain.NewPortfolio(user), nil
}

func (f *fakePortfolios) Save(_ context.Context, p domain.Portfolio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[p.User] = p
	return nil
}

func (f *fakePortfolios) ListAll(_ context.Context) ([]domain.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Portfolio, 0, len(f.data))
	for _, p := range f.data {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePortfolios) ResetAll(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.data)
	f.data = make(map[string]domain.Portfolio)
	return n, nil
}

type fakeShorts struct {
	mu   sync.Mutex
	lots map[string]domain.ShortLot
}

func newFakeShorts() *fakeShorts {
	return &fakeShorts{lots: make(map[string]domain.ShortLot)}
}

func (f *fakeShorts) Open(_ context.Context, lot domain.ShortLot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lots[lot.ID] = lot
	return nil
}

func (f *fakeShorts) ActiveLotsFor(_ context.Context, user, symbol string) ([]domain.ShortLot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ShortLot
	for _, l := range f.lots {
		if l.User == user && l.Symbol == symbol && l.IsActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeShorts) ActiveLotsAll(_ context.Context) ([]domain.ShortLot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ShortLot
	for _, l := range f.lots {
		if l.IsActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeShorts) ListForUser(_ context.Context, user string, activeOnly bool) ([]domain.ShortLot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ShortLot
	for _, l := range f.lots {
		if l.User != user {
			continue
		}
		if activeOnly && !l.IsActive {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeShorts) DecrementQty(_ context.Context, id string, by int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lots[id]
	l.Qty -= by
	f.lots[id] = l
	return nil
}

func (f *fakeShorts) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lots[id]
	l.IsActive = false
	f.lots[id] = l
	return nil
}

func (f *fakeShorts) UpdateMarks(_ context.Context, prices map[string]float64) error { return nil }

func (f *fakeShorts) DeleteAll(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.lots)
	f.lots = make(map[string]domain.ShortLot)
	return n, nil
}

type fakeTrades struct {
	mu      sync.Mutex
	records []domain.TradeRecord
}

func newFakeTrades() *fakeTrades { return &fakeTrades{} }

func (f *fakeTrades) Append(_ context.Context, t domain.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, t)
	return nil
}

func (f *fakeTrades) ListForUser(_ context.Context, user string, page, limit int) ([]domain.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TradeRecord
	for _, r := range f.records {
		if r.User == user {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTrades) DeleteAll(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.records)
	f.records = nil
	return n, nil
}

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newFakePrices() *fakePrices { return &fakePrices{prices: make(map[string]float64)} }

func (f *fakePrices) set(symbol string, px float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = px
}

func (f *fakePrices) LastClose(symbol string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	px, ok := f.prices[symbol]
	return px, ok
}

func (f *fakePrices) All() map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out
}

type fakeHub struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeHub) Publish(topic string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, topic)
}

type fakeContestStatus struct{ running bool }

func (f fakeContestStatus) IsRunning() bool { return f.running }

type fakeIdentity struct{ names map[string]string }

func (f fakeIdentity) DisplayName(email string) string {
	if n, ok := f.names[email]; ok {
		return n
	}
	return email
}
