package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

type memoryEvent struct {
	ev   domain.Event
	sent bool
}

// MemoryAdapter is an in-process Store. A transaction holds the adapter lock
// from begin to end, which gives the same no-lost-update guarantee the MySQL
// row locks give, at the cost of serialising everything.
type MemoryAdapter struct {
	mu        sync.Mutex
	units     map[int64]domain.UniformUnit
	users     map[string]domain.User
	movements []domain.Movement
	sales     []domain.Sale
	events    []memoryEvent

	nextUnitID     int64
	nextMovementID int64
	nextSaleID     int64
	nextEventID    int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		units: make(map[int64]domain.UniformUnit),
		users: make(map[string]domain.User),
	}
}

type memorySnapshot struct {
	units          map[int64]domain.UniformUnit
	movements      int
	sales          int
	events         int
	nextUnitID     int64
	nextMovementID int64
	nextSaleID     int64
	nextEventID    int64
}

func (m *MemoryAdapter) snapshot() memorySnapshot {
	units := make(map[int64]domain.UniformUnit, len(m.units))
	for k, v := range m.units {
		units[k] = v
	}
	return memorySnapshot{
		units:          units,
		movements:      len(m.movements),
		sales:          len(m.sales),
		events:         len(m.events),
		nextUnitID:     m.nextUnitID,
		nextMovementID: m.nextMovementID,
		nextSaleID:     m.nextSaleID,
		nextEventID:    m.nextEventID,
	}
}

func (m *MemoryAdapter) restore(s memorySnapshot) {
	m.units = s.units
	m.movements = m.movements[:s.movements]
	m.sales = m.sales[:s.sales]
	m.events = m.events[:s.events]
	m.nextUnitID = s.nextUnitID
	m.nextMovementID = s.nextMovementID
	m.nextSaleID = s.nextSaleID
	m.nextEventID = s.nextEventID
}

func (m *MemoryAdapter) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	snap := m.snapshot()
	if err := fn(&memoryTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		m.restore(snap)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type memoryTx struct {
	m *MemoryAdapter
}

func (t *memoryTx) LockUnit(_ context.Context, unitID int64) (*domain.UniformUnit, error) {
	u, ok := t.m.units[unitID]
	if !ok {
		return nil, fmt.Errorf("unit %d: %w", unitID, domain.ErrNotFound)
	}
	return &u, nil
}

func (t *memoryTx) ApplyDelta(_ context.Context, unitID int64, delta int) error {
	u, ok := t.m.units[unitID]
	if !ok {
		return fmt.Errorf("unit %d: %w", unitID, domain.ErrNotFound)
	}
	if !u.CanApply(delta) {
		return fmt.Errorf("unit %d: %w", unitID, domain.ErrInsufficientStock)
	}
	u.Quantity += delta
	u.Version++
	t.m.units[unitID] = u
	return nil
}

func (t *memoryTx) InsertMovement(_ context.Context, mv domain.Movement) (int64, error) {
	t.m.nextMovementID++
	mv.ID = t.m.nextMovementID
	t.m.movements = append(t.m.movements, mv)
	return mv.ID, nil
}

func (t *memoryTx) InsertSale(_ context.Context, s domain.Sale) (int64, error) {
	t.m.nextSaleID++
	s.ID = t.m.nextSaleID
	s.Lines = nil
	t.m.sales = append(t.m.sales, s)
	return s.ID, nil
}

func (t *memoryTx) InsertSaleLines(_ context.Context, saleID int64, lines []domain.SaleLine) error {
	for i := range t.m.sales {
		if t.m.sales[i].ID == saleID {
			t.m.sales[i].Lines = append([]domain.SaleLine(nil), lines...)
			return nil
		}
	}
	return fmt.Errorf("sale %d: %w", saleID, domain.ErrNotFound)
}

func (t *memoryTx) EnqueueEvent(_ context.Context, ev domain.Event) error {
	t.m.nextEventID++
	ev.ID = t.m.nextEventID
	t.m.events = append(t.m.events, memoryEvent{ev: ev})
	return nil
}

func (m *MemoryAdapter) ListUniforms(_ context.Context) ([]domain.UniformUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.UniformUnit, 0, len(m.units))
	for _, u := range m.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryAdapter) CreateUniform(_ context.Context, u domain.UniformUnit) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUnitID++
	u.ID = m.nextUnitID
	m.units[u.ID] = u
	return u.ID, nil
}

func (m *MemoryAdapter) ListMovements(_ context.Context) ([]domain.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Movement, 0, len(m.movements))
	for _, mv := range m.movements {
		mv.ActorName = m.usernameLocked(mv.ActorID)
		out = append(out, mv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryAdapter) ListSales(_ context.Context) ([]domain.SaleSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.SaleSummary, 0, len(m.sales))
	for _, s := range m.sales {
		if len(s.Lines) == 0 {
			continue
		}
		products := make([]string, 0, len(s.Lines))
		for _, l := range s.Lines {
			u := m.units[l.UnitID]
			products = append(products, fmt.Sprintf("%s (%s)", u.Garment, u.Size))
		}
		out = append(out, domain.SaleSummary{
			ID:           s.ID,
			CreatedAt:    s.CreatedAt,
			CustomerName: s.CustomerName,
			Total:        s.Total,
			ActorName:    m.usernameLocked(s.ActorID),
			Products:     strings.Join(products, ", "),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryAdapter) StockValuation(_ context.Context) ([]domain.StockValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.units))
	for id := range m.units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.StockValue, 0, len(ids))
	for _, id := range ids {
		u := m.units[id]
		out = append(out, domain.StockValue{
			Garment:    u.Garment,
			Size:       u.Size,
			Quantity:   u.Quantity,
			TotalValue: u.Price.Mul(decimal.NewFromInt(int64(u.Quantity))),
		})
	}
	return out, nil
}

func (m *MemoryAdapter) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryAdapter) PendingEvents(_ context.Context, limit int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Event
	for _, e := range m.events {
		if len(out) == limit {
			break
		}
		if !e.sent {
			out = append(out, e.ev)
		}
	}
	return out, nil
}

func (m *MemoryAdapter) MarkEventsSent(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := make(map[int64]bool, len(ids))
	for _, id := range ids {
		sent[id] = true
	}
	for i := range m.events {
		if sent[m.events[i].ev.ID] {
			m.events[i].sent = true
		}
	}
	return nil
}

// AddUser registers a login for the memory store.
func (m *MemoryAdapter) AddUser(u domain.User) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == 0 {
		u.ID = int64(len(m.users) + 1)
	}
	m.users[u.Username] = u
	return u.ID
}

// Unit returns the committed state of a unit.
func (m *MemoryAdapter) Unit(id int64) (domain.UniformUnit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.units[id]
	return u, ok
}

// Sale returns a committed sale with its lines.
func (m *MemoryAdapter) Sale(id int64) (domain.Sale, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sales {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Sale{}, false
}

func (m *MemoryAdapter) usernameLocked(id int64) string {
	for _, u := range m.users {
		if u.ID == id {
			return u.Username
		}
	}
	return ""
}
