package orderbook

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"escrowbook/core/events"
	"escrowbook/core/types"
)

type indexKey struct {
	role IndexRole
	addr types.Address
}

type mockState struct {
	accounts map[types.Address]*types.Account
	orders   map[uint64]*Order
	indices  map[indexKey][]uint64
	nextID   uint64
}

func newMockState() *mockState {
	return &mockState{
		accounts: make(map[types.Address]*types.Account),
		orders:   make(map[uint64]*Order),
		indices:  make(map[indexKey][]uint64),
	}
}

func (m *mockState) GetAccount(addr types.Address) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr types.Address, acc *types.Account) error {
	m.accounts[addr] = acc.Clone()
	return nil
}

func (m *mockState) NextOrderID() (uint64, error) {
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *mockState) OrderPut(ord *Order) error {
	m.orders[ord.ID] = ord.Clone()
	return nil
}

func (m *mockState) OrderGet(id uint64) (*Order, bool, error) {
	ord, ok := m.orders[id]
	if !ok {
		return nil, false, nil
	}
	return ord.Clone(), true, nil
}

func (m *mockState) OrderIndexAppend(role IndexRole, addr types.Address, id uint64) error {
	key := indexKey{role: role, addr: addr}
	m.indices[key] = append(m.indices[key], id)
	return nil
}

func (m *mockState) OrderIDs(role IndexRole, addr types.Address) ([]uint64, error) {
	return append([]uint64(nil), m.indices[indexKey{role: role, addr: addr}]...), nil
}

func (m *mockState) balance(addr types.Address) *uint256.Int {
	return types.EnsureAccount(m.accounts[addr]).DepositBalance
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) lastType() string {
	if len(c.events) == 0 {
		return ""
	}
	return c.events[len(c.events)-1].EventType()
}

func addr(fill byte) types.Address {
	var a types.Address
	for i := range a {
		a[i] = fill
	}
	return a
}

func newTestEngine(t *testing.T) (*Engine, *mockState, *captureEmitter) {
	t.Helper()
	state := newMockState()
	emitter := &captureEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	engine.SetFeeCollector(addr(0xFE))
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, state, emitter
}

func fund(t *testing.T, state *mockState, a types.Address, amount uint64) {
	t.Helper()
	state.accounts[a] = &types.Account{DepositBalance: uint256.NewInt(amount)}
}

func TestPlaceOrderAssignsSequentialIDs(t *testing.T) {
	engine, _, emitter := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected first id 0, got %d", id)
	}
	id, err = engine.PlaceOrder(addr(0x03), seller, uint256.NewInt(5))
	if err != nil {
		t.Fatalf("place second: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected second id 1, got %d", id)
	}
	if len(emitter.events) != 2 || emitter.events[0].EventType() != events.TypeOrderPlaced {
		t.Fatalf("expected two OrderPlaced events, got %v", emitter.events)
	}
}

func TestPlaceOrderReflectsInputs(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(42))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	ord, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ord.Buyer != buyer || ord.Seller != seller || !ord.Amount.Eq(uint256.NewInt(42)) {
		t.Fatalf("order does not reflect inputs: %+v", ord)
	}
	if ord.Escrowed || ord.BuyerConfirmed || ord.SellerConfirmed || ord.Status != OrderOpen {
		t.Fatalf("new order has unexpected flags: %+v", ord)
	}
}

func TestPlaceOrderRejections(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	buyer := addr(0x01)

	if _, err := engine.PlaceOrder(buyer, buyer, uint256.NewInt(1)); !errors.Is(err, ErrSameParty) {
		t.Fatalf("expected ErrSameParty, got %v", err)
	}
	if _, err := engine.PlaceOrder(buyer, addr(0x02), uint256.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := engine.PlaceOrder(buyer, addr(0x02), nil); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount for nil amount, got %v", err)
	}
}

func TestGetUnknownOrder(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.Get(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIndicesRecordPlacementOrder(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)

	var want []uint64
	for i := 0; i < 5; i++ {
		id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(uint64(i+1)))
		if err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
		want = append(want, id)
	}
	byBuyer, err := engine.OrdersByBuyer(buyer)
	if err != nil {
		t.Fatalf("by buyer: %v", err)
	}
	bySeller, err := engine.OrdersBySeller(seller)
	if err != nil {
		t.Fatalf("by seller: %v", err)
	}
	for i := range want {
		if byBuyer[i] != want[i] || bySeller[i] != want[i] {
			t.Fatalf("index order mismatch at %d: buyer=%v seller=%v want=%v", i, byBuyer, bySeller, want)
		}
	}
	if len(byBuyer) != len(want) || len(bySeller) != len(want) {
		t.Fatalf("index length mismatch: buyer=%d seller=%d want=%d", len(byBuyer), len(bySeller), len(want))
	}
}

func TestFundOrderMovesDepositIntoCustody(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)
	fund(t, state, buyer, 10)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(7))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	held, err := engine.EscrowedTokens(seller, id)
	if err != nil {
		t.Fatalf("escrowed: %v", err)
	}
	if !held.IsZero() {
		t.Fatalf("expected no custody before funding, got %s", held.Dec())
	}

	if err := engine.FundOrder(id, buyer); err != nil {
		t.Fatalf("fund order: %v", err)
	}
	if got := state.balance(buyer); !got.Eq(uint256.NewInt(3)) {
		t.Fatalf("expected buyer balance 3, got %s", got.Dec())
	}
	held, err = engine.EscrowedTokens(seller, id)
	if err != nil {
		t.Fatalf("escrowed: %v", err)
	}
	if !held.Eq(uint256.NewInt(7)) {
		t.Fatalf("expected custody 7, got %s", held.Dec())
	}
	if emitter.lastType() != events.TypeOrderFunded {
		t.Fatalf("expected OrderFunded event, got %s", emitter.lastType())
	}

	// Funding again is a no-op and must not debit twice.
	if err := engine.FundOrder(id, buyer); err != nil {
		t.Fatalf("refund order: %v", err)
	}
	if got := state.balance(buyer); !got.Eq(uint256.NewInt(3)) {
		t.Fatalf("double funding debited twice: %s", got.Dec())
	}
}

func TestFundOrderRejections(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)
	fund(t, state, buyer, 1)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(5))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := engine.FundOrder(id, seller); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := engine.FundOrder(id, buyer); !errors.Is(err, ErrInsufficientCustody) {
		t.Fatalf("expected ErrInsufficientCustody, got %v", err)
	}
	if got := state.balance(buyer); !got.Eq(uint256.NewInt(1)) {
		t.Fatalf("failed funding mutated balance: %s", got.Dec())
	}
}

func TestEscrowedTokensWrongSeller(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)
	fund(t, state, buyer, 10)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(4))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := engine.FundOrder(id, buyer); err != nil {
		t.Fatalf("fund order: %v", err)
	}
	held, err := engine.EscrowedTokens(addr(0x05), id)
	if err != nil {
		t.Fatalf("escrowed: %v", err)
	}
	if !held.IsZero() {
		t.Fatalf("expected zero custody under wrong seller, got %s", held.Dec())
	}
	if _, err := engine.EscrowedTokens(seller, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown order, got %v", err)
	}
}

func TestReleasePaysSellerNetOfFee(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	buyer, seller, collector := addr(0x01), addr(0x02), addr(0xFE)
	fund(t, state, buyer, 100)
	state.accounts[seller] = &types.Account{DepositBalance: uint256.NewInt(0), FeeRate: 10}

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(100))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := engine.FundOrder(id, buyer); err != nil {
		t.Fatalf("fund order: %v", err)
	}
	if err := engine.ConfirmBuyer(id, buyer); err != nil {
		t.Fatalf("confirm buyer: %v", err)
	}
	if err := engine.ConfirmSeller(id, seller); err != nil {
		t.Fatalf("confirm seller: %v", err)
	}

	if got := state.balance(seller); !got.Eq(uint256.NewInt(90)) {
		t.Fatalf("expected seller balance 90, got %s", got.Dec())
	}
	if got := state.balance(collector); !got.Eq(uint256.NewInt(10)) {
		t.Fatalf("expected collector balance 10, got %s", got.Dec())
	}
	if got := state.balance(buyer); !got.IsZero() {
		t.Fatalf("expected buyer balance 0, got %s", got.Dec())
	}
	ord, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ord.Status != OrderReleased || ord.Escrowed {
		t.Fatalf("order not finalized: %+v", ord)
	}
	if emitter.lastType() != events.TypeFundsReleased {
		t.Fatalf("expected FundsReleased event, got %s", emitter.lastType())
	}

	// Total value is conserved: 100 funded in, 90 + 10 out, 0 in custody.
	total := new(uint256.Int).Add(state.balance(seller), state.balance(collector))
	total.Add(total, state.balance(buyer))
	if !total.Eq(uint256.NewInt(100)) {
		t.Fatalf("value not conserved: %s", total.Dec())
	}
}

func TestConfirmAuthorizationAndIdempotence(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)
	fund(t, state, buyer, 10)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(10))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := engine.FundOrder(id, buyer); err != nil {
		t.Fatalf("fund order: %v", err)
	}
	if err := engine.ConfirmBuyer(id, seller); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := engine.ConfirmBuyer(id, buyer); err != nil {
		t.Fatalf("confirm buyer: %v", err)
	}
	// Repeating the same confirmation on an open order is a no-op.
	if err := engine.ConfirmBuyer(id, buyer); err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}
	if err := engine.ConfirmSeller(id, seller); err != nil {
		t.Fatalf("confirm seller: %v", err)
	}
	// The order is released now; any further confirmation fails.
	if err := engine.ConfirmBuyer(id, buyer); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	if err := engine.ConfirmSeller(id, seller); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
}

func TestCompletingConfirmationRequiresCustody(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(10))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := engine.ConfirmBuyer(id, buyer); err != nil {
		t.Fatalf("confirm buyer: %v", err)
	}
	// The completing confirmation must fail atomically: no funds in custody.
	if err := engine.ConfirmSeller(id, seller); !errors.Is(err, ErrInsufficientCustody) {
		t.Fatalf("expected ErrInsufficientCustody, got %v", err)
	}
	ord, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ord.SellerConfirmed {
		t.Fatalf("failed confirmation left partial state: %+v", ord)
	}
	if ord.Status != OrderOpen {
		t.Fatalf("order status changed: %+v", ord)
	}
}

func TestReleaseWithZeroFee(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	buyer, seller := addr(0x01), addr(0x02)
	fund(t, state, buyer, 50)

	id, err := engine.PlaceOrder(buyer, seller, uint256.NewInt(50))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := engine.FundOrder(id, buyer); err != nil {
		t.Fatalf("fund order: %v", err)
	}
	if err := engine.ConfirmSeller(id, seller); err != nil {
		t.Fatalf("confirm seller: %v", err)
	}
	if err := engine.ConfirmBuyer(id, buyer); err != nil {
		t.Fatalf("confirm buyer: %v", err)
	}
	if got := state.balance(seller); !got.Eq(uint256.NewInt(50)) {
		t.Fatalf("expected seller balance 50, got %s", got.Dec())
	}
	if got := state.balance(addr(0xFE)); !got.IsZero() {
		t.Fatalf("expected no fee, got %s", got.Dec())
	}
}
