package orderbook

import (
	"time"

	"github.com/holiman/uint256"

	"escrowbook/core/events"
	"escrowbook/core/types"
)

// IndexRole selects which per-party order index an operation targets.
type IndexRole uint8

const (
	IndexBuyer IndexRole = iota
	IndexSeller
)

// State is the backend the order engine reads and writes through. Index lists
// are append-only; the engine never removes or reorders entries.
type State interface {
	GetAccount(addr types.Address) (*types.Account, error)
	PutAccount(addr types.Address, acc *types.Account) error
	NextOrderID() (uint64, error)
	OrderPut(*Order) error
	OrderGet(id uint64) (*Order, bool, error)
	OrderIndexAppend(role IndexRole, addr types.Address, id uint64) error
	OrderIDs(role IndexRole, addr types.Address) ([]uint64, error)
}

// Engine implements the order store and the confirmation-driven release
// protocol for orders. All mutating methods apply their full effect or leave
// state untouched; balance credits happen only after order bookkeeping has
// been persisted.
type Engine struct {
	state        State
	emitter      events.Emitter
	feeCollector types.Address
	nowFn        func() int64
}

// NewEngine creates an order engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetFeeCollector configures the address credited with release fees.
func (e *Engine) SetFeeCollector(addr types.Address) { e.feeCollector = addr }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// PlaceOrder records a new order from buyer to seller and returns its id.
// Placing an order records intent only; no funds move until FundOrder.
func (e *Engine) PlaceOrder(buyer, seller types.Address, amount *uint256.Int) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if buyer == seller {
		return 0, ErrSameParty
	}
	if amount == nil || amount.IsZero() {
		return 0, ErrZeroAmount
	}
	id, err := e.state.NextOrderID()
	if err != nil {
		return 0, err
	}
	ord := &Order{
		ID:        id,
		Buyer:     buyer,
		Seller:    seller,
		Amount:    new(uint256.Int).Set(amount),
		Status:    OrderOpen,
		CreatedAt: uint64(e.nowFn()),
	}
	if err := e.state.OrderPut(ord); err != nil {
		return 0, err
	}
	if err := e.state.OrderIndexAppend(IndexBuyer, buyer, id); err != nil {
		return 0, err
	}
	if err := e.state.OrderIndexAppend(IndexSeller, seller, id); err != nil {
		return 0, err
	}
	e.emit(events.OrderPlaced{ID: id, Buyer: buyer, Seller: seller, Amount: ord.Amount.Clone()})
	return id, nil
}

// Get returns the order for id or ErrNotFound for a never-issued id.
func (e *Engine) Get(id uint64) (*Order, error) {
	return e.loadOrder(id)
}

// OrdersByBuyer returns the ids of every order placed by the identity, in
// placement order.
func (e *Engine) OrdersByBuyer(addr types.Address) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.OrderIDs(IndexBuyer, addr)
}

// OrdersBySeller returns the ids of every order naming the identity as
// seller, in placement order.
func (e *Engine) OrdersBySeller(addr types.Address) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.OrderIDs(IndexSeller, addr)
}

// FundOrder moves the order amount from the buyer's deposit balance into
// escrow custody. Only the buyer may fund; funding an already escrowed order
// is a no-op.
func (e *Engine) FundOrder(id uint64, caller types.Address) error {
	ord, err := e.loadOrder(id)
	if err != nil {
		return err
	}
	if ord.Status == OrderReleased {
		return ErrAlreadyConfirmed
	}
	if caller != ord.Buyer {
		return ErrNotAuthorized
	}
	if ord.Escrowed {
		return nil
	}
	acc, err := e.state.GetAccount(ord.Buyer)
	if err != nil {
		return err
	}
	acc = types.EnsureAccount(acc)
	if acc.DepositBalance.Cmp(ord.Amount) < 0 {
		return ErrInsufficientCustody
	}
	acc.DepositBalance = new(uint256.Int).Sub(acc.DepositBalance, ord.Amount)
	ord.Escrowed = true
	if err := e.state.OrderPut(ord); err != nil {
		return err
	}
	if err := e.state.PutAccount(ord.Buyer, acc); err != nil {
		return err
	}
	e.emit(events.OrderFunded{ID: id, Buyer: ord.Buyer, Amount: ord.Amount.Clone()})
	return nil
}

// EscrowedTokens reports the amount held in custody for the order under the
// seller's view: zero until the buyer has funded the order, and zero when the
// seller does not match.
func (e *Engine) EscrowedTokens(seller types.Address, id uint64) (*uint256.Int, error) {
	ord, err := e.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if ord.Seller != seller || !ord.Escrowed {
		return uint256.NewInt(0), nil
	}
	return ord.Amount.Clone(), nil
}

// ConfirmBuyer records the buyer's confirmation. Repeating a confirmation on
// an open order is a no-op; confirming a released order fails.
func (e *Engine) ConfirmBuyer(id uint64, caller types.Address) error {
	return e.confirm(id, caller, IndexBuyer)
}

// ConfirmSeller records the seller's confirmation.
func (e *Engine) ConfirmSeller(id uint64, caller types.Address) error {
	return e.confirm(id, caller, IndexSeller)
}

func (e *Engine) confirm(id uint64, caller types.Address, role IndexRole) error {
	ord, err := e.loadOrder(id)
	if err != nil {
		return err
	}
	if ord.Status == OrderReleased {
		return ErrAlreadyConfirmed
	}
	switch role {
	case IndexBuyer:
		if caller != ord.Buyer {
			return ErrNotAuthorized
		}
		if ord.BuyerConfirmed {
			return nil
		}
		ord.BuyerConfirmed = true
	case IndexSeller:
		if caller != ord.Seller {
			return ErrNotAuthorized
		}
		if ord.SellerConfirmed {
			return nil
		}
		ord.SellerConfirmed = true
	default:
		return ErrNotAuthorized
	}
	if ord.BuyerConfirmed && ord.SellerConfirmed {
		return e.release(ord)
	}
	return e.state.OrderPut(ord)
}

// release settles a fully confirmed order. Every check and computation runs
// before the first write so a failure leaves no partial state; the order
// record is finalized before any balance is credited.
func (e *Engine) release(ord *Order) error {
	if !ord.Escrowed {
		return ErrInsufficientCustody
	}
	sellerAcc, err := e.state.GetAccount(ord.Seller)
	if err != nil {
		return err
	}
	sellerAcc = types.EnsureAccount(sellerAcc)
	fee, err := computeFee(ord.Amount, sellerAcc.FeeRate)
	if err != nil {
		return err
	}
	payout := new(uint256.Int).Sub(ord.Amount, fee)

	collectorAcc := sellerAcc
	sameCollector := e.feeCollector == ord.Seller
	if !sameCollector {
		collectorAcc, err = e.state.GetAccount(e.feeCollector)
		if err != nil {
			return err
		}
		collectorAcc = types.EnsureAccount(collectorAcc)
	}
	sellerBalance, overflow := new(uint256.Int).AddOverflow(sellerAcc.DepositBalance, payout)
	if overflow {
		return ErrOverflow
	}
	sellerAcc.DepositBalance = sellerBalance
	collectorBalance, overflow := new(uint256.Int).AddOverflow(collectorAcc.DepositBalance, fee)
	if overflow {
		return ErrOverflow
	}
	collectorAcc.DepositBalance = collectorBalance

	ord.Escrowed = false
	ord.Status = OrderReleased
	if err := e.state.OrderPut(ord); err != nil {
		return err
	}
	if err := e.state.PutAccount(ord.Seller, sellerAcc); err != nil {
		return err
	}
	if !sameCollector {
		if err := e.state.PutAccount(e.feeCollector, collectorAcc); err != nil {
			return err
		}
	}
	e.emit(events.FundsReleased{ID: ord.ID, Seller: ord.Seller, Amount: ord.Amount.Clone(), Fee: fee})
	return nil
}

func (e *Engine) loadOrder(id uint64) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ord, ok, err := e.state.OrderGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return ord, nil
}

func computeFee(amount *uint256.Int, feeRate uint32) (*uint256.Int, error) {
	if feeRate == 0 {
		return uint256.NewInt(0), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(uint64(feeRate)))
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, uint256.NewInt(types.FeeDenominator)), nil
}
