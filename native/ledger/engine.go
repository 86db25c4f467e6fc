package ledger

import (
	"github.com/holiman/uint256"

	"escrowbook/core/events"
	"escrowbook/core/types"
)

// State is the account backend the ledger engine reads and writes through.
// Missing identities must read back as nil or zero accounts, never as errors.
type State interface {
	GetAccount(addr types.Address) (*types.Account, error)
	PutAccount(addr types.Address, acc *types.Account) error
}

// Engine implements the account ledger: deposit balances and per-identity
// escrow fee settings.
type Engine struct {
	state   State
	emitter events.Emitter
}

// NewEngine creates a ledger engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// FundAccount credits value to the identity's deposit balance, creating the
// account on first use. The credit fails with ErrOverflow when the balance
// would exceed the value domain; nothing is stored in that case.
func (e *Engine) FundAccount(addr types.Address, value *uint256.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amount := cloneAmount(value)
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = types.EnsureAccount(acc)
	balance, overflow := new(uint256.Int).AddOverflow(acc.DepositBalance, amount)
	if overflow {
		return ErrOverflow
	}
	acc.DepositBalance = balance
	if err := e.state.PutAccount(addr, acc); err != nil {
		return err
	}
	e.emit(events.DepositReceived{Account: addr, Value: amount, Balance: balance.Clone()})
	return nil
}

// SetFee records the identity's own escrow fee rate. Only the acting identity
// can be the subject, so no further authorization check is needed here.
func (e *Engine) SetFee(addr types.Address, feeRate uint32) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if feeRate > types.MaxFeeRate {
		return ErrFeeOutOfRange
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = types.EnsureAccount(acc)
	acc.FeeRate = feeRate
	if err := e.state.PutAccount(addr, acc); err != nil {
		return err
	}
	e.emit(events.FeeUpdated{Account: addr, FeeRate: feeRate})
	return nil
}

// Funds returns the identity's deposit balance, zero for unknown identities.
func (e *Engine) Funds(addr types.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return types.EnsureAccount(acc).DepositBalance.Clone(), nil
}

// Fee returns the identity's configured fee rate, zero for unknown
// identities.
func (e *Engine) Fee(addr types.Address) (uint32, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, nil
	}
	return acc.FeeRate, nil
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(v)
}
