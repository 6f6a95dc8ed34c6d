package vouchers

import (
	"errors"

	"github.com/gitmanhimanshu/verdantia/internal/models"
)

var ErrInsufficientPoints = errors.New("insufficient points")
var ErrNotPending = errors.New("redemption is not pending")

// Catalog is the fixed partner voucher list. Costs are advisory for the
// affordability check; the platform re-validates on redemption.
var Catalog = []models.Voucher{
	{ID: "V50", Brand: "Cafe Verde", Value: 50, Desc: "Free beverage at any Cafe Verde outlet"},
	{ID: "V75", Brand: "Eco Mart", Value: 75, Desc: "Grocery discount coupon"},
	{ID: "V100", Brand: "Green Bites", Value: 100, Desc: "Snack combo voucher"},
	{ID: "V120", Brand: "Leaf n' Learn", Value: 120, Desc: "Bookstore gift card"},
	{ID: "V150", Brand: "Urban Forest", Value: 150, Desc: "Apparel discount voucher"},
	{ID: "V200", Brand: "Planet Play", Value: 200, Desc: "Game store credit"},
}

func Find(id string) (models.Voucher, bool) {
	for _, v := range Catalog {
		if v.ID == id {
			return v, true
		}
	}
	return models.Voucher{}, false
}

type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Redemption tracks one optimistic redemption attempt. Begin snapshots the
// balance and deducts up front; Commit and Rollback are the only exits from
// pending.
type Redemption struct {
	voucher  models.Voucher
	state    State
	snapshot int
	code     string
}

// Begin refuses when the cached balance cannot cover the voucher; no request
// should be made in that case. On success it returns the machine in pending
// state and the optimistically deducted balance.
func Begin(v models.Voucher, points int) (*Redemption, int, error) {
	if points < v.Value {
		return nil, points, ErrInsufficientPoints
	}
	return &Redemption{voucher: v, state: StatePending, snapshot: points}, points - v.Value, nil
}

// Commit finalizes a successful redemption with the code the platform issued.
func (r *Redemption) Commit(code string) error {
	if r.state != StatePending {
		return ErrNotPending
	}
	r.state = StateCommitted
	r.code = code
	return nil
}

// Rollback restores the snapshot after a failed redemption and returns the
// balance to surface.
func (r *Redemption) Rollback() (int, error) {
	if r.state != StatePending {
		return 0, ErrNotPending
	}
	r.state = StateRolledBack
	return r.snapshot, nil
}

func (r *Redemption) State() State            { return r.state }
func (r *Redemption) Code() string            { return r.code }
func (r *Redemption) Voucher() models.Voucher { return r.voucher }
func (r *Redemption) Snapshot() int           { return r.snapshot }
