package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gitmanhimanshu/verdantia/internal/models"
	"github.com/gitmanhimanshu/verdantia/internal/session"
	"github.com/gitmanhimanshu/verdantia/internal/vouchers"
)

type RedeemResult struct {
	Code    string         `json:"code"`
	Points  int            `json:"points"`
	Voucher models.Voucher `json:"voucher"`
}

// VoucherPage is the catalog plus the viewer's balance.
type VoucherPage struct {
	Points   int              `json:"points"`
	Vouchers []models.Voucher `json:"vouchers"`
}

func (s *Service) Vouchers(ctx context.Context, cur session.Current) (VoucherPage, error) {
	user, err := s.Me(ctx, cur)
	if err != nil {
		return VoucherPage{}, err
	}
	return VoucherPage{Points: user.Points, Vouchers: vouchers.Catalog}, nil
}

// Redeem runs the optimistic redemption: deduct the cached balance first,
// then ask the platform, then commit or roll back. Redemptions are
// serialized per session; a concurrent attempt on any voucher is refused
// while one is pending.
func (s *Service) Redeem(ctx context.Context, cur session.Current, voucherID string) (RedeemResult, error) {
	v, ok := vouchers.Find(voucherID)
	if !ok {
		return RedeemResult{}, ErrUnknownVoucher
	}

	s.mu.Lock()
	if s.redeemBusy[cur.Session.ID] {
		s.mu.Unlock()
		return RedeemResult{}, ErrRedeemInFlight
	}
	s.redeemBusy[cur.Session.ID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.redeemBusy, cur.Session.ID)
		s.mu.Unlock()
	}()

	machine, deducted, err := vouchers.Begin(v, cur.User.Points)
	if err != nil {
		s.PushAlert(cur.Session.ID, "error", "Not enough points for "+v.Brand)
		return RedeemResult{}, err
	}

	// Persist the optimistic deduction so every view agrees while the call
	// is out.
	user := cur.User
	user.Points = deducted
	if err := s.sessions.UpdateUser(ctx, cur.Session.ID, user); err != nil {
		return RedeemResult{}, err
	}
	journalID := uuid.NewString()
	_ = s.store.InsertRedemption(ctx, models.Redemption{
		ID: journalID, Username: cur.User.Username, VoucherID: v.ID, Brand: v.Brand,
		Cost: v.Value, Status: string(vouchers.StatePending), CreatedAt: time.Now().UTC(),
	})

	code, upErr := s.up.RedeemVoucher(ctx, cur.UpstreamToken, v.ID, v.Value)
	if upErr != nil {
		restored, _ := machine.Rollback()
		user.Points = restored
		if err := s.sessions.UpdateUser(ctx, cur.Session.ID, user); err != nil {
			s.logger.Error("restore points after failed redeem", zap.Error(err))
		}
		_ = s.store.UpdateRedemption(ctx, journalID, string(vouchers.StateRolledBack), "")
		s.PushAlert(cur.Session.ID, "error", "Redemption failed, points restored")
		return RedeemResult{}, s.mapUpstreamErr(ctx, cur, upErr)
	}

	if err := machine.Commit(code); err != nil {
		return RedeemResult{}, err
	}
	_ = s.store.UpdateRedemption(ctx, journalID, string(vouchers.StateCommitted), code)
	s.PushAlert(cur.Session.ID, "success", v.Brand+" voucher redeemed")
	return RedeemResult{Code: code, Points: deducted, Voucher: v}, nil
}

// RedemptionHistory is the local journal for the session's user.
func (s *Service) RedemptionHistory(ctx context.Context, cur session.Current) ([]models.Redemption, error) {
	return s.store.ListRedemptions(ctx, cur.User.Username, 50, 0)
}

// UpstreamVouchers passes the platform's own redemption records through.
func (s *Service) UpstreamVouchers(ctx context.Context, cur session.Current) (json.RawMessage, error) {
	out, err := s.up.MyVouchers(ctx, cur.UpstreamToken)
	if err != nil {
		return nil, s.mapUpstreamErr(ctx, cur, err)
	}
	return out, nil
}
