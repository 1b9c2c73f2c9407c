package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdvanceMilestone(t *testing.T) {
	ctx := context.Background()

	t.Run("Should only let the contracted freelancer advance", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)

		_, err := m.milestones.AdvanceMilestone(ctx, rival, job.ID, freelancer.UID, 0, domain.MilestoneInProgress)
		assertCode(t, err, http.StatusForbidden)
	})

	t.Run("Should refuse Paid and unknown statuses", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)

		_, err := m.milestones.AdvanceMilestone(ctx, freelancer, job.ID, freelancer.UID, 0, domain.MilestonePaid)
		assertCode(t, err, http.StatusBadRequest)

		_, err = m.milestones.AdvanceMilestone(ctx, freelancer, job.ID, freelancer.UID, 0, "Finished")
		assertCode(t, err, http.StatusBadRequest)
	})

	t.Run("Should refuse skipping a step", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)

		_, err := m.milestones.AdvanceMilestone(ctx, freelancer, job.ID, freelancer.UID, 0, domain.MilestoneDone)
		assertCode(t, err, http.StatusConflict)
	})

	t.Run("Should fail for a missing contract or milestone", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)

		_, err := m.milestones.AdvanceMilestone(ctx, freelancer, job.ID, freelancer.UID, 5, domain.MilestoneInProgress)
		assertCode(t, err, http.StatusNotFound)

		_, err = m.milestones.AdvanceMilestone(ctx, freelancer, "missing", freelancer.UID, 0, domain.MilestoneInProgress)
		assertCode(t, err, http.StatusNotFound)
	})

	t.Run("Should move one step at a time", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100, 50)

		contract, err := m.milestones.AdvanceMilestone(ctx, freelancer, job.ID, freelancer.UID, 1, domain.MilestoneInProgress)
		require.NoError(t, err)
		assert.Equal(t, domain.MilestoneInProgress, contract.JobMilestones[1].Status)
		assert.Equal(t, domain.MilestonePending, contract.JobMilestones[0].Status)

		m.advance(t, job.ID, 1, domain.MilestoneDone)
		stored, err := m.appRepo.GetAccepted(ctx, job.ID, freelancer.UID)
		require.NoError(t, err)
		assert.Equal(t, domain.MilestoneDone, stored.JobMilestones[1].Status)
	})
}

func TestPayMilestone(t *testing.T) {
	ctx := context.Background()

	t.Run("Should refuse a non-positive amount", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)

		_, err := m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 0)
		assertCode(t, err, http.StatusBadRequest)
	})

	t.Run("Should only let the job owner pay", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)

		_, err := m.milestones.PayMilestone(ctx, freelancer, job.ID, freelancer.UID, 0, 100)
		assertCode(t, err, http.StatusForbidden)
	})

	t.Run("Should refuse milestones that are not done", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)
		_, _ = m.milestones.Deposit(ctx, client.UID, 500)

		_, err := m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
		assertCode(t, err, http.StatusConflict)
		assert.Contains(t, err.Error(), "must be Done")
	})

	t.Run("Should refuse an amount that differs from the milestone", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)
		_, _ = m.milestones.Deposit(ctx, client.UID, 500)

		_, err := m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 90)
		assertCode(t, err, http.StatusBadRequest)
		assert.Contains(t, err.Error(), "$100")
	})

	t.Run("Should refuse when the client cannot cover it", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)
		_, _ = m.milestones.Deposit(ctx, client.UID, 99.99)

		_, err := m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
		assertCode(t, err, http.StatusBadRequest)
		assert.Contains(t, err.Error(), "Insufficient funds")

		wallet, err := m.milestones.GetWallet(ctx, client.UID)
		require.NoError(t, err)
		assert.InDelta(t, 99.99, wallet.Balance, 0.0001)
	})

	t.Run("Should move the money, mark the milestone paid and mail a receipt", func(t *testing.T) {
		mailer := &mockMailer{}
		m := newMarketWith(t, nil, nil, mailer)
		m.addProfile(t, freelancer, "ann@example.com")
		job := m.contract(t, 100, 50)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)
		_, err := m.milestones.Deposit(ctx, client.UID, 120)
		require.NoError(t, err)

		mailer.On("SendPaymentReceipt", mock.Anything, mock.MatchedBy(func(n domain.ReceiptNotice) bool {
			return n.Email == "ann@example.com" && n.JobTitle == job.Title && n.Receipt.Amount == 100
		})).Return(nil).Once()

		receipt, err := m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
		require.NoError(t, err)
		assert.Equal(t, 20.0, receipt.ClientBalance)
		assert.Equal(t, 100.0, receipt.FreelancerBalance)
		assert.Equal(t, domain.MilestonePaid, receipt.Milestone.Status)
		mailer.AssertExpectations(t)

		stored, err := m.appRepo.GetAccepted(ctx, job.ID, freelancer.UID)
		require.NoError(t, err)
		assert.Equal(t, domain.MilestonePaid, stored.JobMilestones[0].Status)
		assert.Equal(t, domain.MilestonePending, stored.JobMilestones[1].Status)

		clientWallet, _ := m.milestones.GetWallet(ctx, client.UID)
		require.Len(t, clientWallet.Ledger, 2)
		assert.Equal(t, domain.WalletDebit, clientWallet.Ledger[0].Type)
		assert.Equal(t, domain.WalletCredit, clientWallet.Ledger[1].Type)

		freelancerWallet, _ := m.milestones.GetWallet(ctx, freelancer.UID)
		require.Len(t, freelancerWallet.Ledger, 1)
		assert.Equal(t, domain.MilestonePath(domain.AcceptedPath(job.ID, freelancer.UID), 0), freelancerWallet.Ledger[0].Reference)

		_, err = m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
		assertCode(t, err, http.StatusConflict)
	})

	t.Run("Should charge once when the same milestone is paid concurrently", func(t *testing.T) {
		m := newMarket(t)
		job := m.contract(t, 100)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)
		_, err := m.milestones.Deposit(ctx, client.UID, 1000)
		require.NoError(t, err)

		const payers = 20
		errs := make([]error, payers)
		var wg sync.WaitGroup
		for i := range payers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
			}()
		}
		wg.Wait()

		var paid int
		for _, err := range errs {
			if err == nil {
				paid++
				continue
			}
			assertCode(t, err, http.StatusConflict)
		}
		assert.Equal(t, 1, paid)

		clientWallet, err := m.milestones.GetWallet(ctx, client.UID)
		require.NoError(t, err)
		assert.Equal(t, 900.0, clientWallet.Balance)
		freelancerWallet, err := m.milestones.GetWallet(ctx, freelancer.UID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, freelancerWallet.Balance)
	})

	t.Run("Should leave the milestone Done when the debit is refused", func(t *testing.T) {
		m := newMarketWith(t, nil, drainedWallet{LocalStore: memory.NewLocalStore()}, nil)
		job := m.contract(t, 100)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)
		_, err := m.milestones.Deposit(ctx, client.UID, 100)
		require.NoError(t, err)

		_, err = m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
		assertCode(t, err, http.StatusBadRequest)

		stored, err := m.appRepo.GetAccepted(ctx, job.ID, freelancer.UID)
		require.NoError(t, err)
		assert.Equal(t, domain.MilestoneDone, stored.JobMilestones[0].Status)
	})

	t.Run("Should still succeed when the receipt cannot be sent", func(t *testing.T) {
		mailer := &mockMailer{}
		m := newMarketWith(t, nil, nil, mailer)
		m.addProfile(t, freelancer, "ann@example.com")
		job := m.contract(t, 100)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)
		_, _ = m.milestones.Deposit(ctx, client.UID, 100)

		mailer.On("SendPaymentReceipt", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		_, err := m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
		require.NoError(t, err)
		mailer.AssertExpectations(t)
	})

	t.Run("Should refund the client when the freelancer cannot be credited", func(t *testing.T) {
		local := memory.NewLocalStore()
		m := newMarketWith(t, nil, brokenCredit{LocalStore: local, uid: freelancer.UID}, nil)
		job := m.contract(t, 100)
		m.advance(t, job.ID, 0, domain.MilestoneInProgress, domain.MilestoneDone)
		_, err := m.milestones.Deposit(ctx, client.UID, 150)
		require.NoError(t, err)

		_, err = m.milestones.PayMilestone(ctx, client, job.ID, freelancer.UID, 0, 100)
		assertCode(t, err, http.StatusInternalServerError)

		wallet, err := m.milestones.GetWallet(ctx, client.UID)
		require.NoError(t, err)
		assert.Equal(t, 150.0, wallet.Balance)
		assert.Equal(t, domain.WalletRefund, wallet.Ledger[0].Type)

		stored, err := m.appRepo.GetAccepted(ctx, job.ID, freelancer.UID)
		require.NoError(t, err)
		assert.Equal(t, domain.MilestoneDone, stored.JobMilestones[0].Status)
	})
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Should refuse a non-positive amount", func(t *testing.T) {
		m := newMarket(t)
		_, err := m.milestones.Deposit(ctx, client.UID, -5)
		assertCode(t, err, http.StatusBadRequest)
	})

	t.Run("Should credit the wallet and record it", func(t *testing.T) {
		m := newMarket(t)
		_, _ = m.milestones.Deposit(ctx, client.UID, 25)

		wallet, err := m.milestones.Deposit(ctx, client.UID, 75)
		require.NoError(t, err)
		assert.Equal(t, 100.0, wallet.Balance)
		require.Len(t, wallet.Ledger, 2)
		assert.Equal(t, 75.0, wallet.Ledger[0].Amount)
		assert.Equal(t, 100.0, wallet.Ledger[0].Balance)
	})
}

// brokenCredit refuses to credit uid.
type brokenCredit struct {
	*memory.LocalStore
	uid string
}

func (b brokenCredit) Credit(ctx context.Context, uid string, amount float64) (float64, error) {
	if uid == b.uid {
		return 0, errors.New("wallet unavailable")
	}
	return b.LocalStore.Credit(ctx, uid, amount)
}

// drainedWallet reports a balance but refuses every debit, as if another
// payment emptied it first.
type drainedWallet struct {
	*memory.LocalStore
}

func (drainedWallet) Debit(context.Context, string, float64) (float64, error) {
	return 0, domain.ErrInsufficientFunds
}
