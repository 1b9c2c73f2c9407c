package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/metrics"
	"go-freelance-backend/pkg/security"
)

// amountTolerance absorbs float noise when comparing money amounts.
const amountTolerance = 0.005

type milestoneUsecase struct {
	appRepo     domain.ApplicationRepository
	jobRepo     domain.JobRepository
	profileRepo domain.ProfileRepository
	wallets     domain.WalletStore
	mailer      domain.ReceiptMailer
	attempts    int
	audit       *security.SecurityLogger
}

// NewMilestoneUsecase mails payment receipts through mailer when it is
// non-nil.
func NewMilestoneUsecase(appRepo domain.ApplicationRepository, jobRepo domain.JobRepository, profileRepo domain.ProfileRepository, wallets domain.WalletStore, mailer domain.ReceiptMailer, attempts int) domain.MilestoneUsecase {
	return &milestoneUsecase{
		appRepo:     appRepo,
		jobRepo:     jobRepo,
		profileRepo: profileRepo,
		wallets:     wallets,
		mailer:      mailer,
		attempts:    attempts,
		audit:       security.DefaultLogger(),
	}
}

// contractMilestone loads the accepted application and the milestone at index.
func (u *milestoneUsecase) contractMilestone(ctx context.Context, jobID, applicantID string, index int) (*domain.Application, domain.Milestone, error) {
	contract, err := u.appRepo.GetAccepted(ctx, jobID, applicantID)
	if err != nil {
		return nil, domain.Milestone{}, notFoundOr(err, "Contract not found")
	}
	if index < 0 || index >= len(contract.JobMilestones) {
		return nil, domain.Milestone{}, apperror.NotFound("Milestone not found")
	}
	return contract, contract.JobMilestones[index], nil
}

func (u *milestoneUsecase) AdvanceMilestone(ctx context.Context, actor domain.Actor, jobID, applicantID string, index int, status domain.MilestoneStatus) (*domain.Application, error) {
	switch status {
	case domain.MilestoneInProgress, domain.MilestoneDone:
	case domain.MilestonePaid:
		return nil, apperror.BadRequest("Milestones become Paid through payment")
	default:
		return nil, apperror.BadRequest(fmt.Sprintf("Unknown milestone status %q", status))
	}

	contract, milestone, err := u.contractMilestone(ctx, jobID, applicantID, index)
	if err != nil {
		return nil, err
	}
	if contract.ApplicantUID != actor.UID {
		return nil, apperror.Forbidden("Only the contracted freelancer can update milestones")
	}
	if !milestone.Status.CanAdvanceTo(status) {
		return nil, apperror.Conflict(fmt.Sprintf("Cannot move milestone from %s to %s", milestone.Status, status))
	}

	err = u.appRepo.TransitionMilestone(ctx, jobID, applicantID, index, milestone.Status, status)
	if errors.Is(err, domain.ErrStaleValue) {
		return nil, apperror.Conflict("Milestone was changed by another request")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	touchIndexes(ctx, u.jobRepo, u.appRepo, contract.ClientUID, applicantID, jobID, nowMillis())

	contract.JobMilestones[index].Status = status
	logger.Log.Info("Milestone advanced", "job_id", jobID, "applicant_uid", applicantID, "index", index, "status", status)
	return contract, nil
}

// PayMilestone moves the milestone amount from the client's wallet to the
// freelancer's and marks the milestone Paid.
func (u *milestoneUsecase) PayMilestone(ctx context.Context, actor domain.Actor, jobID, applicantID string, index int, amount float64) (*domain.PaymentReceipt, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, apperror.BadRequest("Amount must be greater than 0")
	}

	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, notFoundOr(err, "Job not found")
	}
	if job.ClientUID != actor.UID {
		return nil, apperror.Forbidden("Only the job owner can pay milestones")
	}

	_, milestone, err := u.contractMilestone(ctx, jobID, applicantID, index)
	if err != nil {
		return nil, err
	}
	switch milestone.Status {
	case domain.MilestoneDone:
	case domain.MilestonePaid:
		return nil, apperror.Conflict("Milestone is already paid")
	default:
		return nil, apperror.Conflict("Milestone must be Done before it can be paid")
	}
	if math.Abs(amount-milestone.Amount.Float()) > amountTolerance {
		return nil, apperror.BadRequest(fmt.Sprintf("Amount must equal the milestone amount of %s", FormatCurrency(milestone.Amount.Float())))
	}

	balance, err := u.wallets.Balance(ctx, actor.UID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if balance < amount {
		return nil, apperror.BadRequest("Insufficient funds")
	}

	reference := domain.MilestonePath(domain.AcceptedPath(jobID, applicantID), index)
	receipt := &domain.PaymentReceipt{
		JobID:          jobID,
		ApplicantID:    applicantID,
		MilestoneIndex: index,
		Amount:         amount,
	}

	saga := Saga{
		Name:     "pay_milestone",
		Attempts: u.attempts,
		Steps: []Step{
			{
				// Claims the milestone before any wallet moves.
				Name: "mark-paid",
				Do: func(ctx context.Context) error {
					err := u.appRepo.TransitionMilestone(ctx, jobID, applicantID, index, domain.MilestoneDone, domain.MilestonePaid)
					if errors.Is(err, domain.ErrStaleValue) {
						return apperror.Conflict("Milestone is already paid")
					}
					return err
				},
				Compensate: func(ctx context.Context) error {
					return u.appRepo.TransitionMilestone(ctx, jobID, applicantID, index, domain.MilestonePaid, domain.MilestoneDone)
				},
			},
			{
				Name: "debit-client",
				Do: func(ctx context.Context) error {
					bal, err := u.wallets.Debit(ctx, actor.UID, amount)
					if errors.Is(err, domain.ErrInsufficientFunds) {
						return apperror.BadRequest("Insufficient funds")
					}
					if err != nil {
						return err
					}
					receipt.ClientBalance = bal
					u.record(ctx, actor.UID, domain.WalletDebit, amount, bal, reference, "Milestone payment to "+applicantID)
					return nil
				},
				Compensate: func(ctx context.Context) error {
					bal, err := u.wallets.Credit(ctx, actor.UID, amount)
					if err != nil {
						return err
					}
					u.record(ctx, actor.UID, domain.WalletRefund, amount, bal, reference, "Refund of failed milestone payment")
					return nil
				},
			},
			{
				Name: "credit-freelancer",
				Do: func(ctx context.Context) error {
					bal, err := u.wallets.Credit(ctx, applicantID, amount)
					if err != nil {
						return err
					}
					receipt.FreelancerBalance = bal
					u.record(ctx, applicantID, domain.WalletCredit, amount, bal, reference, "Milestone payment from "+actor.UID)
					return nil
				},
			},
		},
	}

	if err := saga.Run(ctx); err != nil {
		u.audit.LogUserEvent(ctx, security.EventPaymentFailed, actor.UID, map[string]any{
			"reference": reference, "amount": amount, "error": err.Error(),
		})
		return nil, apperror.Wrap(err)
	}
	touchIndexes(ctx, u.jobRepo, u.appRepo, job.ClientUID, applicantID, jobID, nowMillis())
	u.audit.LogUserEvent(ctx, security.EventMilestonePaid, actor.UID, map[string]any{
		"reference": reference, "amount": amount, "payee": security.HashValue(applicantID),
	})

	milestone.Status = domain.MilestonePaid
	receipt.Milestone = milestone
	logger.Log.Info("Milestone paid", "job_id", jobID, "applicant_uid", applicantID, "index", index, "amount", amount)
	u.mailReceipt(ctx, job.Title, *receipt)
	return receipt, nil
}

// mailReceipt tells the freelancer about the payment. The money has already
// moved, so failures are only logged.
func (u *milestoneUsecase) mailReceipt(ctx context.Context, jobTitle string, receipt domain.PaymentReceipt) {
	if u.mailer == nil {
		return
	}
	profile, err := u.profileRepo.GetByID(ctx, receipt.ApplicantID)
	if err != nil {
		logger.Log.Warn("Skipping payment receipt", "applicant_uid", receipt.ApplicantID, "error", err)
		return
	}
	err = u.mailer.SendPaymentReceipt(ctx, domain.ReceiptNotice{
		Name:     profile.Name,
		Email:    profile.Email,
		JobTitle: jobTitle,
		Receipt:  receipt,
	})
	if err != nil {
		logger.Log.Warn("Failed to send payment receipt", "applicant_uid", receipt.ApplicantID, "error", err)
	}
}

// record appends a ledger entry. The balance has already moved, so a failed
// append is only logged.
func (u *milestoneUsecase) record(ctx context.Context, uid string, kind domain.WalletEntryType, amount, balance float64, reference, description string) {
	metrics.IncrementWalletMovement(string(kind))
	entry := domain.WalletEntry{
		Type:        kind,
		Amount:      amount,
		Balance:     balance,
		Reference:   reference,
		Description: description,
		CreatedAt:   nowMillis(),
	}
	if err := u.wallets.AppendLedger(ctx, uid, entry); err != nil {
		logger.Log.Warn("Failed to append wallet ledger", "uid", uid, "type", kind, "error", err)
	}
}

func (u *milestoneUsecase) GetWallet(ctx context.Context, uid string) (*domain.Wallet, error) {
	balance, err := u.wallets.Balance(ctx, uid)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	ledger, err := u.wallets.Ledger(ctx, uid)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &domain.Wallet{UID: uid, Balance: balance, Ledger: ledger}, nil
}

func (u *milestoneUsecase) Deposit(ctx context.Context, uid string, amount float64) (*domain.Wallet, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, apperror.BadRequest("Amount must be greater than 0")
	}
	balance, err := u.wallets.Credit(ctx, uid, amount)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	u.record(ctx, uid, domain.WalletCredit, amount, balance, "", "Deposit")
	u.audit.LogUserEvent(ctx, security.EventWalletDeposit, uid, map[string]any{"amount": amount})
	return u.GetWallet(ctx, uid)
}
