package usecase_test

import (
	"context"
	"testing"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/document"
	"go-freelance-backend/internal/repository/memory"
	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	client     = domain.Actor{UID: "client-1", Role: domain.RoleClient}
	freelancer = domain.Actor{UID: "free-1", Role: domain.RoleFreelancer}
	rival      = domain.Actor{UID: "free-2", Role: domain.RoleFreelancer}
	admin      = domain.Actor{UID: "admin-1", Role: domain.RoleAdmin}
)

// market wires every usecase over in-memory stores.
type market struct {
	store    *memory.TreeStore
	local    *memory.LocalStore
	jobRepo  domain.JobRepository
	appRepo  domain.ApplicationRepository
	profiles domain.ProfileRepository

	jobs       domain.JobUsecase
	apps       domain.ApplicationUsecase
	milestones domain.MilestoneUsecase
	reports    domain.ReportUsecase
}

func newMarket(t *testing.T) *market {
	return newMarketWith(t, nil, nil, nil)
}

// newMarketWith lets a test swap the application repository or wallet store
// for a failing one and plug in a mailer.
func newMarketWith(t *testing.T, wrapApps func(domain.ApplicationRepository) domain.ApplicationRepository, wallets domain.WalletStore, mailer domain.ReceiptMailer) *market {
	t.Helper()

	m := &market{store: memory.NewTreeStore(), local: memory.NewLocalStore()}
	m.jobRepo = document.NewJobRepository(m.store)
	m.appRepo = document.NewApplicationRepository(m.store)
	m.profiles = document.NewProfileRepository(m.store)

	appRepo := m.appRepo
	if wrapApps != nil {
		appRepo = wrapApps(appRepo)
	}
	if wallets == nil {
		wallets = m.local
	}

	v := validation.New()
	m.jobs = usecase.NewJobUsecase(m.jobRepo, appRepo, v, 3)
	m.apps = usecase.NewApplicationUsecase(appRepo, m.jobRepo, m.profiles, v, 1)
	m.milestones = usecase.NewMilestoneUsecase(appRepo, m.jobRepo, m.profiles, wallets, mailer, 1)
	m.reports = usecase.NewReportUsecase(m.jobRepo, appRepo, m.profiles)
	return m
}

func jobInput(amounts ...float64) domain.JobInput {
	input := domain.JobInput{
		Title:       "Logo design",
		Description: "A logo for a bakery",
		Category:    "Design",
		Budget:      0,
		Deadline:    "2026-12-01",
	}
	for _, a := range amounts {
		input.Budget += domain.Amount(a)
		input.Milestones = append(input.Milestones, domain.Milestone{
			Description: "Draft",
			Amount:      domain.Amount(a),
			DueDate:     "2026-11-01",
		})
	}
	return input
}

func applicationInput() domain.ApplicationInput {
	return domain.ApplicationInput{
		Name:       "Ann",
		Surname:    "Lee",
		Motivation: "I love logos",
		Skills:     "Illustrator",
	}
}

func (m *market) postJob(t *testing.T, amounts ...float64) *domain.Job {
	t.Helper()
	job, err := m.jobs.CreateJob(context.Background(), client, jobInput(amounts...))
	require.NoError(t, err)
	return job
}

func (m *market) apply(t *testing.T, actor domain.Actor, jobID string) {
	t.Helper()
	_, err := m.apps.Apply(context.Background(), actor, jobID, applicationInput())
	require.NoError(t, err)
}

func (m *market) addProfile(t *testing.T, actor domain.Actor, email string) {
	t.Helper()
	require.NoError(t, m.profiles.Create(context.Background(), &domain.UserProfile{
		UID:   actor.UID,
		Name:  "Ann Lee",
		Email: email,
		Role:  actor.Role,
	}))
}

// contract posts a job, has freelancer win it and returns the job.
func (m *market) contract(t *testing.T, amounts ...float64) *domain.Job {
	t.Helper()
	job := m.postJob(t, amounts...)
	m.apply(t, freelancer, job.ID)
	_, err := m.apps.AcceptApplicant(context.Background(), client, job.ID, freelancer.UID)
	require.NoError(t, err)
	return job
}

func (m *market) advance(t *testing.T, jobID string, index int, statuses ...domain.MilestoneStatus) {
	t.Helper()
	for _, s := range statuses {
		_, err := m.milestones.AdvanceMilestone(context.Background(), freelancer, jobID, freelancer.UID, index, s)
		require.NoError(t, err)
	}
}

func assertCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperror.CodeOf(err), err.Error())
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendPaymentReceipt(ctx context.Context, notice domain.ReceiptNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

type mockIconStore struct {
	mock.Mock
}

func (m *mockIconStore) PutIcon(ctx context.Context, uid string, jpeg []byte) (string, error) {
	args := m.Called(ctx, uid, jpeg)
	return args.String(0), args.Error(1)
}
