package usecase

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/logger"
)

type reportUsecase struct {
	jobRepo     domain.JobRepository
	appRepo     domain.ApplicationRepository
	profileRepo domain.ProfileRepository
}

func NewReportUsecase(jobRepo domain.JobRepository, appRepo domain.ApplicationRepository, profileRepo domain.ProfileRepository) domain.ReportUsecase {
	return &reportUsecase{
		jobRepo:     jobRepo,
		appRepo:     appRepo,
		profileRepo: profileRepo,
	}
}

// CompletionRate is completed/total as a percentage rounded to two decimals,
// 0 when total is 0.
func CompletionRate(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

// FormatPercent renders a rate without trailing zeros: 0 → "0%", 66.67 → "66.67%".
func FormatPercent(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*100)/100, 'f', -1, 64) + "%"
}

// FormatCurrency renders a dollar amount with thousands separators and cents
// only when there are any: 0 → "$0", 1234.5 → "$1,234.50".
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	cents := int64(math.Round(amount * 100))
	whole, frac := cents/100, cents%100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := sign + "$" + b.String()
	if frac != 0 {
		out += "." + strconv.FormatInt(frac+100, 10)[1:]
	}
	return out
}

func display(rate, total float64) domain.Display {
	return domain.Display{CompletionRate: FormatPercent(rate), Total: FormatCurrency(total)}
}

// ClassifyUsers counts and groups profiles by role. Profiles with an
// unrecognised role are counted as unknown and left out of the groups.
func ClassifyUsers(profiles []domain.UserProfile) *domain.UserDirectory {
	dir := &domain.UserDirectory{
		Clients:     []domain.UserProfile{},
		Freelancers: []domain.UserProfile{},
		Admins:      []domain.UserProfile{},
	}
	for _, p := range profiles {
		switch p.Role {
		case domain.RoleClient:
			dir.Clients = append(dir.Clients, p)
			dir.Counts.Client++
		case domain.RoleFreelancer:
			dir.Freelancers = append(dir.Freelancers, p)
			dir.Counts.Freelancer++
		case domain.RoleAdmin:
			dir.Admins = append(dir.Admins, p)
			dir.Counts.Admin++
		default:
			dir.Counts.Unknown++
		}
	}
	return dir
}

// jobMilestones picks the ledger of the job's accepted application when one
// exists, else the job's own milestone list.
func jobMilestones(job domain.Job, accepted []domain.Application) []domain.Milestone {
	if len(accepted) > 0 {
		return accepted[0].JobMilestones
	}
	return job.Milestones
}

func (u *reportUsecase) ClientReport(ctx context.Context, clientUID string) (*domain.ClientStats, error) {
	empty := &domain.ClientStats{Display: display(0, 0)}

	jobs, err := u.jobRepo.FetchByClient(ctx, clientUID)
	if err != nil {
		logger.Log.Error("Failed to load client jobs for report", "client_uid", clientUID, "error", err)
		return empty, apperror.Internal(err)
	}

	stats := &domain.ClientStats{JobsPosted: int64(len(jobs))}
	for _, job := range jobs {
		accepted, err := u.appRepo.ListAcceptedByJob(ctx, job.ID)
		if err != nil {
			logger.Log.Error("Failed to load accepted applications for report", "job_id", job.ID, "error", err)
			return empty, apperror.Internal(err)
		}
		milestones := jobMilestones(job, accepted)
		if domain.IsActive(milestones) {
			stats.ActiveJobs++
		} else {
			stats.CompletedJobs++
		}
		stats.TotalSpent += domain.PaidTotal(milestones)
	}

	stats.CompletionRate = CompletionRate(stats.CompletedJobs, stats.JobsPosted)
	stats.Display = display(stats.CompletionRate, stats.TotalSpent)
	return stats, nil
}

func (u *reportUsecase) FreelancerReport(ctx context.Context, freelancerUID string) (*domain.FreelancerStats, error) {
	empty := &domain.FreelancerStats{Display: display(0, 0)}

	contracts, err := u.appRepo.ListAcceptedByApplicant(ctx, freelancerUID)
	if err != nil {
		logger.Log.Error("Failed to load contracts for report", "uid", freelancerUID, "error", err)
		return empty, apperror.Internal(err)
	}
	apps, err := u.appRepo.ListByApplicant(ctx, freelancerUID)
	if err != nil {
		logger.Log.Error("Failed to load applications for report", "uid", freelancerUID, "error", err)
		return empty, apperror.Internal(err)
	}

	stats := &domain.FreelancerStats{Jobs: int64(len(contracts))}
	for _, c := range contracts {
		if domain.IsActive(c.JobMilestones) {
			stats.ActiveJobs++
		} else {
			stats.CompletedJobs++
		}
		stats.TotalEarned += domain.PaidTotal(c.JobMilestones)
	}
	for _, a := range apps {
		switch a.Status {
		case domain.ApplicationStatusPending:
			stats.PendingApplications++
		case domain.ApplicationStatusRejected:
			stats.RejectedApplication++
		}
	}

	stats.CompletionRate = CompletionRate(stats.CompletedJobs, stats.Jobs)
	stats.Display = display(stats.CompletionRate, stats.TotalEarned)
	return stats, nil
}

func (u *reportUsecase) AdminReport(ctx context.Context, actor domain.Actor) (*domain.AdminStats, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperror.Forbidden("Only admins can view platform reports")
	}
	empty := &domain.AdminStats{Display: display(0, 0)}

	profiles, err := u.profileRepo.List(ctx)
	if err != nil {
		logger.Log.Error("Failed to load profiles for report", "error", err)
		return empty, apperror.Internal(err)
	}
	jobs, err := u.jobRepo.Fetch(ctx)
	if err != nil {
		logger.Log.Error("Failed to load jobs for report", "error", err)
		return empty, apperror.Internal(err)
	}
	accepted, err := u.appRepo.ListAccepted(ctx)
	if err != nil {
		logger.Log.Error("Failed to load contracts for report", "error", err)
		return empty, apperror.Internal(err)
	}
	apps, err := u.appRepo.ListAll(ctx)
	if err != nil {
		logger.Log.Error("Failed to load applications for report", "error", err)
		return empty, apperror.Internal(err)
	}

	byJob := make(map[string][]domain.Application, len(accepted))
	for _, a := range accepted {
		byJob[a.JobID] = append(byJob[a.JobID], a)
	}

	dir := ClassifyUsers(profiles)
	stats := &domain.AdminStats{
		TotalUsers:  int64(len(profiles)),
		UsersByRole: dir.Counts,
		TotalJobs:   int64(len(jobs)),
	}
	for _, job := range jobs {
		milestones := jobMilestones(job, byJob[job.ID])
		if domain.IsActive(milestones) {
			stats.ActiveJobs++
		} else {
			stats.CompletedJobs++
		}
		stats.TotalPaid += domain.PaidTotal(milestones)
	}
	for _, a := range apps {
		switch a.Status {
		case domain.ApplicationStatusPending:
			stats.Applications.Pending++
		case domain.ApplicationStatusAccepted:
			stats.Applications.Accepted++
		case domain.ApplicationStatusRejected:
			stats.Applications.Rejected++
		}
	}

	stats.CompletionRate = CompletionRate(stats.CompletedJobs, stats.TotalJobs)
	stats.Display = display(stats.CompletionRate, stats.TotalPaid)
	return stats, nil
}
