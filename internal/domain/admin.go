package domain

import "context"

// UsersByRole counts profiles per role.
type UsersByRole struct {
	Client     int64 `json:"client"`
	Freelancer int64 `json:"freelancer"`
	Admin      int64 `json:"admin"`
	Unknown    int64 `json:"unknown"`
}

// UserDirectory is the admin view of all profiles, classified by role.
type UserDirectory struct {
	Clients     []UserProfile `json:"clients"`
	Freelancers []UserProfile `json:"freelancers"`
	Admins      []UserProfile `json:"admins"`
	Counts      UsersByRole   `json:"counts"`
}

type ApplicationsByStatus struct {
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// ClientStats summarises the jobs a client has posted.
type ClientStats struct {
	JobsPosted     int64   `json:"jobsPosted"`
	ActiveJobs     int64   `json:"activeJobs"`
	CompletedJobs  int64   `json:"completedJobs"`
	TotalSpent     float64 `json:"totalSpent"`
	CompletionRate float64 `json:"completionRate"`
	Display        Display `json:"display"`
}

// FreelancerStats summarises the contracts a freelancer has won.
type FreelancerStats struct {
	Jobs                int64   `json:"jobs"`
	ActiveJobs          int64   `json:"activeJobs"`
	CompletedJobs       int64   `json:"completedJobs"`
	PendingApplications int64   `json:"pendingApplications"`
	RejectedApplication int64   `json:"rejectedApplications"`
	TotalEarned         float64 `json:"totalEarned"`
	CompletionRate      float64 `json:"completionRate"`
	Display             Display `json:"display"`
}

// AdminStats is the platform-wide report.
type AdminStats struct {
	TotalUsers     int64                `json:"totalUsers"`
	UsersByRole    UsersByRole          `json:"usersByRole"`
	TotalJobs      int64                `json:"totalJobs"`
	ActiveJobs     int64                `json:"activeJobs"`
	CompletedJobs  int64                `json:"completedJobs"`
	Applications   ApplicationsByStatus `json:"applications"`
	TotalPaid      float64              `json:"totalPaid"`
	CompletionRate float64              `json:"completionRate"`
	Display        Display              `json:"display"`
}

// Display carries preformatted strings for dashboards.
type Display struct {
	CompletionRate string `json:"completionRate"`
	Total          string `json:"total"`
}

// Export formats for the contract ledger.
const (
	ExportXLSX = "xlsx"
	ExportCSV  = "csv"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type ReportUsecase interface {
	ClientReport(ctx context.Context, clientUID string) (*ClientStats, error)
	FreelancerReport(ctx context.Context, freelancerUID string) (*FreelancerStats, error)
	AdminReport(ctx context.Context, actor Actor) (*AdminStats, error)
	// ExportLedger renders every job's milestones, one row per milestone,
	// as a spreadsheet or CSV. Admin only.
	ExportLedger(ctx context.Context, actor Actor, format string) (*ExportFile, error)
}
