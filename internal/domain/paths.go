package domain

import (
	"strconv"
	"strings"
)

// Top-level collections of the tree store.
const (
	CollectionJobs         = "jobs"
	CollectionApplications = "applications"
	CollectionAccepted     = "accepted_applications"
	CollectionRejected     = "rejected_applications"
	CollectionProfiles     = "Information"

	// Per-user indexes so list queries do not download whole collections.
	IndexClientJobs    = "client_jobs"
	IndexApplicantJobs = "applicant_jobs"
)

// JoinPath joins path segments with "/", skipping empty ones.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// SplitPath returns the non-empty segments of path.
func SplitPath(path string) []string {
	raw := strings.Split(path, "/")
	segments := raw[:0]
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func JobPath(jobID string) string {
	return JoinPath(CollectionJobs, jobID)
}

func ApplicationsPath(jobID string) string {
	return JoinPath(CollectionApplications, jobID)
}

func ApplicationPath(jobID, applicantID string) string {
	return JoinPath(CollectionApplications, jobID, applicantID)
}

func AcceptedPath(jobID, applicantID string) string {
	return JoinPath(CollectionAccepted, jobID, applicantID)
}

func RejectedPath(jobID, applicantID string) string {
	return JoinPath(CollectionRejected, jobID, applicantID)
}

func ProfilePath(uid string) string {
	return JoinPath(CollectionProfiles, uid)
}

func ClientJobIndexPath(clientUID, jobID string) string {
	return JoinPath(IndexClientJobs, clientUID, jobID)
}

func ApplicantJobIndexPath(applicantUID, jobID string) string {
	return JoinPath(IndexApplicantJobs, applicantUID, jobID)
}

// MilestonePath addresses one milestone of an application ledger.
func MilestonePath(applicationPath string, index int) string {
	return JoinPath(applicationPath, "job_milestones", strconv.Itoa(index))
}
