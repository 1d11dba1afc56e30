package models

import "time"

const (
	JobPostingActive   = "active"
	JobPostingArchived = "archived"
)

type JobPosting struct {
	ID               string    `json:"id"`
	JobTitle         string    `json:"job_title"`
	CompanyName      string    `json:"company_name"`
	CreatorID        string    `json:"creator_id"`
	Location         string    `json:"location"`
	SalaryRange      string    `json:"salary_range"`
	EmploymentType   string    `json:"employment_type"`
	ApplicantsNeeded int       `json:"applicants_needed"`
	Description      string    `json:"description"`
	Skills           []string  `json:"skills"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// JobPostingInput is the editable part of a posting.
type JobPostingInput struct {
	JobTitle         string   `json:"job_title"`
	CompanyName      string   `json:"company_name"`
	Location         string   `json:"location"`
	SalaryRange      string   `json:"salary_range"`
	EmploymentType   string   `json:"employment_type"`
	ApplicantsNeeded int      `json:"applicants_needed"`
	Description      string   `json:"description"`
	Skills           []string `json:"skills"`
}

// RecentJob is a posting with its applicant count, for the dashboard.
type RecentJob struct {
	ID              string    `json:"id"`
	JobTitle        string    `json:"job_title"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ApplicantsCount int       `json:"applicants_count"`
}

// RoleCount is how many applications one job title drew.
type RoleCount struct {
	JobTitle     string `json:"job_title"`
	Applications int    `json:"applications"`
}

// JobStats is an employer's dashboard summary.
type JobStats struct {
	Active              int         `json:"active"`
	Archived            int         `json:"archived"`
	TotalApplicants     int         `json:"total_applicants"`
	ApplicantsThisMonth int         `json:"applicants_this_month"`
	ApplicantsLastMonth int         `json:"applicants_last_month"`
	MonthlyChange       float64     `json:"monthly_change"`
	Shortlisted         int         `json:"shortlisted"`
	RecentJobs          []RecentJob `json:"recent_jobs"`
	PopularRoles        []RoleCount `json:"popular_roles"`
}

// JobPostingPage is one page of posting List results.
type JobPostingPage struct {
	Data       []JobPosting `json:"data"`
	Count      int          `json:"count"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
}
