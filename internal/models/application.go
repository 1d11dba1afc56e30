package models

import "time"

// ApplicationPayload is the persisted shape of one submitted application.
// Field names follow the applications table.
type ApplicationPayload struct {
	ApplicantID          string             `json:"applicant_id"`
	JobPostingID         *string            `json:"job_posting_id"`
	Company              string             `json:"company"`
	PersonalInfo         PersonalInfo       `json:"personal_info"`
	ContactInfo          ContactInfo        `json:"contact_info"`
	Address              Address            `json:"address"`
	PreviousEmployment   PreviousEmployment `json:"previous_employment"`
	WorkExperience       []WorkExperience   `json:"work_experience"`
	NoWorkExperience     bool               `json:"no_work_experience"`
	Education            []Education        `json:"education"`
	Skills               []string           `json:"skills"`
	Websites             []string           `json:"websites"`
	LinkedIn             string             `json:"linkedin"`
	ApplicationQuestions map[string]string  `json:"application_questions"`
	TermsAccepted        bool               `json:"terms_accepted"`
	ResumeURL            *string            `json:"resume_url"`
	Status               ApplicationStatus  `json:"status"`
}

type PersonalInfo struct {
	GivenName  string `json:"given_name"`
	MiddleName string `json:"middle_name"`
	FamilyName string `json:"family_name"`
	Suffix     string `json:"suffix"`
}

type ContactInfo struct {
	Email       string `json:"email"`
	PhoneType   string `json:"phone_type"`
	PhoneCode   string `json:"phone_code"`
	PhoneNumber string `json:"phone_number"`
}

type Address struct {
	Street            string `json:"street"`
	AdditionalAddress string `json:"additional_address"`
	City              string `json:"city"`
	Province          string `json:"province"`
	PostalCode        string `json:"postal_code"`
	Country           string `json:"country"`
}

type PreviousEmployment struct {
	PreviouslyEmployed bool   `json:"previously_employed"`
	EmployeeID         string `json:"employee_id"`
	Manager            string `json:"manager"`
}

type WorkExperience struct {
	JobTitle    string `json:"job_title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	FromDate    string `json:"from_date"`
	ToDate      string `json:"to_date"`
	CurrentWork bool   `json:"current_work"`
	Description string `json:"description"`
}

type Education struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	GPA          string `json:"gpa"`
	FromYear     string `json:"from_year"`
	ToYear       string `json:"to_year"`
}

// Application is a stored application row.
type Application struct {
	ID string `json:"id"`
	ApplicationPayload
	Shortlisted bool           `json:"shortlisted"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	JobPosting  *JobPostingRef `json:"job_posting,omitempty"`
}

// JobPostingRef is the job posting summary joined onto list results.
type JobPostingRef struct {
	JobTitle    string `json:"job_title"`
	CompanyName string `json:"company_name"`
	CreatorID   string `json:"creator_id,omitempty"`
}

// ApplicationPage is one page of List results.
type ApplicationPage struct {
	Data       []Application `json:"data"`
	Count      int           `json:"count"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}
