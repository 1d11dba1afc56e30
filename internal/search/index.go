// Package search indexes submitted applications in Elasticsearch and
// resolves employer search text to application ids.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/models"
)

const DefaultIndex = "applications"

// searchFields are boosted the way employers scan a list: names first.
var searchFields = []string{
	"given_name^3", "family_name^3", "email^2", "company^2",
	"job_titles^2", "skills^2", "employers", "schools", "resume_text",
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "applicant_id":   {"type": "keyword"},
      "job_posting_id": {"type": "keyword"},
      "company":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "given_name":     {"type": "text"},
      "family_name":    {"type": "text"},
      "email":          {"type": "text"},
      "job_titles":     {"type": "text"},
      "employers":      {"type": "text"},
      "schools":        {"type": "text"},
      "skills":         {"type": "text"},
      "resume_text":    {"type": "text"},
      "status":         {"type": "keyword"},
      "created_at":     {"type": "date"}
    }
  }
}`

// Document is the indexed projection of an application.
type Document struct {
	ApplicantID  string    `json:"applicant_id"`
	JobPostingID string    `json:"job_posting_id,omitempty"`
	Company      string    `json:"company"`
	GivenName    string    `json:"given_name"`
	FamilyName   string    `json:"family_name"`
	Email        string    `json:"email"`
	JobTitles    []string  `json:"job_titles"`
	Employers    []string  `json:"employers"`
	Schools      []string  `json:"schools"`
	Skills       []string  `json:"skills"`
	ResumeText   string    `json:"resume_text,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type Index struct {
	client *elasticsearch.Client
	name   string
	logger logger.Logger
}

func NewIndex(client *elasticsearch.Client, name string, log logger.Logger) *Index {
	if name == "" {
		name = DefaultIndex
	}
	return &Index{
		client: client,
		name:   name,
		logger: log.WithFields(map[string]interface{}{"component": "search", "index": name}),
	}
}

func (i *Index) Name() string { return i.name }

// EnsureIndex creates the index with its mapping unless it already exists.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("create index: %s", res.String()))
	}
	i.logger.Info("search index ready", nil)
	return nil
}

// NewDocument projects app into its indexed form.
func NewDocument(app *models.Application, resumeText string) Document {
	doc := Document{
		ApplicantID: app.ApplicantID,
		Company:     app.Company,
		GivenName:   app.PersonalInfo.GivenName,
		FamilyName:  app.PersonalInfo.FamilyName,
		Email:       app.ContactInfo.Email,
		JobTitles:   []string{},
		Employers:   []string{},
		Schools:     []string{},
		Skills:      app.Skills,
		ResumeText:  resumeText,
		Status:      string(app.Status),
		CreatedAt:   app.CreatedAt,
	}
	if app.JobPostingID != nil {
		doc.JobPostingID = *app.JobPostingID
	}
	if doc.Skills == nil {
		doc.Skills = []string{}
	}
	for _, w := range app.WorkExperience {
		doc.JobTitles = append(doc.JobTitles, w.JobTitle)
		doc.Employers = append(doc.Employers, w.Company)
	}
	for _, e := range app.Education {
		doc.Schools = append(doc.Schools, e.School)
	}
	return doc
}

// IndexApplication writes app under its id. Resume text is included when
// the file is a readable PDF or DOCX; extraction failures only drop it.
func (i *Index) IndexApplication(ctx context.Context, app *models.Application, resume []byte, contentType string) error {
	var text string
	if len(resume) > 0 {
		t, err := ExtractText(resume, contentType)
		if err != nil {
			i.logger.Debug("resume text not extracted", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
		} else {
			text = t
		}
	}

	body, err := json.Marshal(NewDocument(app, text))
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}

	req := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: app.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("index %s: %s", app.ID, res.String()))
	}
	return nil
}

// UpdateStatus keeps the indexed status in step with the database.
func (i *Index) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	body, _ := json.Marshal(map[string]interface{}{
		"doc": map[string]string{"status": string(status)},
	})
	req := esapi.UpdateRequest{
		Index:      i.name,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("update %s: %s", id, res.String()))
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchIDs returns up to limit application ids ranked by relevance.
func (i *Index) SearchIDs(ctx context.Context, query string, limit int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}

	body, _ := json.Marshal(map[string]interface{}{
		"_source": false,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    searchFields,
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	})

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
		i.client.Search.WithSize(limit),
	)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("search: %s", res.String()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	ids := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
