package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repositories bundles all repositories over one connection.
type Repositories struct {
	Prospects *ProspectRepository
	Projects  *ProjectRepository
	MiniSites *MiniSiteRepository
}

// NewRepositories creates all repositories.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Prospects: NewProspectRepository(db),
		Projects:  NewProjectRepository(db),
		MiniSites: NewMiniSiteRepository(db),
	}
}

// ProspectRepository handles prospect CRUD operations.
type ProspectRepository struct {
	db DB
}

// NewProspectRepository creates a new prospect repository.
func NewProspectRepository(db DB) *ProspectRepository {
	return &ProspectRepository{db: db}
}

const prospectColumns = `id, source_url, source_sha256, status, extracted_text, page_count,
	metadata, extracted_blocks, extracted_tables, extracted_images, classified_images,
	image_manifest, generated_title, generated_description, generated_sections, confidence,
	project_id, project_slug, minisite_id, minisite_slug, last_error, retry_count,
	created_at, updated_at`

// Create inserts a new prospect.
func (r *ProspectRepository) Create(ctx context.Context, p *Prospect) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	query := `
		INSERT INTO prospects (` + prospectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.SourceURL, p.SourceSHA256, string(p.Status), p.ExtractedText, p.PageCount,
		nullRaw(p.Metadata), nullRaw(p.ExtractedBlocks), nullRaw(p.ExtractedTables),
		nullRaw(p.ExtractedImages), nullRaw(p.ClassifiedImages), nullRaw(p.ImageManifest),
		p.GeneratedTitle, p.GeneratedDescription, nullRaw(p.GeneratedSections), p.Confidence,
		nullUUID(p.ProjectID), p.ProjectSlug, nullUUID(p.MiniSiteID), p.MiniSiteSlug,
		p.LastError, p.RetryCount, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Update persists every mutable field of the prospect. Stage checkpoints go
// through here so partial progress survives a crash.
func (r *ProspectRepository) Update(ctx context.Context, p *Prospect) error {
	p.UpdatedAt = time.Now()

	query := `
		UPDATE prospects SET
			status = $1, extracted_text = $2, page_count = $3, metadata = $4,
			extracted_blocks = $5, extracted_tables = $6, extracted_images = $7,
			classified_images = $8, image_manifest = $9, generated_title = $10,
			generated_description = $11, generated_sections = $12, confidence = $13,
			project_id = $14, project_slug = $15, minisite_id = $16, minisite_slug = $17,
			last_error = $18, retry_count = $19, updated_at = $20
		WHERE id = $21
	`
	res, err := r.db.ExecContext(ctx, query,
		string(p.Status), p.ExtractedText, p.PageCount, nullRaw(p.Metadata),
		nullRaw(p.ExtractedBlocks), nullRaw(p.ExtractedTables), nullRaw(p.ExtractedImages),
		nullRaw(p.ClassifiedImages), nullRaw(p.ImageManifest), p.GeneratedTitle,
		p.GeneratedDescription, nullRaw(p.GeneratedSections), p.Confidence,
		nullUUID(p.ProjectID), p.ProjectSlug, nullUUID(p.MiniSiteID), p.MiniSiteSlug,
		p.LastError, p.RetryCount, p.UpdatedAt, p.ID.String(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a prospect by ID.
func (r *ProspectRepository) GetByID(ctx context.Context, id uuid.UUID) (*Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE id = $1`
	return r.scanProspect(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetBySHA256 retrieves a prospect by its source content hash, for dedup on
// upload.
func (r *ProspectRepository) GetBySHA256(ctx context.Context, sha string) (*Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE source_sha256 = $1 ORDER BY created_at LIMIT 1`
	return r.scanProspect(r.db.QueryRowContext(ctx, query, sha))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ProspectRepository) scanProspect(row rowScanner) (*Prospect, error) {
	p := &Prospect{}
	var (
		id, status                              string
		metadata, blocks, tables, images        sql.NullString
		classified, manifest, sections          sql.NullString
		projectID, projectSlug                  sql.NullString
		miniSiteID, miniSiteSlug, lastErr       sql.NullString
	)
	err := row.Scan(
		&id, &p.SourceURL, &p.SourceSHA256, &status, &p.ExtractedText, &p.PageCount,
		&metadata, &blocks, &tables, &images, &classified, &manifest,
		&p.GeneratedTitle, &p.GeneratedDescription, &sections, &p.Confidence,
		&projectID, &projectSlug, &miniSiteID, &miniSiteSlug, &lastErr, &p.RetryCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse prospect id: %w", err)
	}
	p.Status = ProspectStatus(status)
	p.Metadata = rawOrNil(metadata)
	p.ExtractedBlocks = rawOrNil(blocks)
	p.ExtractedTables = rawOrNil(tables)
	p.ExtractedImages = rawOrNil(images)
	p.ClassifiedImages = rawOrNil(classified)
	p.ImageManifest = rawOrNil(manifest)
	p.GeneratedSections = rawOrNil(sections)
	p.ProjectID = parseNullUUID(projectID)
	p.ProjectSlug = strPtr(projectSlug)
	p.MiniSiteID = parseNullUUID(miniSiteID)
	p.MiniSiteSlug = strPtr(miniSiteSlug)
	p.LastError = strPtr(lastErr)
	return p, nil
}

// ProjectRepository handles project CRUD operations.
type ProjectRepository struct {
	db DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, p *Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	query := `
		INSERT INTO projects (id, slug, name, name_localized, developer, prospect_id,
			payload, seo_title, seo_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.Slug, p.Name, p.NameLocalized, p.Developer, p.ProspectID.String(),
		string(p.Payload), p.SEOTitle, p.SEODesc, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a project by ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `
		SELECT id, slug, name, name_localized, developer, prospect_id, payload,
			seo_title, seo_description, created_at, updated_at
		FROM projects WHERE id = $1
	`
	return r.scanProject(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetBySlug retrieves a project by slug.
func (r *ProjectRepository) GetBySlug(ctx context.Context, slug string) (*Project, error) {
	query := `
		SELECT id, slug, name, name_localized, developer, prospect_id, payload,
			seo_title, seo_description, created_at, updated_at
		FROM projects WHERE slug = $1
	`
	return r.scanProject(r.db.QueryRowContext(ctx, query, slug))
}

// ListSlugsByPrefix returns every project slug starting with the prefix.
// Used for collision disambiguation.
func (r *ProjectRepository) ListSlugsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT slug FROM projects WHERE slug LIKE $1`
	return listSlugs(ctx, r.db, query, prefix)
}

func (r *ProjectRepository) scanProject(row rowScanner) (*Project, error) {
	p := &Project{}
	var id, prospectID, payload string
	err := row.Scan(
		&id, &p.Slug, &p.Name, &p.NameLocalized, &p.Developer, &prospectID, &payload,
		&p.SEOTitle, &p.SEODesc, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}
	if p.ProspectID, err = uuid.Parse(prospectID); err != nil {
		return nil, fmt.Errorf("parse prospect id: %w", err)
	}
	p.Payload = []byte(payload)
	return p, nil
}

// MiniSiteRepository handles mini-site CRUD operations.
type MiniSiteRepository struct {
	db DB
}

// NewMiniSiteRepository creates a new mini-site repository.
func NewMiniSiteRepository(db DB) *MiniSiteRepository {
	return &MiniSiteRepository{db: db}
}

// Create inserts a new mini-site.
func (r *MiniSiteRepository) Create(ctx context.Context, m *MiniSite) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt

	query := `
		INSERT INTO minisites (id, slug, project_id, prospect_id, template, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID.String(), m.Slug, m.ProjectID.String(), m.ProspectID.String(),
		m.Template, string(m.Payload), m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetByID retrieves a mini-site by ID.
func (r *MiniSiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*MiniSite, error) {
	query := `
		SELECT id, slug, project_id, prospect_id, template, payload, created_at, updated_at
		FROM minisites WHERE id = $1
	`
	return r.scanMiniSite(r.db.QueryRowContext(ctx, query, id.String()))
}

// ListSlugsByPrefix returns every mini-site slug starting with the prefix.
func (r *MiniSiteRepository) ListSlugsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT slug FROM minisites WHERE slug LIKE $1`
	return listSlugs(ctx, r.db, query, prefix)
}

// Delete removes a mini-site. Used only by reprocess.
func (r *MiniSiteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM minisites WHERE id = $1`, id.String())
	return err
}

func (r *MiniSiteRepository) scanMiniSite(row rowScanner) (*MiniSite, error) {
	m := &MiniSite{}
	var id, projectID, prospectID, payload string
	err := row.Scan(&id, &m.Slug, &projectID, &prospectID, &m.Template, &payload, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse minisite id: %w", err)
	}
	if m.ProjectID, err = uuid.Parse(projectID); err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}
	if m.ProspectID, err = uuid.Parse(prospectID); err != nil {
		return nil, fmt.Errorf("parse prospect id: %w", err)
	}
	m.Payload = []byte(payload)
	return m, nil
}

func listSlugs(ctx context.Context, db DB, query, prefix string) ([]string, error) {
	// Escape LIKE metacharacters in the prefix itself.
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(prefix)
	rows, err := db.QueryContext(ctx, query, escaped+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

func nullRaw(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func rawOrNil(ns sql.NullString) []byte {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return []byte(ns.String)
}

func nullUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullUUID(ns sql.NullString) *uuid.UUID {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil
	}
	return &id
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
