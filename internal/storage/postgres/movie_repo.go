package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

const movieColumns = `
	m.id, m.name, m.synopsis, m.age_tag, m.premieres_on, m.available_till,
	m.status, m.downloadable, m.views, m.thumbnail_url,
	m.body_external_id, m.body_uploaded, m.body_status, m.body_duration_seconds,
	m.trailer_external_id, m.trailer_uploaded, m.trailer_status, m.trailer_duration_seconds,
	m.created_by, m.version, m.created_at, m.updated_at`

// movieRow is the flattened table shape of models.Movie.
type movieRow struct {
	ID                     uuid.UUID  `db:"id"`
	Name                   string     `db:"name"`
	Synopsis               string     `db:"synopsis"`
	AgeTag                 string     `db:"age_tag"`
	PremieresOn            time.Time  `db:"premieres_on"`
	AvailableTill          *time.Time `db:"available_till"`
	Status                 int        `db:"status"`
	Downloadable           bool       `db:"downloadable"`
	Views                  int64      `db:"views"`
	ThumbnailURL           string     `db:"thumbnail_url"`
	BodyExternalID         *string    `db:"body_external_id"`
	BodyUploaded           bool       `db:"body_uploaded"`
	BodyStatus             string     `db:"body_status"`
	BodyDurationSeconds    int        `db:"body_duration_seconds"`
	TrailerExternalID      *string    `db:"trailer_external_id"`
	TrailerUploaded        bool       `db:"trailer_uploaded"`
	TrailerStatus          string     `db:"trailer_status"`
	TrailerDurationSeconds int        `db:"trailer_duration_seconds"`
	CreatedBy              uuid.UUID  `db:"created_by"`
	Version                int64      `db:"version"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

func (r movieRow) toModel() *models.Movie {
	return &models.Movie{
		ID:            r.ID,
		Name:          r.Name,
		Synopsis:      r.Synopsis,
		AgeTag:        models.AgeTag(r.AgeTag),
		PremieresOn:   r.PremieresOn,
		AvailableTill: r.AvailableTill,
		Status:        models.MovieStatus(r.Status),
		Downloadable:  r.Downloadable,
		Views:         r.Views,
		ThumbnailURL:  r.ThumbnailURL,
		Body: models.Asset{
			Kind:            models.AssetBody,
			ExternalID:      r.BodyExternalID,
			Uploaded:        r.BodyUploaded,
			Status:          models.ProcessingStatus(r.BodyStatus),
			DurationSeconds: r.BodyDurationSeconds,
		},
		Trailer: models.Asset{
			Kind:            models.AssetTrailer,
			ExternalID:      r.TrailerExternalID,
			Uploaded:        r.TrailerUploaded,
			Status:          models.ProcessingStatus(r.TrailerStatus),
			DurationSeconds: r.TrailerDurationSeconds,
		},
		CreatedBy: r.CreatedBy,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type MovieRepo struct {
	db     *sqlx.DB
	outbox *OutboxRepo
}

func NewMovieRepo(db *sqlx.DB, outbox *OutboxRepo) *MovieRepo {
	return &MovieRepo{db: db, outbox: outbox}
}

func (r *MovieRepo) Create(ctx context.Context, m *models.Movie, events ...models.DomainEvent) error {
	const q = `
		INSERT INTO movies (
			id, name, synopsis, age_tag, premieres_on, available_till,
			status, downloadable, views, thumbnail_url,
			body_external_id, body_uploaded, body_status, body_duration_seconds,
			trailer_external_id, trailer_uploaded, trailer_status, trailer_duration_seconds,
			created_by, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
	`

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			m.ID, m.Name, m.Synopsis, string(m.AgeTag), m.PremieresOn, m.AvailableTill,
			int(m.Status), m.Downloadable, m.Views, m.ThumbnailURL,
			m.Body.ExternalID, m.Body.Uploaded, string(m.Body.Status), m.Body.DurationSeconds,
			m.Trailer.ExternalID, m.Trailer.Uploaded, string(m.Trailer.Status), m.Trailer.DurationSeconds,
			m.CreatedBy, m.Version, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrConflict
			}
			return fmt.Errorf("movie create: %w", err)
		}
		if err := insertCategories(ctx, tx, m.ID, m.CategoryIDs); err != nil {
			return err
		}
		return r.addEvents(ctx, tx, events)
	})
}

func (r *MovieRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	return r.getOne(ctx, `SELECT`+movieColumns+` FROM movies m WHERE m.id = $1`, id)
}

func (r *MovieRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Movie, error) {
	if externalID == "" {
		return nil, models.ErrInvalidArgument
	}
	return r.getOne(ctx, `SELECT`+movieColumns+` FROM movies m
		WHERE m.body_external_id = $1 OR m.trailer_external_id = $1
		LIMIT 1`, externalID)
}

func (r *MovieRepo) getOne(ctx context.Context, q string, arg any) (*models.Movie, error) {
	var row movieRow
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("movie get: %w", err)
	}

	m := row.toModel()
	byMovie, err := r.loadCategories(ctx, []uuid.UUID{m.ID})
	if err != nil {
		return nil, err
	}
	m.CategoryIDs = byMovie[m.ID]
	return m, nil
}

// Update writes every mutable column when the stored version still equals
// m.Version. Views are left alone; IncrementViews owns them.
func (r *MovieRepo) Update(ctx context.Context, m *models.Movie, events ...models.DomainEvent) error {
	const q = `
		UPDATE movies SET
			name = $3, synopsis = $4, age_tag = $5, premieres_on = $6, available_till = $7,
			status = $8, downloadable = $9, thumbnail_url = $10,
			body_external_id = $11, body_uploaded = $12, body_status = $13, body_duration_seconds = $14,
			trailer_external_id = $15, trailer_uploaded = $16, trailer_status = $17, trailer_duration_seconds = $18,
			updated_at = $19, version = version + 1
		WHERE id = $1 AND version = $2
	`

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q,
			m.ID, m.Version,
			m.Name, m.Synopsis, string(m.AgeTag), m.PremieresOn, m.AvailableTill,
			int(m.Status), m.Downloadable, m.ThumbnailURL,
			m.Body.ExternalID, m.Body.Uploaded, string(m.Body.Status), m.Body.DurationSeconds,
			m.Trailer.ExternalID, m.Trailer.Uploaded, string(m.Trailer.Status), m.Trailer.DurationSeconds,
			m.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrConflict
			}
			return fmt.Errorf("movie update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("movie update rows: %w", err)
		}
		if n == 0 {
			return r.missingOrStale(ctx, tx, m.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM movie_categories WHERE movie_id = $1`, m.ID); err != nil {
			return fmt.Errorf("movie categories clear: %w", err)
		}
		if err := insertCategories(ctx, tx, m.ID, m.CategoryIDs); err != nil {
			return err
		}
		return r.addEvents(ctx, tx, events)
	})
	if err != nil {
		return err
	}

	m.Version++
	return nil
}

func (r *MovieRepo) missingOrStale(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("movie exists: %w", err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrConflict
}

func (r *MovieRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE movies SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("movie increment views: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

var sortColumns = map[models.SortField]string{
	models.SortPremieresOn: "m.premieres_on",
	models.SortName:        "m.name",
	models.SortCreatedAt:   "m.created_at",
	models.SortViews:       "m.views",
}

func (r *MovieRepo) List(ctx context.Context, f models.MovieFilter) (models.Page[*models.Movie], error) {
	var page models.Page[*models.Movie]

	where, args := movieWhere(f)

	if err := r.db.GetContext(ctx, &page.TotalCount, `SELECT COUNT(*) FROM movies m`+where, args...); err != nil {
		return page, fmt.Errorf("movie count: %w", err)
	}
	if page.TotalCount == 0 {
		page.Items = []*models.Movie{}
		return page, nil
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = sortColumns[models.SortPremieresOn]
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	q := `SELECT` + movieColumns + ` FROM movies m` + where +
		fmt.Sprintf(" ORDER BY %s %s, m.id", col, dir)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []movieRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return page, fmt.Errorf("movie list: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	byMovie, err := r.loadCategories(ctx, ids)
	if err != nil {
		return page, err
	}

	page.Items = make([]*models.Movie, 0, len(rows))
	for _, row := range rows {
		m := row.toModel()
		m.CategoryIDs = byMovie[m.ID]
		page.Items = append(page.Items, m)
	}
	return page, nil
}

// movieWhere renders the filter as a WHERE clause with positional args.
// The Published branch is the SQL form of the publication gate.
func movieWhere(f models.MovieFilter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	inList := func(ids []uuid.UUID) string {
		ph := make([]string, 0, len(ids))
		for _, id := range ids {
			ph = append(ph, arg(id))
		}
		return strings.Join(ph, ", ")
	}

	if f.CreatedBy != nil {
		conds = append(conds, "m.created_by = "+arg(*f.CreatedBy))
	}
	if f.Query != "" {
		conds = append(conds, "m.name ILIKE "+arg("%"+escapeLike(f.Query)+"%"))
	}

	if f.Published {
		now := arg(f.Now)
		conds = append(conds,
			"m.premieres_on <= "+now,
			fmt.Sprintf("m.status = %d", models.MovieActive),
			fmt.Sprintf("m.body_status = '%s'", models.StatusFinished),
			fmt.Sprintf("(m.trailer_external_id IS NULL OR m.trailer_external_id = '' OR m.trailer_status = '%s')", models.StatusFinished),
			"(m.available_till IS NULL OR m.available_till > "+now+")",
		)
		cat := fmt.Sprintf(`EXISTS (SELECT 1 FROM movie_categories mc
			JOIN categories c ON c.id = mc.category_id
			WHERE mc.movie_id = m.id AND c.status = %d`, models.CategoryActive)
		if len(f.CategoryIDs) > 0 {
			cat += " AND mc.category_id IN (" + inList(f.CategoryIDs) + ")"
		}
		conds = append(conds, cat+")")
	} else if len(f.CategoryIDs) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM movie_categories mc
			WHERE mc.movie_id = m.id AND mc.category_id IN (`+inList(f.CategoryIDs)+`))`)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (r *MovieRepo) loadCategories(ctx context.Context, movieIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}

	q, args, err := sqlx.In(`SELECT movie_id, category_id FROM movie_categories
		WHERE movie_id IN (?) ORDER BY movie_id, category_id`, movieIDs)
	if err != nil {
		return nil, fmt.Errorf("movie categories query: %w", err)
	}

	var links []struct {
		MovieID    uuid.UUID `db:"movie_id"`
		CategoryID uuid.UUID `db:"category_id"`
	}
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("movie categories load: %w", err)
	}
	for _, l := range links {
		out[l.MovieID] = append(out[l.MovieID], l.CategoryID)
	}
	return out, nil
}

func insertCategories(ctx context.Context, tx *sqlx.Tx, movieID uuid.UUID, ids []uuid.UUID) error {
	const q = `INSERT INTO movie_categories (movie_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, q, movieID, id); err != nil {
			return fmt.Errorf("movie category insert: %w", err)
		}
	}
	return nil
}

func (r *MovieRepo) addEvents(ctx context.Context, tx *sqlx.Tx, events []models.DomainEvent) error {
	for _, e := range events {
		if err := r.outbox.Add(ctx, tx, e); err != nil {
			return err
		}
	}
	return nil
}
