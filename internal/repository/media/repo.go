// Package media is the corpus store: catalog items, tags and stored embeddings in sqlite via gorm.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
)

// Repo stores catalog items in sqlite.
type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a corpus repository over an opened gorm handle.
func New(gdb *gorm.DB) *Repo {
	return &Repo{db: gdb, now: time.Now}
}

// Ping checks the connection.
func (r *Repo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping corpus: %w", err)
	}
	return nil
}

// Get loads an item with its tags and embedding.
func (r *Repo) Get(ctx context.Context, id string) (*dommedia.Item, error) {
	var m mediaItemModel
	err := r.withRelations(r.db.WithContext(ctx)).First(&m, "media_items.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("media %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	item := m.toDomain()
	return &item, nil
}

// GetMany loads items in the order of ids. Missing ids are skipped.
func (r *Repo) GetMany(ctx context.Context, ids []string) ([]dommedia.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []mediaItemModel
	if err := r.withRelations(r.db.WithContext(ctx)).
		Where("media_items.id IN ?", ids).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("get %d media: %w", len(ids), err)
	}

	byID := make(map[string]*mediaItemModel, len(models))
	for i := range models {
		byID[models[i].ID] = &models[i]
	}

	items := make([]dommedia.Item, 0, len(models))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			items = append(items, m.toDomain())
		}
	}
	return items, nil
}

// Create inserts a new item. Tags are lower-cased and connected to existing ones or created
// with the default category.
func (r *Repo) Create(ctx context.Context, d dommedia.Draft) (*dommedia.Item, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInput, err)
	}

	m := mediaItemModel{
		ID:          uuid.NewString(),
		Type:        string(d.Type),
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		ReleaseYear: d.ReleaseYear,
		Language:    d.Language,
		PosterURL:   d.PosterURL,
		ExternalID:  d.ExternalID,
		CreatedAt:   r.now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range d.NormalizedTags() {
			var tm tagModel
			if err := tx.Where(tagModel{Name: name}).
				Attrs(tagModel{Category: string(dommedia.CategoryGenre)}).
				FirstOrCreate(&tm).Error; err != nil {
				return fmt.Errorf("connect tag %q: %w", name, err)
			}
			m.Tags = append(m.Tags, tm)
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create media %q: %w", d.Title, err)
	}

	item := m.toDomain()
	return &item, nil
}

// Search is a case-insensitive substring match on title and description, ordered by title.
// An empty term matches everything.
func (r *Repo) Search(ctx context.Context, term string, typ dommedia.Type, limit, offset int) (dommedia.Page, error) {
	term = strings.TrimSpace(term)
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&mediaItemModel{})
		if term != "" {
			pattern := "%" + escapeLike(foldKey(term)) + "%"
			q = q.Where(
				`(media_items.title_key LIKE ? ESCAPE '\' OR media_items.description_key LIKE ? ESCAPE '\')`,
				pattern, pattern,
			)
		}
		if typ != "" {
			q = q.Where("media_items.type = ?", string(typ))
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return dommedia.Page{}, fmt.Errorf("count media %q: %w", term, err)
	}
	if total == 0 {
		return dommedia.Page{}, nil
	}

	q := r.withTags(base()).Order("media_items.title ASC").Order("media_items.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var models []mediaItemModel
	if err := q.Find(&models).Error; err != nil {
		return dommedia.Page{}, fmt.Errorf("search media %q: %w", term, err)
	}
	return dommedia.Page{Items: toDomainList(models), Total: total}, nil
}

// FindByTitle returns the item with the given title (case-insensitive) and type.
func (r *Repo) FindByTitle(ctx context.Context, title string, typ dommedia.Type) (*dommedia.Item, error) {
	var m mediaItemModel
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("media_items.title_key = ? AND media_items.type = ?", foldKey(title), string(typ)).
		Order("media_items.created_at ASC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("media %q (%s): %w", title, typ, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find media %q: %w", title, err)
	}
	item := m.toDomain()
	return &item, nil
}

// UpsertTag creates a tag or updates the category of an existing one.
func (r *Repo) UpsertTag(ctx context.Context, name string, category dommedia.TagCategory) (dommedia.Tag, error) {
	tag := dommedia.NewTag(name, category)
	if tag.Name() == "" {
		return dommedia.Tag{}, fmt.Errorf("%w: tag name is required", domain.ErrInput)
	}

	tm := tagModel{Name: tag.Name(), Category: string(tag.Category())}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category"}),
	}).Create(&tm).Error
	if err != nil {
		return dommedia.Tag{}, fmt.Errorf("upsert tag %q: %w", tag.Name(), err)
	}
	return tag, nil
}

// SaveEmbedding stores or replaces the embedding of an existing item.
func (r *Repo) SaveEmbedding(ctx context.Context, id string, emb dommedia.Embedding) error {
	if emb.Empty() {
		return fmt.Errorf("%w: embedding for %s is empty", domain.ErrInput, id)
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&mediaItemModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check media %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("media %s: %w", id, domain.ErrNotFound)
	}

	em := embeddingModel{
		MediaID:      id,
		Vector:       vectorToBytes(emb.Values()),
		ModelVersion: emb.ModelVersion(),
		Dimensions:   emb.Dimensions(),
		UpdatedAt:    r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&em).Error; err != nil {
		return fmt.Errorf("save embedding %s: %w", id, err)
	}
	return nil
}

// ListWithEmbeddings returns items whose embedding matches the query's model version and dimensions.
func (r *Repo) ListWithEmbeddings(ctx context.Context, eq dommedia.EmbeddingQuery) ([]dommedia.Item, error) {
	q := r.withRelations(r.db.WithContext(ctx).Model(&mediaItemModel{})).
		Select("media_items.*").
		Joins("JOIN media_embeddings ON media_embeddings.media_id = media_items.id").
		Where("media_embeddings.model_version = ?", eq.ModelVersion)
	if eq.Dimensions > 0 {
		q = q.Where("media_embeddings.dimensions = ?", eq.Dimensions)
	}
	if eq.Type != "" {
		q = q.Where("media_items.type = ?", string(eq.Type))
	}
	if eq.ExcludeID != "" {
		q = q.Where("media_items.id <> ?", eq.ExcludeID)
	}

	var models []mediaItemModel
	if err := q.Order("media_items.id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list media with embeddings (%s): %w", eq.ModelVersion, err)
	}
	return toDomainList(models), nil
}

// ListByTags returns items sharing at least one tag, ordered by title.
func (r *Repo) ListByTags(ctx context.Context, tq dommedia.TagQuery) ([]dommedia.Item, error) {
	if len(tq.Tags) == 0 {
		return nil, nil
	}
	names := make([]string, len(tq.Tags))
	for i, t := range tq.Tags {
		names[i] = dommedia.NormalizeTagName(t)
	}

	sub := r.db.Table("media_tags").
		Select("media_tags.media_id").
		Joins("JOIN tags ON tags.id = media_tags.tag_id").
		Where("tags.name IN ?", names)

	q := r.withTags(r.db.WithContext(ctx).Model(&mediaItemModel{})).
		Where("media_items.id IN (?)", sub)
	if tq.Type != "" {
		q = q.Where("media_items.type = ?", string(tq.Type))
	}
	if tq.ExcludeID != "" {
		q = q.Where("media_items.id <> ?", tq.ExcludeID)
	}
	if tq.Limit > 0 {
		q = q.Limit(tq.Limit)
	}

	var models []mediaItemModel
	if err := q.Order("media_items.title ASC").Order("media_items.id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list media by tags: %w", err)
	}
	return toDomainList(models), nil
}

// ListMissingEmbeddings returns items with no embedding or one from another model version,
// oldest first.
func (r *Repo) ListMissingEmbeddings(ctx context.Context, modelVersion string, limit int) ([]dommedia.Item, error) {
	q := r.withTags(r.missingEmbeddings(ctx, modelVersion)).
		Select("media_items.*").
		Order("media_items.created_at ASC").
		Order("media_items.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []mediaItemModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list media missing embeddings: %w", err)
	}
	return toDomainList(models), nil
}

// CountMissingEmbeddings counts what ListMissingEmbeddings would return without a limit.
func (r *Repo) CountMissingEmbeddings(ctx context.Context, modelVersion string) (int64, error) {
	var n int64
	if err := r.missingEmbeddings(ctx, modelVersion).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count media missing embeddings: %w", err)
	}
	return n, nil
}

func (r *Repo) missingEmbeddings(ctx context.Context, modelVersion string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&mediaItemModel{}).
		Joins("LEFT JOIN media_embeddings ON media_embeddings.media_id = media_items.id").
		Where("media_embeddings.media_id IS NULL OR media_embeddings.model_version <> ?", modelVersion)
}

func (r *Repo) withTags(q *gorm.DB) *gorm.DB {
	return q.Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	})
}

func (r *Repo) withRelations(q *gorm.DB) *gorm.DB {
	return r.withTags(q).Preload("Embedding")
}

func toDomainList(models []mediaItemModel) []dommedia.Item {
	items := make([]dommedia.Item, len(models))
	for i := range models {
		items[i] = models[i].toDomain()
	}
	return items
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
