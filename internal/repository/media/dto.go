package media

import (
	"encoding/binary"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
)

type mediaItemModel struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Type        string `gorm:"type:varchar(16);not null;index:idx_media_title_type,priority:2"`
	Title       string `gorm:"not null"`
	Description string
	// SQLite LOWER folds ASCII only; the keys are folded in Go and matched instead.
	TitleKey       string `gorm:"not null;default:'';index:idx_media_title_type,priority:1"`
	DescriptionKey string `gorm:"not null;default:''"`
	ReleaseYear int
	Language    string `gorm:"type:varchar(16)"`
	PosterURL   string
	ExternalID  string `gorm:"index"`
	CreatedAt   time.Time
	Tags        []tagModel      `gorm:"many2many:media_tags;joinForeignKey:MediaID;joinReferences:TagID"`
	Embedding   *embeddingModel `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE"`
}

func (mediaItemModel) TableName() string { return "media_items" }

// BeforeSave keeps the folded keys in sync with title and description.
func (m *mediaItemModel) BeforeSave(*gorm.DB) error {
	m.TitleKey = foldKey(m.Title)
	m.DescriptionKey = foldKey(m.Description)
	return nil
}

// foldKey is the case-insensitive match form of a title, description or search term.
func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type tagModel struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"uniqueIndex;not null"`
	Category string `gorm:"type:varchar(16);not null;default:GENRE"`
}

func (tagModel) TableName() string { return "tags" }

// embeddingModel stores one vector per item; re-embedding overwrites it.
type embeddingModel struct {
	MediaID      string `gorm:"primaryKey;type:varchar(36)"`
	Vector       []byte `gorm:"not null"`
	ModelVersion string `gorm:"index;not null"`
	Dimensions   int    `gorm:"not null"`
	UpdatedAt    time.Time
}

func (embeddingModel) TableName() string { return "media_embeddings" }

func (m *mediaItemModel) toDomain() dommedia.Item {
	tags := make([]dommedia.Tag, len(m.Tags))
	for i, t := range m.Tags {
		tags[i] = dommedia.NewTag(t.Name, dommedia.TagCategory(t.Category))
	}

	var emb dommedia.Embedding
	if m.Embedding != nil {
		emb = dommedia.NewEmbedding(bytesToVector(m.Embedding.Vector), m.Embedding.ModelVersion)
	}

	return dommedia.Reconstruct(
		m.ID, dommedia.Type(m.Type), m.Title, m.Description, m.ReleaseYear,
		m.Language, m.PosterURL, m.ExternalID, m.CreatedAt,
		tags, emb,
	)
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToVector ignores a trailing partial float.
func bytesToVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
