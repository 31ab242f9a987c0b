package sqlite

import (
	"context"
	"errors"
	"strings"

	"github.com/catfactsnode/catfacts/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type FactRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewFactRepository(db *gorm.DB) *FactRepository {
	return &FactRepository{db: db}
}

func (r *FactRepository) Create(ctx context.Context, value domain.Fact) (domain.Fact, error) {
	m := FactModel{
		Text:   strings.TrimSpace(value.Text),
		Author: value.Author,
		Status: string(value.Status),
	}
	if addr := strings.TrimSpace(value.SubmitterAddress); addr != "" {
		m.SubmitterAddress = &addr
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Fact{}, err
	}
	return toDomain(m), nil
}

func (r *FactRepository) GetByID(ctx context.Context, id uint) (domain.Fact, error) {
	var m FactModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Fact{}, domain.ErrNoFacts
		}
		return domain.Fact{}, err
	}
	return toDomain(m), nil
}

func (r *FactRepository) ListInStatus(ctx context.Context, status domain.Status) ([]domain.Fact, error) {
	rows := make([]FactModel, 0)
	if err := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Fact, 0, len(rows))
	for _, m := range rows {
		result = append(result, toDomain(m))
	}
	return result, nil
}

// TransitionStatus is the write guard behind the moderation controls: the
// update only lands when the row is still in the expected source status, so
// a repeated or stale control affects zero rows.
func (r *FactRepository) TransitionStatus(ctx context.Context, id uint, from, to domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&FactModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *FactRepository) DeleteInStatus(ctx context.Context, id uint, status domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(status)).
		Delete(&FactModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *FactRepository) RandomInStatus(ctx context.Context, status domain.Status) (domain.Fact, error) {
	var m FactModel
	err := r.db.WithContext(ctx).Raw(`
SELECT id, text, author, status, timestamp, submitter_address
FROM facts
WHERE status = ?
ORDER BY RANDOM()
LIMIT 1
`, string(status)).Scan(&m).Error
	if err != nil {
		return domain.Fact{}, err
	}
	if m.ID == 0 {
		return domain.Fact{}, domain.ErrNoFacts
	}
	return toDomain(m), nil
}

func (r *FactRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	type row struct {
		Status string
		N      int64
	}
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT status, COUNT(*) AS n
FROM facts
GROUP BY status
`).Scan(&rows).Error
	if err != nil {
		return domain.StatusCounts{}, err
	}

	var counts domain.StatusCounts
	for _, m := range rows {
		switch domain.Status(m.Status) {
		case domain.StatusPending:
			counts.Pending = m.N
		case domain.StatusVoting:
			counts.Voting = m.N
		case domain.StatusApproved:
			counts.Approved = m.N
		}
	}
	return counts, nil
}

func toDomain(m FactModel) domain.Fact {
	f := domain.Fact{
		ID:        m.ID,
		Text:      m.Text,
		Author:    m.Author,
		Status:    domain.Status(m.Status),
		Timestamp: m.Timestamp,
	}
	if m.SubmitterAddress != nil {
		f.SubmitterAddress = *m.SubmitterAddress
	}
	return f
}
