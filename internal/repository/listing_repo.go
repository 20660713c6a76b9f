package repository

import (
	"sort"

	"hive/internal/domain"
	"hive/internal/models"
	"hive/pkg/location"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BrowseFilters narrows the public listing feed. When HasPoint is set, listings
// with a location must lie within RadiusKm of (Latitude, Longitude); remote
// listings are always included.
type BrowseFilters struct {
	Type      string
	Tag       string
	Search    string
	HasPoint  bool
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
	Offset    int
}

type BrowseResult struct {
	Listing    models.Listing
	DistanceKm *float64
}

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) WithTx(tx *gorm.DB) *ListingRepository {
	return &ListingRepository{db: tx}
}

func (r *ListingRepository) Create(l *models.Listing) error {
	return r.db.Create(l).Error
}

func (r *ListingRepository) GetByID(id uint) (*models.Listing, error) {
	var l models.Listing
	err := r.db.Preload("User").First(&l, id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LockByID reads the listing with SELECT ... FOR UPDATE. Must run inside a transaction.
func (r *ListingRepository) LockByID(id uint) (*models.Listing, error) {
	var l models.Listing
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&l, id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LockByIDWithDeleted is LockByID including soft-deleted rows.
func (r *ListingRepository) LockByIDWithDeleted(id uint) (*models.Listing, error) {
	var l models.Listing
	err := r.db.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).First(&l, id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepository) Update(l *models.Listing) error {
	return r.db.Omit(clause.Associations).Save(l).Error
}

func (r *ListingRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Listing{}).Where("id = ?", id).Updates(updates).Error
}

// Delete soft-deletes the listing row.
func (r *ListingRepository) Delete(id uint) error {
	return r.db.Delete(&models.Listing{}, id).Error
}

func (r *ListingRepository) ListByUserID(userID uint, limit, offset int) ([]models.Listing, error) {
	var list []models.Listing
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// LockActiveByUserID locks every ACTIVE listing of the user.
func (r *ListingRepository) LockActiveByUserID(userID uint) ([]models.Listing, error) {
	var list []models.Listing
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, domain.ListingStatusActive).
		Order("id ASC").Find(&list).Error
	return list, err
}

func (r *ListingRepository) CountActiveByType(listingType string) (int64, error) {
	var c int64
	err := r.db.Model(&models.Listing{}).
		Where("type = ? AND status = ? AND is_flagged = ?", listingType, domain.ListingStatusActive, false).
		Count(&c).Error
	return c, err
}

// Browse returns browsable listings. Geo filtering uses a bounding box in SQL
// followed by an exact haversine check.
func (r *ListingRepository) Browse(f BrowseFilters) ([]BrowseResult, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	q := r.db.Model(&models.Listing{}).Preload("User").
		Where("status = ? AND is_flagged = ?", domain.ListingStatusActive, false)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Tag != "" {
		q = q.Where("tags LIKE ?", `%"`+f.Tag+`"%`)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(title LIKE ? OR description LIKE ?)", like, like)
	}
	if f.HasPoint {
		box := location.BoundingBox(f.Latitude, f.Longitude, f.RadiusKm)
		q = q.Where(
			r.db.Where("location_type = ?", domain.LocationTypeRemote).
				Or("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
					box.MinLat, box.MaxLat, box.MinLng, box.MaxLng),
		)
	}
	var rows []models.Listing
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]BrowseResult, 0, len(rows))
	for _, l := range rows {
		res := BrowseResult{Listing: l}
		if f.HasPoint && !l.IsRemote() {
			if l.Latitude == nil || l.Longitude == nil {
				continue
			}
			d := location.HaversineKm(f.Latitude, f.Longitude, *l.Latitude, *l.Longitude)
			if d > f.RadiusKm {
				continue
			}
			res.DistanceKm = &d
		}
		results = append(results, res)
	}
	if f.HasPoint {
		sortByDistance(results)
	}

	from := f.Offset
	if from < 0 {
		from = 0
	}
	if from >= len(results) {
		return []BrowseResult{}, nil
	}
	to := from + f.Limit
	if to > len(results) || to < from {
		to = len(results)
	}
	return results[from:to], nil
}

// sortByDistance puts located listings nearest first and remote ones after them.
func sortByDistance(r []BrowseResult) {
	sort.SliceStable(r, func(i, j int) bool {
		di, dj := r[i].DistanceKm, r[j].DistanceKm
		if di == nil || dj == nil {
			return di != nil && dj == nil
		}
		return *di < *dj
	})
}
