package repository

import (
	"context"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormScheduleRepository implements the ScheduleRepository interface
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GORM schedule repository
func NewGormScheduleRepository(db *gorm.DB) repository.ScheduleRepository {
	return &GormScheduleRepository{
		db: db,
	}
}

// Schedules GORM model for database mapping
type Schedules struct {
	ID           uint           `gorm:"primaryKey"`
	Date         string         `gorm:"column:date;unique"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	Reservations []Reservations `gorm:"foreignKey:ScheduleID"`
}

// TableName overrides the default table name
func (Schedules) TableName() string {
	return "schedules"
}

// Reservations GORM model for database mapping
type Reservations struct {
	ID         uint      `gorm:"primaryKey"`
	ScheduleID uint      `gorm:"column:schedule_id;index"`
	TailCode   string    `gorm:"column:tail_code"`
	StartTime  time.Time `gorm:"column:start_time"`
	EndTime    time.Time `gorm:"column:end_time"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name
func (Reservations) TableName() string {
	return "reservations"
}

// FindByDate finds the schedule of a date with its reservations
func (r *GormScheduleRepository) FindByDate(ctx context.Context, date string) (*entity.Schedule, error) {
	schedule, found, err := r.loadSchedule(r.db.WithContext(ctx), date, false)
	if err != nil {
		return nil, entity.NewStorageError("find schedule "+date, err)
	}
	if !found {
		return nil, nil
	}
	return toScheduleEntity(schedule), nil
}

// UpdateSchedule reconciles the stored schedule of a date inside one transaction
func (r *GormScheduleRepository) UpdateSchedule(ctx context.Context, date string, reconcile repository.ReconcileFunc) (entity.ScheduleDiff, error) {
	var diff entity.ScheduleDiff

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, found, err := r.loadSchedule(tx, date, true)
		if err != nil {
			return err
		}

		if !found {
			diff = reconcile(nil)
			created := Schedules{Date: date}
			if err := tx.Omit("Reservations").Create(&created).Error; err != nil {
				return err
			}
			return createReservations(tx, created.ID, diff.Initial)
		}

		diff = reconcile(toScheduleEntity(schedule))

		removedIDs := reservationIDs(schedule.Reservations, diff.Removed)
		if len(removedIDs) > 0 {
			if err := tx.Where("id IN ?", removedIDs).Delete(&Reservations{}).Error; err != nil {
				return err
			}
		}
		return createReservations(tx, schedule.ID, diff.Added)
	})
	if err != nil {
		return entity.ScheduleDiff{}, entity.NewStorageError("update schedule "+date, err)
	}

	return diff, nil
}

// PurgeBefore deletes old schedules with their reservations, then orphaned and
// already started reservations, in one transaction
func (r *GormScheduleRepository) PurgeBefore(ctx context.Context, firstKeptDate string, startedBefore time.Time) (entity.PurgeResult, error) {
	var purged entity.PurgeResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldIDs []uint
		if err := tx.Model(&Schedules{}).Where("date < ?", firstKeptDate).Pluck("id", &oldIDs).Error; err != nil {
			return err
		}

		if len(oldIDs) > 0 {
			result := tx.Where("schedule_id IN ?", oldIDs).Delete(&Reservations{})
			if result.Error != nil {
				return result.Error
			}
			purged.Reservations += result.RowsAffected

			result = tx.Where("id IN ?", oldIDs).Delete(&Schedules{})
			if result.Error != nil {
				return result.Error
			}
			purged.Schedules = result.RowsAffected
		}

		result := tx.Where("schedule_id NOT IN (?)", tx.Model(&Schedules{}).Select("id")).Delete(&Reservations{})
		if result.Error != nil {
			return result.Error
		}
		purged.Reservations += result.RowsAffected

		result = tx.Where("start_time < ?", startedBefore.UTC()).Delete(&Reservations{})
		if result.Error != nil {
			return result.Error
		}
		purged.Reservations += result.RowsAffected

		return nil
	})
	if err != nil {
		return entity.PurgeResult{}, entity.NewStorageError("purge schedules before "+firstKeptDate, err)
	}

	return purged, nil
}

// Close closes the underlying connection pool
func (r *GormScheduleRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormScheduleRepository) loadSchedule(db *gorm.DB, date string, forUpdate bool) (*Schedules, bool, error) {
	// row locks only exist on postgres; sqlite serializes writers already
	if forUpdate && db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var schedules []Schedules
	result := db.Preload("Reservations", func(db *gorm.DB) *gorm.DB {
		return db.Order("start_time, tail_code, id")
	}).Where("date = ?", date).Limit(1).Find(&schedules)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if len(schedules) == 0 {
		return nil, false, nil
	}
	return &schedules[0], true, nil
}

func createReservations(tx *gorm.DB, scheduleID uint, reservations []entity.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	models := make([]Reservations, 0, len(reservations))
	for _, res := range reservations {
		models = append(models, Reservations{
			ScheduleID: scheduleID,
			TailCode:   res.TailCode,
			StartTime:  res.Start.UTC(),
			EndTime:    res.End.UTC(),
		})
	}
	return tx.Create(&models).Error
}

// reservationIDs maps removed values back to the rows that hold them
func reservationIDs(rows []Reservations, removed []entity.Reservation) []uint {
	if len(removed) == 0 {
		return nil
	}

	wanted := make(map[entity.ReservationKey]struct{}, len(removed))
	for _, res := range removed {
		wanted[res.Key()] = struct{}{}
	}

	var ids []uint
	for _, row := range rows {
		if _, ok := wanted[toReservationEntity(row).Key()]; ok {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

// Convert GORM models to domain entities
func toScheduleEntity(schedule *Schedules) *entity.Schedule {
	reservations := make([]entity.Reservation, 0, len(schedule.Reservations))
	for _, row := range schedule.Reservations {
		reservations = append(reservations, toReservationEntity(row))
	}

	return &entity.Schedule{
		Date:         schedule.Date,
		Reservations: reservations,
		CreatedAt:    schedule.CreatedAt,
	}
}

func toReservationEntity(row Reservations) entity.Reservation {
	return entity.Reservation{
		TailCode: row.TailCode,
		Start:    row.StartTime.UTC(),
		End:      row.EndTime.UTC(),
	}
}
