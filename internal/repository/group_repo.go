package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classloop/classloop-api/internal/models"
)

// GroupRepository defines persistence operations for course groups and the
// group-membership workflow. The multi-row transitions (approve, leave) run
// as single transactions so the CourseMember.group_id mirror can never be
// observed out of sync with the membership rows.
type GroupRepository interface {
	Create(ctx context.Context, group *models.CourseGroup) error
	GetByID(ctx context.Context, id uint) (models.CourseGroup, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.CourseGroup, error)
	GetMember(ctx context.Context, groupID, userID uint) (models.CourseGroupMember, error)
	GetMemberByID(ctx context.Context, id uint) (models.CourseGroupMember, error)
	ListMembers(ctx context.Context, groupID uint, requestStatus string) ([]models.CourseGroupMember, error)
	Upsert(ctx context.Context, groupID, userID uint, requestStatus string) (models.CourseGroupMember, error)
	Approve(ctx context.Context, memberID uint) (models.CourseGroupMember, error)
	DeleteMember(ctx context.Context, memberID uint) error
	Leave(ctx context.Context, groupID, userID uint) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository instantiates a GORM-backed repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *models.CourseGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (models.CourseGroup, error) {
	var group models.CourseGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return models.CourseGroup{}, err
	}

	return group, nil
}

func (r *groupRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseGroup, error) {
	var groups []models.CourseGroup
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("name ASC").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *groupRepository) GetMember(ctx context.Context, groupID, userID uint) (models.CourseGroupMember, error) {
	var member models.CourseGroupMember
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error; err != nil {
		return models.CourseGroupMember{}, err
	}

	return member, nil
}

func (r *groupRepository) GetMemberByID(ctx context.Context, id uint) (models.CourseGroupMember, error) {
	var member models.CourseGroupMember
	if err := r.db.WithContext(ctx).Preload("Group").Preload("User").First(&member, id).Error; err != nil {
		return models.CourseGroupMember{}, err
	}

	return member, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID uint, requestStatus string) ([]models.CourseGroupMember, error) {
	query := r.db.WithContext(ctx).Where("group_id = ?", groupID)
	if requestStatus != "" {
		query = query.Where("request_status = ?", requestStatus)
	}

	var members []models.CourseGroupMember
	if err := query.Preload("User").Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	return members, nil
}

// Upsert creates or refreshes the membership row keyed on (group, user). The
// unique index makes concurrent join requests converge on a single row.
func (r *groupRepository) Upsert(ctx context.Context, groupID, userID uint, requestStatus string) (models.CourseGroupMember, error) {
	member := models.CourseGroupMember{
		GroupID:       groupID,
		UserID:        userID,
		RequestStatus: requestStatus,
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"request_status": requestStatus}),
	}).Create(&member).Error; err != nil {
		return models.CourseGroupMember{}, err
	}

	return r.GetMember(ctx, groupID, userID)
}

// Approve confirms the membership, evicts the user's memberships in every
// other group of the same course, and mirrors the group onto the enrollment.
// Running the whole transition in one transaction keeps the at-most-one-
// approved-group invariant exact rather than best effort.
func (r *groupRepository) Approve(ctx context.Context, memberID uint) (models.CourseGroupMember, error) {
	var approved models.CourseGroupMember

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.CourseGroupMember
		if err := lockForUpdate(tx).Preload("Group").First(&member, memberID).Error; err != nil {
			return err
		}

		member.RequestStatus = models.GroupRequestApproved
		if err := tx.Model(&models.CourseGroupMember{}).
			Where("id = ?", member.ID).
			Update("request_status", models.GroupRequestApproved).Error; err != nil {
			return err
		}

		siblingGroups := tx.Model(&models.CourseGroup{}).
			Select("id").
			Where("course_id = ? AND id <> ?", member.Group.CourseID, member.GroupID)
		if err := tx.Where("user_id = ? AND group_id IN (?)", member.UserID, siblingGroups).
			Delete(&models.CourseGroupMember{}).Error; err != nil {
			return err
		}

		enrollment := models.CourseMember{
			CourseID: member.Group.CourseID,
			UserID:   member.UserID,
		}
		if err := tx.Where("course_id = ? AND user_id = ?", enrollment.CourseID, enrollment.UserID).
			Attrs(models.CourseMember{Role: models.MemberRoleMember, Status: models.MemberStatusActive}).
			FirstOrCreate(&enrollment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CourseMember{}).
			Where("id = ?", enrollment.ID).
			Update("group_id", member.GroupID).Error; err != nil {
			return err
		}

		approved = member
		return nil
	})
	if err != nil {
		return models.CourseGroupMember{}, err
	}

	return approved, nil
}

// DeleteMember removes the membership row outright. Rejection keeps no
// history, so the user may re-request later.
func (r *groupRepository) DeleteMember(ctx context.Context, memberID uint) error {
	result := r.db.WithContext(ctx).Delete(&models.CourseGroupMember{}, memberID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Leave drops the membership and clears the enrollment mirror in one
// transaction.
func (r *groupRepository) Leave(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.CourseGroup
		if err := tx.First(&group, groupID).Error; err != nil {
			return err
		}

		result := tx.Where("group_id = ? AND user_id = ?", groupID, userID).
			Delete(&models.CourseGroupMember{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&models.CourseMember{}).
			Where("course_id = ? AND user_id = ? AND group_id = ?", group.CourseID, userID, groupID).
			Update("group_id", nil).Error
	})
}
