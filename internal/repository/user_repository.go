package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"family-finance/internal/model"
)

// UserRepository handles CRUD for users and families.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateWithFamily creates a family and its first user atomically.
func (r *UserRepository) CreateWithFamily(ctx context.Context, family *model.Family, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(family).Error; err != nil {
			return fmt.Errorf("create family: %w", err)
		}
		user.FamilyID = &family.ID
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) ListByFamily(ctx context.Context, familyID string) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("family_id = ?", familyID).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListTelegramLinked returns users that linked a Telegram chat.
func (r *UserRepository) ListTelegramLinked(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id IS NOT NULL").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// SetTelegramLinkCode stores a one-time code the bot exchanges for a chat id.
func (r *UserRepository) SetTelegramLinkCode(ctx context.Context, userID, code string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("telegram_link_code", code)
	if res.Error != nil {
		return fmt.Errorf("set link code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkTelegram consumes code and binds chatID to its owner.
func (r *UserRepository) LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("telegram_link_code = ?", code).First(&user).Error; err != nil {
			return notFound(err)
		}
		// one account per chat
		if err := tx.Model(&model.User{}).Where("telegram_chat_id = ?", chatID).
			Update("telegram_chat_id", nil).Error; err != nil {
			return fmt.Errorf("unlink previous chat: %w", err)
		}
		user.TelegramChatID = &chatID
		user.TelegramLinkCode = nil
		return tx.Model(&user).Updates(map[string]interface{}{
			"telegram_chat_id":   chatID,
			"telegram_link_code": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes a user together with everything they own.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		goalIDs := tx.Model(&model.SavingsGoal{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("goal_id IN (?)", goalIDs).Delete(&model.GoalTransaction{}).Error; err != nil {
			return fmt.Errorf("delete goal transactions: %w", err)
		}
		owned := []interface{}{
			&model.SavingsGoal{},
			&model.Transaction{},
			&model.BudgetLimit{},
			&model.BudgetHistory{},
			&model.BudgetWatermark{},
			&model.Notification{},
			&model.SavedSimulation{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete %T: %w", m, err)
			}
		}
		res := tx.Where("id = ?", id).Delete(&model.User{})
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *UserRepository) CreateFamily(ctx context.Context, family *model.Family) error {
	if err := r.db.WithContext(ctx).Create(family).Error; err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

func (r *UserRepository) FindFamily(ctx context.Context, id string) (*model.Family, error) {
	var family model.Family
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&family).Error; err != nil {
		return nil, notFound(err)
	}
	return &family, nil
}
