package services

import (
	"strings"

	"account-settlement-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// CreateUser registers an account with a bcrypt-hashed password
func (s *UserService) CreateUser(username, nickname, password string, role models.UserRole) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		Nickname:     nickname,
		PasswordHash: hash,
		Role:         role,
		Status:       1,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers filters by username or nickname substring, most recent first
func (s *UserService) SearchUsers(query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	db := s.DB.Model(&models.User{}).Order("id DESC").Limit(limit)
	if query != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(nickname) LIKE ?", term, term)
	}
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetReferral records who invited a user, one or two levels up. Snapshots
// taken at generation time copy from here; already-generated periods are
// unaffected by later edits.
func (s *UserService) SetReferral(userID int64, l1, l2 *int64) (*models.UserReferral, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}
	if l1 != nil && *l1 == userID {
		return nil, ErrBadReferral
	}
	if l2 != nil && (*l2 == userID || l1 == nil) {
		return nil, ErrBadReferral
	}
	for _, inviter := range []*int64{l1, l2} {
		if inviter == nil {
			continue
		}
		if err := s.checkUser(*inviter); err != nil {
			return nil, err
		}
	}

	ref := models.UserReferral{
		UserID:        userID,
		InviterLevel1: l1,
		InviterLevel2: l2,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"inviter_level1", "inviter_level2"}),
	}).Create(&ref).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *UserService) checkUser(userID int64) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
