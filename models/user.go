package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null;unique" json:"name"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Role        UserRole  `gorm:"size:20;not null;default:'staff'" json:"role"`
	Password    string    `gorm:"size:100;not null" json:"-"`
	DeviceToken string    `gorm:"size:255" json:"device_token"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name        string   `json:"name" binding:"required" validate:"required"`
	Phone       string   `json:"phone"`
	Role        UserRole `json:"role" validate:"required"`
	Password    string   `json:"password" validate:"required,min=6"`
	DeviceToken string   `json:"device_token"`
}

func (input *NewUser) validate(ctx context.Context, id int) error {
	if !input.Role.Valid() {
		return errors.New("invalid role: " + string(input.Role))
	}
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[User](ctx, "name", input.Name, id)
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	user := User{
		Name:        input.Name,
		Phone:       input.Phone,
		Role:        input.Role,
		Password:    hashed,
		DeviceToken: input.DeviceToken,
		IsActive:    true,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	broadcastEntity(ctx, EventStaffCreated, &user)
	return &user, nil
}

func UpdateUser(ctx context.Context, id int, input *NewUser) (*User, error) {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	user.Name = input.Name
	user.Phone = input.Phone
	user.Role = input.Role
	user.DeviceToken = input.DeviceToken
	if input.Password != "" {
		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}

	broadcastEntity(ctx, EventStaffUpdated, user)
	return user, nil
}

func DeleteUser(ctx context.Context, id int) (*User, error) {
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(user).Error; err != nil {
		return nil, err
	}

	broadcastEntity(ctx, EventStaffDeleted, user)
	return user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

func GetUsers(ctx context.Context) ([]*User, error) {
	return utils.FetchAllModels[User](ctx)
}

// GetUsersWithDeviceTokens returns the active users able to receive
// push notifications. Recipient policies filter this set further.
func GetUsersWithDeviceTokens(ctx context.Context) ([]*User, error) {
	db := config.GetDB()
	var users []*User
	err := db.WithContext(ctx).
		Where("is_active = ? AND device_token <> ''", true).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateDeviceToken stores the push token reported by a signed-in
// device. An empty token clears registration.
func UpdateDeviceToken(ctx context.Context, userId int, token string) error {
	if err := utils.ValidateResourceId[User](ctx, userId); err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userId).
		UpdateColumn("DeviceToken", token).Error
}

// Login verifies credentials and issues a signed token carrying the
// user's id, name and role.
func Login(ctx context.Context, name string, password string) (string, *User, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, errors.New("invalid name or password")
	}
	if err != nil {
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, errors.New("account is deactivated")
	}
	if err := utils.VerifyPassword(user.Password, password); err != nil {
		return "", nil, errors.New("invalid name or password")
	}

	token, err := utils.JwtGenerate(user.ID, user.Name, string(user.Role))
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}
