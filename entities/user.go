package entities

import "time"

// User is the only record kept by the service. Rows are never updated.
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(128);not null" json:"username"`
	Email     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime;not null" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Summary is the public view returned for a single user lookup.
func (u *User) Summary() map[string]string {
	return map[string]string{
		"username": u.Username,
		"email":    u.Email,
	}
}
