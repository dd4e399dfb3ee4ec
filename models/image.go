package models

import (
	"math/rand"
	"time"

	"github.com/codingvibe/go-live-api/internal/snowflake"
	"gorm.io/gorm"
)

// An Image is a user-supplied picture attached to go-live announcements.
// An Image belongs to a User. IDs are minted by the store on create, never
// supplied by the client.
type Image struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
	UserID    string `gorm:"size:255;not null;index"`
	User      *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;references:TwitchID"`
	URL       string `gorm:"size:1024;not null"`
	AltText   string `gorm:"size:2048"`
}

type Images struct {
	db *gorm.DB
}

func NewImages(db *gorm.DB) *Images {
	return &Images{db: db}
}

func (i *Images) ForUser(twitchID string) ([]Image, error) {
	var images []Image
	if err := i.db.Where("user_id = ?", twitchID).Order("id").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// Random returns one of the user's images, or nil if they have none.
func (i *Images) Random(twitchID string) (*Image, error) {
	images, err := i.ForUser(twitchID)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}
	return &images[rand.Intn(len(images))], nil
}

// Add stores the given images for the user, minting an ID for each.
func (i *Images) Add(twitchID string, images []Image) error {
	for idx := range images {
		images[idx].ID = snowflake.Now()
		images[idx].UserID = twitchID
		if err := i.db.Create(&images[idx]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (i *Images) Remove(twitchID string, id snowflake.ID) error {
	return i.db.Where("user_id = ?", twitchID).Delete(&Image{ID: id}).Error
}
