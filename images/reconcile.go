// Package images manages a user's announcement image set: validation,
// reconciliation of submitted sets against stored ones, and the HTTP
// handlers that expose them.
package images

import (
	"github.com/codingvibe/go-live-api/internal/algorithms"
	"github.com/codingvibe/go-live-api/internal/snowflake"
	"github.com/codingvibe/go-live-api/models"
	"gorm.io/gorm"
)

// Changes is the outcome of reconciling a submitted image set against the
// persisted one. Every persisted and submitted image lands in exactly one
// of the three lists or is left alone.
type Changes struct {
	Add    []models.Image
	Update []models.Image
	Delete []models.Image
}

// Reconcile computes the writes needed to make the persisted set match the
// submitted one. Submitted images without an ID, or with an ID we have no
// record of, are additions; known IDs with different fields are updates;
// persisted images the submission does not mention are deletions.
func Reconcile(persisted, submitted []models.Image) Changes {
	byID := make(map[snowflake.ID]models.Image, len(persisted))
	for _, img := range persisted {
		byID[img.ID] = img
	}

	var changes Changes
	seen := make(map[snowflake.ID]bool, len(submitted))
	for _, img := range submitted {
		current, ok := byID[img.ID]
		if img.ID == 0 || !ok {
			changes.Add = append(changes.Add, img)
			continue
		}
		seen[img.ID] = true
		if img.URL != current.URL || img.AltText != current.AltText {
			changes.Update = append(changes.Update, img)
		}
	}
	changes.Delete = algorithms.Filter(persisted, func(img models.Image) bool {
		return !seen[img.ID]
	})
	return changes
}

// Apply executes the changes for the user in a single transaction, minting
// IDs for additions. A failure anywhere rolls back the whole batch.
func Apply(db *gorm.DB, twitchID string, changes Changes) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for idx := range changes.Add {
			changes.Add[idx].ID = snowflake.Now()
			changes.Add[idx].UserID = twitchID
			if err := tx.Create(&changes.Add[idx]).Error; err != nil {
				return err
			}
		}
		for _, img := range changes.Update {
			err := tx.Model(&models.Image{ID: img.ID}).
				Where("user_id = ?", twitchID).
				Updates(map[string]any{"url": img.URL, "alt_text": img.AltText}).Error
			if err != nil {
				return err
			}
		}
		for _, img := range changes.Delete {
			if err := tx.Where("user_id = ?", twitchID).Delete(&models.Image{ID: img.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
