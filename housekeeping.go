package main

import (
	"fmt"

	"gorm.io/gorm"
)

type HousekeepingCmd struct {
}

func (c *HousekeepingCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		// delete all images that are not owned by a user
		res := tx.Exec(`
			DELETE FROM images
			WHERE user_id NOT IN (SELECT twitch_id FROM users)
		`)
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "orphaned images")

		return nil
	})
}
