package main

import (
	"fmt"

	"github.com/codingvibe/go-live-api/models"
	"gorm.io/gorm"
)

type CreateUserCmd struct {
	TwitchID     string `required:"" help:"twitch login of the user to create"`
	RefreshToken string `required:"" help:"twitch refresh token for the user"`
}

func (c *CreateUserCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	user, err := models.NewUsers(db).Create(c.TwitchID, c.RefreshToken)
	if err != nil {
		return err
	}
	fmt.Println("created", user.TwitchID)
	return nil
}
