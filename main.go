package main

import (
	"github.com/alecthomas/kong"
	"gorm.io/gorm"
)

type Context struct {
	Debug     bool
	Dialector gorm.Dialector

	gorm.Config
}

var cli struct {
	Debug bool   `help:"Enable debug mode."`
	DSN   string `required:"" env:"DSN" help:"data source name"`

	Serve        ServeCmd        `cmd:"" help:"Serve the go-live API."`
	AutoMigrate  AutoMigrateCmd  `cmd:"" help:"Create or update the database schema."`
	Housekeeping HousekeepingCmd `cmd:"" help:"Delete orphaned rows."`
	CreateUser   CreateUserCmd   `cmd:"" help:"Create a user directly."`
}

func main() {
	ctx := kong.Parse(&cli)
	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Dialector: newDialector(cli.DSN),
	})
	ctx.FatalIfErrorf(err)
}
