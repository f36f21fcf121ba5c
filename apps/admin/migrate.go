package main

import (
	"context"

	"github.com/trezcool/kazi/storage/database"
)

var gooseRunFunc = database.RunMigration // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return gooseRunFunc(ctx, cli.db, args[0], args[1:]...)
}
