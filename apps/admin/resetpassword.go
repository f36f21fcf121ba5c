package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.usrSvc.ResetPassword(ctx, uname, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("password of %q updated\n", usr.Username)
	return nil
}
