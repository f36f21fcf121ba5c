package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

// addUser registers a new user.User, validated like a self-registration.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return cli.describe(err)
	}
	usr, err := cli.usrSvc.Register(ctx, nu)
	if err != nil {
		return cli.describe(err)
	}
	fmt.Printf("%s %q created (id %d)\n", usr.Role, usr.Username, usr.ID)
	return nil
}

// describe flattens validation errors into a single "field: message" line.
func (cli *commandLine) describe(err error) error {
	var msgs []string
	switch verr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range verr {
			msgs = append(msgs, fe.Field()+": "+fe.Translate(cli.translator))
		}
	case *core.ValidationError:
		for _, fe := range verr.Fields {
			msgs = append(msgs, fe.Field+": "+fe.Error)
		}
	}
	if len(msgs) == 0 {
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
