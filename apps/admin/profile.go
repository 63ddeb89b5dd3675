package main

import (
	"context"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/kipimo/apps/api/echo"
	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/profile"
)

// addProfile creates a profile, or reports the existing one with the same email.
func (cli *commandLine) addProfile(ctx context.Context, np profile.NewProfile) error {
	validate, translator := core.NewValidator()
	profile.RegisterValidators(validate, translator)
	if err := np.Validate(validate); err != nil {
		return err
	}

	svc := profile.NewService(cli.profiles)
	if p, err := svc.GetByEmail(ctx, np.Email); err == nil {
		cli.printf("profile exists: %s (%s)\n", p.ID, p.Role)
		return nil
	} else if errors.Cause(err) != profile.ErrNotFound {
		return err
	}

	p, err := svc.Create(ctx, np)
	if err != nil {
		return err
	}
	cli.printf("profile created: %s (%s)\n", p.ID, p.Role)
	return nil
}

// token prints a signed API token for the profile with `email`.
func (cli *commandLine) token(ctx context.Context, email string) error {
	p, err := profile.NewService(cli.profiles).GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, p))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	cli.printf("%s\n", token)
	return nil
}
