package cli

import (
	"context"

	"github.com/dmitrijs2005/megavault/internal/common"
)

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "-Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, email, password); err != nil {
		return err
	}

	sc, err := a.api.StorageConfig(ctx)
	if err != nil {
		return err
	}

	a.email = email
	a.prefix = sc.Prefix()
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.email = ""
	a.prefix = ""
	return a.api.Logout(ctx)
}
