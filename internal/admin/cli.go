// Package admin implements userctl, the operator command line that manages
// accounts directly against the credential store:
//
//	userctl [config flags] create <username> <email>
//	userctl [config flags] enable <username>
//	userctl [config flags] passwd <username>
//
// Passwords are always prompted for without echo, twice.
package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
)

// ErrUsage is returned for unknown commands or wrong operand counts.
var ErrUsage = errors.New("usage: userctl create <username> <email> | enable <username> | passwd <username>")

// Service is the part of services.UserService the CLI drives.
type Service interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Enable(ctx context.Context, username string) error
	SetPassword(ctx context.Context, username, password string) error
}

// test seams
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

type CLI struct {
	svc Service
	in  *bufio.Reader
	out io.Writer
}

func New(svc Service, in io.Reader, out io.Writer) *CLI {
	return &CLI{svc: svc, in: bufio.NewReader(in), out: out}
}

// Run executes one command given as args, e.g. ["enable", "alice"].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch cmd, operands := args[0], args[1:]; cmd {
	case "create":
		if len(operands) != 2 {
			return ErrUsage
		}
		return c.create(ctx, operands[0], operands[1])
	case "enable":
		if len(operands) != 1 {
			return ErrUsage
		}
		return c.enable(ctx, operands[0])
	case "passwd":
		if len(operands) != 1 {
			return ErrUsage
		}
		return c.passwd(ctx, operands[0])
	case "help", "-h", "--help":
		fmt.Fprintln(c.out, ErrUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}

func (c *CLI) create(ctx context.Context, username, email string) error {
	pw, err := c.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	u, err := c.svc.Register(ctx, services.RegisterInput{UserName: username, Email: email, Password: string(pw)})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(c.out, "Created user %s (id %s), not yet enabled.\n", u.UserName, u.ID)

	answer, err := getSimpleText(c.in, "Enable it now? [y/N]", c.out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if answer == "y" || answer == "Y" || answer == "yes" {
		return c.enable(ctx, u.UserName)
	}
	return nil
}

func (c *CLI) enable(ctx context.Context, username string) error {
	if err := c.svc.Enable(ctx, username); err != nil {
		return fmt.Errorf("enable user: %w", err)
	}
	fmt.Fprintf(c.out, "User %s enabled.\n", username)
	return nil
}

func (c *CLI) passwd(ctx context.Context, username string) error {
	pw, err := c.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := c.svc.SetPassword(ctx, username, string(pw)); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	fmt.Fprintf(c.out, "Password of %s changed.\n", username)
	return nil
}

// newPassword prompts twice and returns the password if both entries match.
func (c *CLI) newPassword() ([]byte, error) {
	first, err := getPassword("New password", c.out)
	if err != nil {
		return nil, err
	}
	second, err := getPassword("Repeat password", c.out)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}
