package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/megavault/internal/buildinfo"
	"github.com/dmitrijs2005/megavault/internal/server"
	"github.com/dmitrijs2005/megavault/internal/server/auth"
	"github.com/dmitrijs2005/megavault/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}

// hashPassword prints the bcrypt hash to use as the user password hash.
// The password is read without echo from a terminal, or as one line otherwise.
func hashPassword(in *os.File, out io.Writer) error {
	var password []byte

	if fd := int(in.Fd()); term.IsTerminal(fd) {
		fmt.Fprint(out, "Password: ")
		p, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
		password = p
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		password = []byte(strings.TrimRight(line, "\r\n"))
	}

	if len(password) == 0 {
		return fmt.Errorf("empty password")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}
