// Command dirctl administers the Postgres user directory: it applies the
// schema migrations and adds users with argon2id password hashes. It can also
// print a hash for the TOML seed file.
//
//	dirctl migrate [-dsn DSN]
//	dirctl add -email EMAIL [-name NAME] [-role user|admin] [-dsn DSN]
//	dirctl hash
//
// The DSN defaults to SK_DIRECTORY_DSN, which may come from ./.env.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sessionkeeper/internal/directory"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const dsnEnv = "SK_DIRECTORY_DSN"

var errUsage = errors.New("usage: dirctl migrate|add|hash [flags]")

// readPassword and isTerminal are test seams for the x/term calls.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func main() {
	// A missing .env is fine; real environment variables are not overridden.
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "migrate":
		return migrate(ctx, args[1:])
	case "add":
		return add(ctx, args[1:], in, out)
	case "hash":
		return hash(in, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func migrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dsn := fs.String("dsn", os.Getenv(dsnEnv), "postgres DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDB(ctx, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return directory.Migrate(ctx, db)
}

type addArgs struct {
	dsn   string
	email string
	name  string
	role  session.Role
}

func parseAddArgs(args []string) (addArgs, error) {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var a addArgs
	var role string
	fs.StringVar(&a.dsn, "dsn", os.Getenv(dsnEnv), "postgres DSN")
	fs.StringVar(&a.email, "email", "", "user email")
	fs.StringVar(&a.name, "name", "", "display name")
	fs.StringVar(&role, "role", string(session.RoleUser), "user or admin")
	if err := fs.Parse(args); err != nil {
		return addArgs{}, err
	}

	a.email = session.NormalizeIdentifier(a.email)
	if a.email == "" {
		return addArgs{}, errors.New("add: -email is required")
	}

	r, err := session.ParseRole(role)
	if err != nil {
		return addArgs{}, fmt.Errorf("add: %w", err)
	}
	a.role = r

	if a.name == "" {
		a.name = a.email
	}
	return a, nil
}

func add(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	a, err := parseAddArgs(args)
	if err != nil {
		return err
	}

	encoded, err := promptHash(in, out)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, a.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	e := &directory.Entry{
		ID:           uuid.NewString(),
		Email:        a.email,
		PasswordHash: encoded,
		DisplayName:  a.name,
		Role:         string(a.role),
	}
	if err := directory.NewPostgres(db).Create(ctx, e); err != nil {
		return err
	}

	fmt.Fprintf(out, "added %s (%s) as %s\n", e.Email, e.ID, e.Role)
	return nil
}

func hash(in io.Reader, out io.Writer) error {
	encoded, err := promptHash(in, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, encoded)
	return nil
}

// promptHash reads a password (without echo on a terminal) and returns its
// argon2id encoding.
func promptHash(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter password: ")

	var pw []byte
	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		b, err := readPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		pw = b
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		pw = []byte(strings.TrimRight(line, "\r\n"))
	}
	defer common.WipeByteArray(pw)

	if len(pw) == 0 {
		return "", errors.New("password is empty")
	}
	return cryptox.HashPassword(pw, cryptox.DefaultArgon2idParams())
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("no DSN: pass -dsn or set %s", dsnEnv)
	}
	return directory.OpenPostgres(ctx, dsn)
}
