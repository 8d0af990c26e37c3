package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	pkgauth "github.com/matiasleandrokruk/fenixmcp/pkg/auth"
)

func cmdKeys(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: keys needs a subcommand: issue, list or revoke", errUsage)
	}
	switch sub, rest := args[0], args[1:]; sub {
	case "issue":
		return cmdKeysIssue(rest, out)
	case "list":
		return cmdKeysList(rest, out)
	case "revoke":
		return cmdKeysRevoke(rest, out)
	default:
		return fmt.Errorf("%w: unknown keys subcommand %q", errUsage, sub)
	}
}

func cmdKeysIssue(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("keys issue")
	common.register(fs)
	org := fs.String("org", "", "organization id (required)")
	owner := fs.String("owner", "", "acting user id the key runs as (required)")
	label := fs.String("label", "", "free-form label")
	signed := fs.Bool("signed", false, "also print an HS256 signed form of the key (needs auth.jwt_secret)")
	ttl := fs.Duration("ttl", 0, "expiry of the signed form; 0 means no expiry")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *org == "" || *owner == "" {
		return fmt.Errorf("%w: keys issue: --org and --owner are required", errUsage)
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *signed && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: keys issue: --signed needs auth.jwt_secret (FENIX_JWT_SECRET)", errUsage)
	}

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	issued, err := identity.NewStore(db).Issue(context.Background(), identity.IssueInput{
		OrganizationID: *org,
		OwnerUserID:    *owner,
		Label:          *label,
		BCryptCost:     cfg.Auth.BCryptCost,
	})
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Fprintf(out, "Key ID:        %s\n", issued.Record.ID)             //nolint:errcheck
	fmt.Fprintf(out, "Organization:  %s\n", issued.Record.OrganizationID) //nolint:errcheck
	fmt.Fprintf(out, "Acting user:   %s\n", issued.Record.OwnerUserID)    //nolint:errcheck
	green.Fprintf(out, "API key:       %s\n", issued.Key)                 //nolint:errcheck
	if *signed {
		token, err := pkgauth.SignKey([]byte(cfg.Auth.JWTSecret), *org, issued.Record.ID, *ttl)
		if err != nil {
			return err
		}
		green.Fprintf(out, "Signed key:    %s\n", token) //nolint:errcheck
	}
	yellow.Fprintln(out, "Store the key now: it cannot be shown again.") //nolint:errcheck
	return nil
}

func cmdKeysList(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("keys list")
	common.register(fs)
	org := fs.String("org", "", "organization id (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *org == "" {
		return fmt.Errorf("%w: keys list: --org is required", errUsage)
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	records, err := identity.NewStore(db).List(context.Background(), *org)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No API keys for organization %s\n", *org) //nolint:errcheck
		return nil
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tLABEL\tCREATED\tSTATUS") //nolint:errcheck
	for _, rec := range records {
		status := green.Sprint("active")
		if rec.Revoked() {
			status = red.Sprintf("revoked %s", rec.RevokedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.ID, rec.OwnerUserID, rec.Label, rec.CreatedAt.Format(time.RFC3339), status) //nolint:errcheck
	}
	return w.Flush()
}

func cmdKeysRevoke(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("keys revoke")
	common.register(fs)
	org := fs.String("org", "", "organization id (required)")
	id := fs.String("id", "", "key id (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *org == "" || *id == "" {
		return fmt.Errorf("%w: keys revoke: --org and --id are required", errUsage)
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if err := identity.NewStore(db).Revoke(context.Background(), *org, *id); err != nil {
		if errors.Is(err, identity.ErrCredentialNotFound) {
			return fmt.Errorf("no key %s in organization %s", *id, *org)
		}
		return err
	}
	color.New(color.FgYellow).Fprintf(out, "Revoked key %s\n", *id) //nolint:errcheck
	return nil
}
