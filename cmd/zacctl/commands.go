package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	catalogclient "zac/internal/catalog/client"
	"zac/internal/catalog/static"
	cfgmodels "zac/internal/configuration/models"
	"zac/internal/configuration/resolver"
	cfgstore "zac/internal/configuration/store"
	jwttoken "zac/internal/jwt_token"
	"zac/internal/platform/database"
	id "zac/pkg/domain"
	"zac/pkg/requestcontext"
)

const cliActor = "zacctl"

type migrateCmd struct {
	Status bool `help:"List migrations and their state instead of applying them."`
}

func (c *migrateCmd) Run(e *env) error {
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if !c.Status {
		if err := database.Migrate(e.ctx, db); err != nil {
			return err
		}
		e.logger.Info("migrations applied")
		return nil
	}
	statuses, err := database.Status(e.ctx, db)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	return tw.Flush()
}

type publishCmd struct {
	Version string `help:"Only replay this case-type version id." placeholder:"UUID"`
}

// Run feeds published case types to the resolver as if the catalog had just
// announced them. Versions that already have a configuration are revalidated.
func (c *publishCmd) Run(e *env) error {
	res, closeFn, err := e.resolver()
	if err != nil {
		return err
	}
	defer closeFn()

	cat, err := e.catalog()
	if err != nil {
		return err
	}
	ctx := requestcontext.WithActor(e.ctx, cliActor)

	var notifications []cfgmodels.VersionPublished
	if c.Version != "" {
		versionID, err := id.ParseCaseTypeVersionID(c.Version)
		if err != nil {
			return err
		}
		ct, err := cat.ReadCaseType(ctx, versionID)
		if err != nil {
			return err
		}
		notifications = append(notifications, cfgmodels.FromCaseType(ct))
	} else {
		published, err := cat.ListPublished(ctx)
		if err != nil {
			return err
		}
		for _, ct := range published {
			notifications = append(notifications, cfgmodels.FromCaseType(ct))
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tOUTCOME")
	var failed error
	for _, n := range notifications {
		outcome, err := res.OnVersionPublished(ctx, n)
		if err != nil {
			failed = errors.Join(failed, fmt.Errorf("%s: %w", n.VersionID, err))
			fmt.Fprintf(tw, "%s\t%s\terror\n", n.VersionID, n.Description)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.VersionID, n.Description, outcome)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return failed
}

type showConfigCmd struct {
	Version string `arg:"" help:"Case-type version id." placeholder:"UUID"`
}

func (c *showConfigCmd) Run(e *env) error {
	versionID, err := id.ParseCaseTypeVersionID(c.Version)
	if err != nil {
		return err
	}
	res, closeFn, err := e.resolver()
	if err != nil {
		return err
	}
	defer closeFn()

	cfg, err := res.Get(e.ctx, versionID)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(toDocument(cfg)); err != nil {
		return err
	}
	return enc.Close()
}

type importConfigCmd struct {
	File string `arg:"" help:"YAML configuration document." type:"existingfile"`
}

func (c *importConfigCmd) Run(e *env) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := parseDocument(f)
	if err != nil {
		return err
	}
	cfg, err := doc.toModel()
	if err != nil {
		return err
	}

	res, closeFn, err := e.resolver()
	if err != nil {
		return err
	}
	defer closeFn()

	saved, err := res.Update(requestcontext.WithActor(e.ctx, cliActor), cfg)
	if err != nil {
		return err
	}
	e.logger.Info("configuration imported",
		"version_id", saved.CaseTypeVersionID,
		"description", saved.CaseTypeDescription,
	)
	return nil
}

type issueTokenCmd struct {
	Subject string        `required:"" help:"Employee user id."`
	Name    string        `help:"Display name."`
	Group   []string      `help:"Group membership, repeatable."`
	TTL     time.Duration `default:"1h" help:"Token lifetime."`
}

func (c *issueTokenCmd) Run(e *env) error {
	if e.cfg.Auth.JWTSigningKey == "" {
		return errors.New("AUTH_JWT_SIGNING_KEY is not set")
	}
	svc := jwttoken.NewJWTService(e.cfg.Auth.JWTSigningKey, e.cfg.Auth.JWTIssuer, e.cfg.Auth.JWTAudience)
	token, err := svc.GenerateAccessToken(c.Subject, c.Name, c.Group, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func (e *env) openDB() (*sql.DB, error) {
	if e.cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return database.Open(e.ctx, e.cfg.Database)
}

// catalog reads case types from the catalog API when configured, otherwise
// from the YAML catalog file.
func (e *env) catalog() (resolver.Catalog, error) {
	switch {
	case e.cfg.Catalog.BaseURL != "":
		session := catalogclient.NewTokenSession(e.cfg.Catalog.ClientID, e.cfg.Catalog.ClientSecret, 0)
		return catalogclient.New(e.cfg.Catalog.BaseURL, session,
			catalogclient.WithHTTPClient(&http.Client{Timeout: e.cfg.Catalog.Timeout}),
			catalogclient.WithLogger(e.logger),
		)
	case e.cfg.Catalog.File != "":
		return static.Load(e.cfg.Catalog.File)
	default:
		return nil, errors.New("either CATALOG_BASE_URL or CATALOG_FILE must be set")
	}
}

func (e *env) resolver() (*resolver.Resolver, func(), error) {
	db, err := e.openDB()
	if err != nil {
		return nil, nil, err
	}
	cat, err := e.catalog()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	res, err := resolver.New(cfgstore.NewPostgres(db), cat, resolver.WithLogger(e.logger))
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return res, func() { _ = db.Close() }, nil
}
