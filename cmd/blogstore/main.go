package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkrupp/homecase-blog/internal/infra/config"
	"github.com/mkrupp/homecase-blog/internal/infra/logging"
	"github.com/mkrupp/homecase-blog/internal/repo/comment"
	"github.com/mkrupp/homecase-blog/internal/repo/post"
	"github.com/mkrupp/homecase-blog/internal/repo/user"
	"github.com/mkrupp/homecase-blog/internal/store"
)

const (
	appName = "blog"
	svcName = "store"
)

type Config struct {
	config.EnvConfig

	Log logging.LoggerConfig `envPrefix:"LOG_"`
	DB  store.Config         `envPrefix:"DB_"`
}

// blogstore applies the schema to the configured database and reports the
// number of stored records.
func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.blogstore")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		}
	}()

	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	users, err := user.SQLUserRepositoryFactory()(db).Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	posts, err := post.SQLPostRepositoryFactory()(db).Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}

	comments, err := comment.SQLCommentRepositoryFactory()(db).Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}

	log.InfoContext(ctx, "schema up to date",
		logging.Group("db", "driver", db.Driver()),
		logging.Group("rows", "users", users, "posts", posts, "comments", comments),
	)

	return nil
}
