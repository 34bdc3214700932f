package postsource

import (
	"go.uber.org/fx"
)

var Module = fx.Module("post_source",
	fx.Provide(
		NewPgx,
		fx.Annotate(
			func(repo *Pgx) Source {
				return repo
			},
			fx.As(new(Source)),
		),
		NewCleanupScheduler,
	),
)
