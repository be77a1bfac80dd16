// Command api-server serves the product catalog API and its static files.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	catalogapp "github.com/xenking/product-catalog/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := catalogapp.LoadConfig()
		if err != nil {
			return err
		}
		return catalogapp.Run(ctx, lg, m, cfg)
	})
}
