package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/andaleebali/terraclass/internal/forest"
	"github.com/andaleebali/terraclass/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the trained model over HTTP",
		Long: `Serve loads the trained model and answers classification requests over
HTTP until interrupted.

Endpoints:

  POST /classify  classify one tile image
  GET  /model     model manifest
  GET  /healthz   liveness probe`,
		Example: `  terraclass serve
  terraclass serve --addr :9000 --model models/fields.bin`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := GetConfig(ctx)
	if err != nil {
		return err
	}
	logger := GetLogger(ctx)

	model, err := forest.LoadModel(cfg.ModelPath)
	if err != nil {
		return err
	}
	logger.Info("model loaded",
		slog.String("path", cfg.ModelPath),
		slog.Any("classes", model.Manifest.Classes),
		slog.Int("trees", len(model.Forest.Trees)))

	srv, err := server.New(model, logger)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.ServeAddr)
}
