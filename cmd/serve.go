package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			d.cfg.Server.Addr = addr
		}

		ctx := cmd.Context()
		provider, orch, err := d.pipeline(ctx)
		if err != nil {
			return err
		}

		srv := server.New(server.Deps{
			Provider:     provider,
			Generation:   d.cfg.Generation,
			Orchestrator: orch,
			Log:          d.log,
			CORSOrigins:  d.cfg.Server.CORSOrigins,
			ServiceName:  d.cfg.Telemetry.ServiceName,
		})
		return srv.Run(ctx, d.cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :5001)")
}
