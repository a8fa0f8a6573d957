package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
	"github.com/KaramelBytes/unstructiq-cli/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser front-end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}
		opts := session.DefaultOptions()
		opts.MaxUploadBytes = cfg.MaxUploadBytes
		opts.Stages.Delay = stageDelay()
		srv, err := web.NewServer(web.Config{
			Backend:  newClient(),
			Session:  opts,
			Renderer: charts.NewRenderer(cfg.ChartWidth, cfg.ChartHeight),
			Logger:   logrus.StandardLogger(),
		})
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving UnstructIQ on http://%s (backend %s)\n", addr, cfg.BaseURL)
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: listen_addr from config)")
}
