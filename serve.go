package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/breadoorr/SmartPlan/pkg/server"
	"github.com/breadoorr/SmartPlan/pkg/timeline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on PORT (default 3001).

POST /api/generate-tasks turns {"userInput": "..."} into {"tasks": [...]}.
Plans are also readable and editable under /api/plans/:key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		gin.SetMode(cfg.Server.Mode)

		p, err := newPlanner(context.Background(), cfg)
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		srv := server.New(p, st, timeline.Options{
			SlotHeight: cfg.Timeline.SlotHeight,
			MinHeight:  cfg.Timeline.MinHeight,
		})

		log.Printf("Server running on port %s", cfg.Server.Port)
		return srv.Run(":" + cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}
