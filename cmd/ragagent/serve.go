package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/Prasann123/Tradition-RAG/internal/runtime"
	srv "github.com/Prasann123/Tradition-RAG/internal/server"
)

func serveCMD() *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := runtime.ShutdownContext(context.Background(), log.Default())
			defer cancel()
			return srv.Run(ctx, cfg, serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.address)")
	return serve
}
