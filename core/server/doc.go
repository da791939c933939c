// Package server runs the operational HTTP endpoints of a bus process:
// liveness and readiness checks and the Prometheus scrape endpoint.
//
// The server has graceful shutdown and an errgroup-friendly Run:
//
//	srv, err := server.NewFromConfig(cfg.HTTP, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	eg.Go(srv.Run(ctx, mux))
//
// Configuration is read from BUS_HTTP_* variables, see Config.
package server
