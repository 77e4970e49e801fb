// Package bootstrap provides application initialization and lifecycle management.
// Startup runs as an ordered pipeline of named steps: config, application,
// database, routes, listen.
//
// Usage:
//
//	app, err := bootstrap.NewApp(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := app.Start(ctx); err != nil {
//	    app.Close(ctx)
//	    log.Fatal(err)
//	}
//
//	// Blocks until the HTTP server stops
//	err = app.Wait()
package bootstrap
