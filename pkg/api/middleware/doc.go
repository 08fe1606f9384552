// Package middleware provides the HTTP middleware of the console API.
//
// Every middleware has the shape func(http.Handler) http.Handler so it can
// be passed to gorilla/mux's Router.Use or chained by hand:
//
//	router := mux.NewRouter()
//	router.Use(middleware.RequestID())
//	router.Use(middleware.PanicRecovery(logger))
//	router.Use(middleware.Logging(logger))
//	router.Use(middleware.Metrics(registry))
//	router.Use(middleware.CORS(cfg.CORSOrigins))
package middleware
