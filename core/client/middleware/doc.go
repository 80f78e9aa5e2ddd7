// Package middleware provides built-in middleware for the client. Each one is
// constructed via a New* function that returns a [client.MiddlewareConfig]
// ready to be passed to [client.WithMiddleware].
//
//   - [NewTimeoutMiddleware]: per-request deadline via context.WithTimeout, so a
//     stalled provider call cannot block a program indefinitely.
//   - [NewLoggingMiddleware]: structured slog entries before and after every
//     provider call, at three verbosity levels.
//
// Provider calls are never retried; a failed call is reported to the caller
// as is.
//
//	c, err := client.New(provider,
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(60*time.Second),
//	        middleware.NewLoggingMiddleware(logger, middleware.LogLevelStandard),
//	    ),
//	)
//
// Middlewares execute outermost-first: Timeout → Logging → Provider.
package middleware
