// Package logging configures log/slog for roomsync processes.
//
// Two backends are available. The std backend writes slog text in dev and
// JSON in stage/prod. The zap backend routes slog records into a sampled zap
// JSON core through slog-zap. Every record carries service, env, version and
// instance_id attributes.
//
//	logger := logging.Init(logging.Config{
//		Service: "roomsync",
//		Env:     logging.ParseEnv(os.Getenv("APP_ENV")),
//		Level:   slog.LevelDebug,
//	})
package logging
