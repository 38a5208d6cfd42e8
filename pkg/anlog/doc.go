// Package anlog is a structured logging pipeline. Application code attaches
// key/value data to an event, the event is rendered into a compact single
// line, and the line is delivered to one or more sinks: the console, a
// file, a rotating set of files or a NATS subject, each optionally behind
// an asynchronous queue.
//
// A rendered line looks like:
//
//	2018-05-06 10:30:00.000 [WRN] c=handler.Login:42 user={ID=7 mail=a@b.c} attempt=3 w=login failed
//
// The caller tag is <file>.<function>:<line>. Values of any type can be
// appended: structs become objects of their exported fields (renamed or
// hidden with the `log` tag), slices become lists and maps become objects
// sorted by key. Struct descriptions are cached per type.
//
// Key Features:
//
//   - Compact, deterministic rendering with an optional ANSI theme
//   - Per-sink minimum levels that override the logger's
//   - Synchronous file sink that recreates its file when it is deleted
//   - Asynchronous sink that never blocks the caller and drains on close
//   - Rotation by period (day or hour) and by size, resumed after restarts
//   - Expiry of rotated files after a retention count of periods
//   - Process-safe appends with file locks (flock)
//   - Prometheus metrics for every sink
//
// Basic Usage:
//
//	logger := anlog.NewLogger(anlog.WithSinks(sink))
//	defer logger.Close(context.Background())
//
//	logger.Info("service started on %s", addr)
//	logger.Append("user", user).Append("attempt", 3).Warn("login failed")
//	logger.Append("file", path).ErrorWith(err, "upload failed")
//
// Building From Configuration:
//
//	cfg, err := anlog.LoadConfig("anlog.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	logger, err := anlog.New(cfg, anlog.WithRegisterer(prometheus.DefaultRegisterer))
//	if err != nil {
//		log.Fatal(err)
//	}
//	anlog.SetDefault(logger)
//	defer anlog.Shutdown(context.Background())
//
// with anlog.yaml such as:
//
//	minimum_level: info
//	console:
//	  enabled: true
//	  theme: auto
//	rolling:
//	  dir: /var/log/app
//	  period: day
//	  max_size: 10485760
//	  retention: 7
//	  async: true
//
// Sinks can also be composed by hand from package backends:
//
//	file, err := backends.NewRotatingFileSink(backends.RotatingConfig{
//		Dir:       "/var/log/app",
//		Period:    features.Hour,
//		Retention: 48,
//	}, backends.WithMinimumLevel(types.LevelPtr(types.LevelInfo)))
//	if err != nil {
//		log.Fatal(err)
//	}
//	logger := anlog.NewLogger(anlog.WithSinks(backends.NewAsyncSink(file)))
//
// Failures inside the pipeline never reach the caller. They are passed to
// the sink's error handler, which by default prints rate-limited messages
// to stderr.
package anlog
