package sl

import (
	"io"
	"log/slog"
)

// New создаёт логгер для окружения env: текстовый с Debug локально,
// JSON с Info в dev и prod.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case "dev", "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
