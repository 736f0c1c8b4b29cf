// Package logx is homeworkbot's logging layer.
//
// Components receive a Logger, derive their own with With(String("comp", ...))
// and log through zerolog. A Service owns the outputs: a console writer, an
// optional JSON file and an optional chat sink that forwards ERROR lines to a
// Telegram log group. Apply swaps outputs at runtime; Loggers handed out
// earlier follow the change.
package logx
