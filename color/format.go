package color

//go:generate go tool go-enum --names

// Textual variant of a color string, detected structurally.
// ENUM(unknown, rgba, hex, hsla)
type Format int
