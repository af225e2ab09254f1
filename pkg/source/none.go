package source

import "context"

// None never builds anything so the stream always shows the diagnostic frame.
type None struct{}

func (None) Build(context.Context, float64, int, int) (Renderable, error) { return nil, nil }

func (None) String() string { return "none" }
