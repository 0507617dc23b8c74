// Package views decides whether a question view should count. A viewer is
// counted at most once per question within the window.
package views

import (
	"context"
	"time"
)

// Window is how long a counted view suppresses repeats from the same viewer.
const Window = time.Hour

// Tracker admits at most one view per (question, viewer) within Window.
type Tracker interface {
	// Admit reports whether this view counts. It records the view when it does.
	Admit(ctx context.Context, questionID, viewerKey string) (bool, error)
}

func key(questionID, viewerKey string) string {
	return "views:" + questionID + ":" + viewerKey
}
