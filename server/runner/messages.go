package runner

import (
	"errors"
	"fmt"

	"github.com/nomis52/neongrid/engine"
)

var emptyInputMessages = map[engine.Kind]string{
	engine.KindAccountCheck:  "Please select a combo file",
	engine.KindFollow:        "Please enter target usernames",
	engine.KindLike:          "Please enter target hashtags",
	engine.KindComment:       "Please enter comment templates and target posts",
	engine.KindUsernameCheck: "Please enter usernames to check",
	engine.KindAvatarGrab:    "Please enter usernames",
	engine.KindStoryView:     "Please enter usernames",
	engine.KindDownload:      "Please enter media URLs",
}

// startFailure converts a start error into the notification shown to the user.
func startFailure(kind engine.Kind, err error) (engine.Level, string) {
	switch {
	case errors.Is(err, engine.ErrAlreadyRunning):
		return engine.LevelWarning, "Another operation is already running"
	case errors.Is(err, engine.ErrEmptyInput):
		if msg, ok := emptyInputMessages[kind]; ok {
			return engine.LevelError, msg
		}
		return engine.LevelError, "Please enter at least one item"
	default:
		return engine.LevelError, err.Error()
	}
}

func startedMessage(snap engine.RunSnapshot) string {
	return fmt.Sprintf("%s started with %d items", displayName(snap.Kind), snap.Limit)
}

func displayName(kind engine.Kind) string {
	switch kind {
	case engine.KindAccountCheck:
		return "Account checker"
	case engine.KindFollow:
		return "Follow bot"
	case engine.KindLike:
		return "Like bot"
	case engine.KindComment:
		return "Comment bot"
	case engine.KindUsernameCheck:
		return "Username checker"
	case engine.KindAvatarGrab:
		return "Avatar grabber"
	case engine.KindStoryView:
		return "Story viewer"
	case engine.KindDownload:
		return "Downloader"
	default:
		return kind.String()
	}
}
