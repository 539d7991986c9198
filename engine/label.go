package engine

import (
	"fmt"
	"strings"
)

// Label builds the human-readable line for one item result.
// template is only used by KindComment and may be empty.
func Label(kind Kind, item string, outcome Outcome, template string) string {
	ok := outcome == OutcomeSuccess
	user := "@" + strings.TrimPrefix(item, "@")

	switch kind {
	case KindAccountCheck:
		if ok {
			return "valid: " + item
		}
		return "invalid: " + item
	case KindFollow:
		if ok {
			return "followed " + user
		}
		return "failed to follow " + user
	case KindLike:
		tag := "#" + strings.TrimPrefix(item, "#")
		if ok {
			return "liked post from " + tag
		}
		return "failed to like post from " + tag
	case KindComment:
		if !ok {
			return "failed to comment on " + item
		}
		if template == "" {
			return "commented on " + item
		}
		return fmt.Sprintf("commented %q on %s", template, item)
	case KindUsernameCheck:
		if ok {
			return user + " is available"
		}
		return user + " is taken"
	case KindAvatarGrab:
		if ok {
			return "grabbed avatar for " + user
		}
		return "failed to grab avatar for " + user
	case KindStoryView:
		if ok {
			return "viewed story from " + user
		}
		return "failed to view story from " + user
	case KindDownload:
		if ok {
			return "downloaded " + item
		}
		return "failed to download " + item
	default:
		return fmt.Sprintf("%s: %s", outcome, item)
	}
}

// Describe renders a completion line for the activity feed.
func Describe(s Summary) string {
	verb := "completed"
	if s.Cancelled {
		verb = "stopped"
	}

	switch s.Kind {
	case KindAccountCheck:
		return fmt.Sprintf("account checking %s: %d valid, %d invalid", verb, s.Succeeded, s.Failed)
	case KindFollow:
		return fmt.Sprintf("follow bot %s: %d followed, %d failed", verb, s.Succeeded, s.Failed)
	case KindLike:
		return fmt.Sprintf("like bot %s: %d liked, %d failed", verb, s.Succeeded, s.Failed)
	case KindComment:
		return fmt.Sprintf("comment bot %s: %d commented, %d failed", verb, s.Succeeded, s.Failed)
	case KindUsernameCheck:
		return fmt.Sprintf("username checking %s: %d available, %d taken", verb, s.Succeeded, s.Failed)
	case KindAvatarGrab:
		return fmt.Sprintf("avatar grabbing %s: %d grabbed, %d failed", verb, s.Succeeded, s.Failed)
	case KindStoryView:
		return fmt.Sprintf("stories viewing %s: %d viewed, %d failed", verb, s.Succeeded, s.Failed)
	case KindDownload:
		return fmt.Sprintf("media downloading %s: %d downloaded, %d failed", verb, s.Succeeded, s.Failed)
	default:
		return fmt.Sprintf("operation %s: %d succeeded, %d failed", verb, s.Succeeded, s.Failed)
	}
}
