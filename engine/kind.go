package engine

import (
	"fmt"
	"strings"
)

// Kind identifies which simulated operation a run performs.
type Kind int

const (
	// KindAccountCheck checks combo lines and sorts them into valid and invalid.
	KindAccountCheck Kind = iota + 1
	// KindFollow follows target usernames.
	KindFollow
	// KindLike likes posts from target hashtags.
	KindLike
	// KindComment comments on target posts using comment templates.
	KindComment
	// KindUsernameCheck checks usernames for availability.
	KindUsernameCheck
	// KindAvatarGrab grabs avatars for usernames.
	KindAvatarGrab
	// KindStoryView views stories of usernames.
	KindStoryView
	// KindDownload downloads media URLs.
	KindDownload
)

var kindNames = map[Kind]string{
	KindAccountCheck:  "account_check",
	KindFollow:        "follow",
	KindLike:          "like",
	KindComment:       "comment",
	KindUsernameCheck: "username_check",
	KindAvatarGrab:    "avatar_grab",
	KindStoryView:     "story_view",
	KindDownload:      "download",
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindAccountCheck,
		KindFollow,
		KindLike,
		KindComment,
		KindUsernameCheck,
		KindAvatarGrab,
		KindStoryView,
		KindDownload,
	}
}

// String returns the text form of the kind, e.g. "account_check".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is a defined kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts the text form of a kind back into a Kind.
// Dashes are accepted in place of underscores and case is ignored.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
