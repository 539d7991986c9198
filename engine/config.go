package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default success probabilities per kind. These are presentation defaults,
// not business rules; config files may override them.
const (
	DefaultAccountCheckProbability  = 0.30
	DefaultFollowProbability        = 0.80
	DefaultLikeProbability          = 0.85
	DefaultCommentProbability       = 0.75
	DefaultUsernameCheckProbability = 0.20
	DefaultAvatarGrabProbability    = 1.0
	DefaultStoryViewProbability     = 1.0
	DefaultDownloadProbability      = 1.0
)

// Default step intervals per kind.
const (
	DefaultAccountCheckInterval  = 100 * time.Millisecond
	DefaultFollowInterval        = 30 * time.Second
	DefaultLikeInterval          = 15 * time.Second
	DefaultCommentInterval       = 60 * time.Second
	DefaultUsernameCheckInterval = 100 * time.Millisecond
	DefaultAvatarGrabInterval    = 200 * time.Millisecond
	DefaultStoryViewInterval     = 200 * time.Millisecond
	DefaultDownloadInterval      = time.Second
)

// Default item limits and delays.
const (
	DefaultFollowMaxItems = 50
	DefaultLikeMaxItems   = 100
	DefaultDownloadDelay  = time.Second
)

var validate = validator.New()

// Config holds the per-kind parameters of a run.
type Config struct {
	// SuccessProbability is the chance in [0,1] that an item succeeds.
	SuccessProbability float64 `yaml:"success_probability" validate:"gte=0,lte=1"`
	// StepInterval is the time between ticks of the step loop.
	StepInterval time.Duration `yaml:"step_interval" validate:"gt=0"`
	// MaxItems caps the number of processed items. Zero means no cap.
	MaxItems int `yaml:"max_items" validate:"gte=0"`
	// ItemDelay is the simulated processing time attached to each item result.
	// It does not delay the step loop.
	ItemDelay time.Duration `yaml:"item_delay" validate:"gte=0"`
}

// DefaultConfig returns the built-in config for kind.
func DefaultConfig(kind Kind) Config {
	switch kind {
	case KindAccountCheck:
		return Config{SuccessProbability: DefaultAccountCheckProbability, StepInterval: DefaultAccountCheckInterval}
	case KindFollow:
		return Config{SuccessProbability: DefaultFollowProbability, StepInterval: DefaultFollowInterval, MaxItems: DefaultFollowMaxItems}
	case KindLike:
		return Config{SuccessProbability: DefaultLikeProbability, StepInterval: DefaultLikeInterval, MaxItems: DefaultLikeMaxItems}
	case KindComment:
		return Config{SuccessProbability: DefaultCommentProbability, StepInterval: DefaultCommentInterval}
	case KindUsernameCheck:
		return Config{SuccessProbability: DefaultUsernameCheckProbability, StepInterval: DefaultUsernameCheckInterval}
	case KindAvatarGrab:
		return Config{SuccessProbability: DefaultAvatarGrabProbability, StepInterval: DefaultAvatarGrabInterval}
	case KindStoryView:
		return Config{SuccessProbability: DefaultStoryViewProbability, StepInterval: DefaultStoryViewInterval}
	case KindDownload:
		return Config{SuccessProbability: DefaultDownloadProbability, StepInterval: DefaultDownloadInterval, ItemDelay: DefaultDownloadDelay}
	default:
		return Config{}
	}
}

// Validate checks the config and returns an error wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Limit returns the number of items a run over n inputs will process.
func (c Config) Limit(n int) int {
	if c.MaxItems > 0 && c.MaxItems < n {
		return c.MaxItems
	}
	return n
}

type configJSON struct {
	SuccessProbability float64 `json:"success_probability"`
	StepInterval       string  `json:"step_interval"`
	MaxItems           int     `json:"max_items,omitempty"`
	ItemDelay          string  `json:"item_delay,omitempty"`
}

// MarshalJSON renders durations in their string form.
func (c Config) MarshalJSON() ([]byte, error) {
	out := configJSON{
		SuccessProbability: c.SuccessProbability,
		StepInterval:       c.StepInterval.String(),
		MaxItems:           c.MaxItems,
	}
	if c.ItemDelay > 0 {
		out.ItemDelay = c.ItemDelay.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the form written by MarshalJSON.
func (c *Config) UnmarshalJSON(data []byte) error {
	var in configJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	interval, err := time.ParseDuration(in.StepInterval)
	if err != nil {
		return fmt.Errorf("step_interval: %w", err)
	}
	var delay time.Duration
	if in.ItemDelay != "" {
		if delay, err = time.ParseDuration(in.ItemDelay); err != nil {
			return fmt.Errorf("item_delay: %w", err)
		}
	}

	*c = Config{
		SuccessProbability: in.SuccessProbability,
		StepInterval:       interval,
		MaxItems:           in.MaxItems,
		ItemDelay:          delay,
	}
	return nil
}
