package teams

import "errors"

// ErrNoAppearance reports a crop without an appearance descriptor.
var ErrNoAppearance = errors.New("crop has no appearance descriptor")
