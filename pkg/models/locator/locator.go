package locator

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shardrepo/shardrepo/pkg/models/sherror"
)

// Codec encodes and decodes the fixed-width shard locator embedded at the
// head of every entity key. It is stateless and safe for concurrent use.
type Codec struct {
	width int
}

// NewCodec returns a codec for locators of the given width.
//
// Parameters:
//   - width: The locator width in characters, identical across the topology.
//
// Returns:
//   - *Codec: The codec.
//   - error: An error if the width is not positive.
func NewCodec(width int) (*Codec, error) {
	if width <= 0 {
		return nil, sherror.Newf(sherror.SH_INVALID_LOCATOR, "locator width must be positive, got %d", width)
	}
	return &Codec{width: width}, nil
}

func (c *Codec) Width() int {
	return c.width
}

// Encode composes a full entity key from a locator and a shard-local suffix.
func (c *Codec) Encode(loc string, suffix string) (string, error) {
	if len(loc) != c.width {
		return "", sherror.Newf(sherror.SH_INVALID_LOCATOR,
			"locator \"%s\" has width %d, want %d", loc, len(loc), c.width)
	}
	return loc + suffix, nil
}

// Decode extracts the locator from an entity key.
func (c *Codec) Decode(key string) (string, error) {
	if len(key) < c.width {
		return "", sherror.Newf(sherror.SH_MALFORMED_KEY,
			"key \"%s\" is shorter than locator width %d", key, c.width)
	}
	return key[:c.width], nil
}

// Split returns the locator and the shard-local remainder of an entity key.
func (c *Codec) Split(key string) (string, string, error) {
	loc, err := c.Decode(key)
	if err != nil {
		return "", "", err
	}
	return loc, key[c.width:], nil
}

// NewSuffix generates a fresh shard-local key suffix.
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
