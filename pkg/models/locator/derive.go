package locator

import (
	"fmt"
	"math"

	"github.com/go-faster/city"
	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/spaolacci/murmur3"
)

type DeriveFunctionType int

/* Pre-defined locator derivation functions */
const (
	DeriveFunctionIdent  = DeriveFunctionType(0)
	DeriveFunctionMurmur = DeriveFunctionType(1)
	DeriveFunctionCity   = DeriveFunctionType(2)
)

// DerivePrefix maps a shard name onto a fixed-width decimal locator. Ident
// requires the name itself to already be a well-formed locator; murmur and
// city hash the name and fold it into the locator space. Widths above 18
// overflow the fold and are rejected.
//
// Parameters:
//   - name: The shard name to derive from.
//   - width: The locator width in characters.
//   - df: The derivation function to apply.
//
// Returns:
//   - string: The derived locator.
//   - error: An error if the derivation is not possible.
func DerivePrefix(name string, width int, df DeriveFunctionType) (string, error) {
	if width <= 0 || width > 18 {
		return "", sherror.Newf(sherror.SH_INVALID_LOCATOR, "unsupported locator width %d", width)
	}

	switch df {
	case DeriveFunctionIdent:
		if len(name) != width {
			return "", sherror.Newf(sherror.SH_INVALID_LOCATOR,
				"name \"%s\" has width %d, want %d", name, len(name), width)
		}
		return name, nil
	case DeriveFunctionMurmur:
		h := murmur3.Sum64([]byte(name))
		return foldDecimal(h, width), nil
	case DeriveFunctionCity:
		h := city.Hash64([]byte(name))
		return foldDecimal(h, width), nil
	default:
		return "", fmt.Errorf("unknown derive function type: %d", df)
	}
}

func foldDecimal(h uint64, width int) string {
	mod := uint64(math.Pow10(width))
	return fmt.Sprintf("%0*d", width, h%mod)
}

// DeriveFunctionByName returns the corresponding DeriveFunctionType based on
// the given function name.
func DeriveFunctionByName(dfn string) (DeriveFunctionType, error) {
	switch dfn {
	case "identity", "ident", "":
		return DeriveFunctionIdent, nil
	case "murmur":
		return DeriveFunctionMurmur, nil
	case "city":
		return DeriveFunctionCity, nil
	default:
		return 0, fmt.Errorf("unknown derive function type: %s", dfn)
	}
}

// ToString converts a DeriveFunctionType to its corresponding string
// representation. If the input is not recognized, an empty string is
// returned.
func ToString(df DeriveFunctionType) string {
	switch df {
	case DeriveFunctionIdent:
		return "identity"
	case DeriveFunctionMurmur:
		return "murmur"
	case DeriveFunctionCity:
		return "city"
	}
	return ""
}
