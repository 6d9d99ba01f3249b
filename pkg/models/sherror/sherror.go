package sherror

import (
	"errors"
	"fmt"
)

const (
	SH_UNEXPECTED           = "SHUNE"
	SH_MALFORMED_KEY        = "SHKEY"
	SH_INVALID_LOCATOR      = "SHLOC"
	SH_UNKNOWN_SHARD        = "SHUNK"
	SH_SHARD_DISABLED       = "SHDIS"
	SH_UPDATE_NOT_ALLOWED   = "SHUPD"
	SH_NO_ELIGIBLE_SHARD    = "SHELG"
	SH_TOPOLOGY_UNAVAILABLE = "SHTOP"
	SH_SHARD_UNREACHABLE    = "SHNET"
	SH_NOT_FOUND            = "SHNOF"
	SH_METADATA_CORRUPTION  = "SHMDC"
	SH_INVALID_REQUEST      = "SHREQ"
)

var existingErrorCodeMap = map[string]string{
	SH_MALFORMED_KEY:        "MalformedKey",
	SH_INVALID_LOCATOR:      "InvalidLocator",
	SH_UNKNOWN_SHARD:        "UnknownShard",
	SH_SHARD_DISABLED:       "ShardDisabled",
	SH_UPDATE_NOT_ALLOWED:   "UpdateNotAllowed",
	SH_NO_ELIGIBLE_SHARD:    "NoEligibleShard",
	SH_TOPOLOGY_UNAVAILABLE: "TopologyUnavailable",
	SH_SHARD_UNREACHABLE:    "ShardUnreachable",
	SH_NOT_FOUND:            "NotFound",
	SH_METADATA_CORRUPTION:  "MetadataCorruption",
	SH_INVALID_REQUEST:      "InvalidRequest",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &ShardError{}

type ShardError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *ShardError {
	return &ShardError{
		Err:       errors.New(errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *ShardError {
	return &ShardError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func (er *ShardError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *ShardError) Unwrap() error {
	return er.Err
}

// CodeOf extracts the five-letter error code from err. Errors that do not
// carry a code report SH_UNEXPECTED.
func CodeOf(err error) string {
	var she *ShardError
	if errors.As(err, &she) {
		return she.ErrorCode
	}
	return SH_UNEXPECTED
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, errorCode string) bool {
	var she *ShardError
	if errors.As(err, &she) {
		return she.ErrorCode == errorCode
	}
	return false
}
