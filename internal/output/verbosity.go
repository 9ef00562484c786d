package output

import (
	"fmt"
	"os"
	"strings"
)

// VerbosityEnv overrides the default text verbosity
const VerbosityEnv = "CODEIMPACT_VERBOSITY"

// ParseVerbosity accepts quiet, standard or explain
func ParseVerbosity(name string) (VerbosityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "quiet":
		return VerbosityQuiet, nil
	case "", "standard":
		return VerbosityStandard, nil
	case "explain":
		return VerbosityExplain, nil
	default:
		return VerbosityStandard, fmt.Errorf("unknown verbosity %q (want quiet, standard or explain)", name)
	}
}

// GetDefaultVerbosity returns the level used when no flag is given
func GetDefaultVerbosity() VerbosityLevel {
	if name := os.Getenv(VerbosityEnv); name != "" {
		if level, err := ParseVerbosity(name); err == nil {
			return level
		}
	}

	// Git hooks want a single line
	if os.Getenv("GIT_AUTHOR_DATE") != "" {
		return VerbosityQuiet
	}
	return VerbosityStandard
}
