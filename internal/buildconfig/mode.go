package buildconfig

import "fmt"

// Mode controls optimisation and debug behaviour of the bundler.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// ModeFromEnv returns ModeProduction only when NODE_ENV is exactly
// "production". Anything else, including an absent variable, is development.
func ModeFromEnv(env Env) Mode {
	if env[ModeEnvVar] == string(ModeProduction) {
		return ModeProduction
	}
	return ModeDevelopment
}

func (m Mode) IsProduction() bool {
	return m == ModeProduction
}

func (m Mode) Valid() bool {
	return m == ModeDevelopment || m == ModeProduction
}

func (m Mode) String() string {
	return string(m)
}

// ParseMode is used by callers that accept a mode on the command line.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}
