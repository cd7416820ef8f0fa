package gateway

import (
	"fmt"
	"strings"
)

// APIVersion is the pinned gateway contract every request is sent against.
const APIVersion = "2023-08-01"

const (
	sandboxBaseURL    = "https://sandbox.cashfree.com/pg"
	productionBaseURL = "https://api.cashfree.com/pg"
)

// Environment selects which gateway host receives requests.
type Environment string

const (
	// Sandbox routes calls to the test host. It is the default.
	Sandbox Environment = "sandbox"
	// Production routes calls to the live host.
	Production Environment = "production"
)

// ParseEnvironment normalises a configured environment flag. An empty value
// selects Sandbox; anything unrecognised is rejected.
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "sandbox", "test":
		return Sandbox, nil
	case "production", "prod", "live":
		return Production, nil
	default:
		return "", fmt.Errorf("gateway: unknown environment %q (want sandbox or production)", value)
	}
}

// BaseURL returns the fixed host for the environment.
func (e Environment) BaseURL() string {
	if e == Production {
		return productionBaseURL
	}
	return sandboxBaseURL
}

func (e Environment) String() string {
	if e == "" {
		return string(Sandbox)
	}
	return string(e)
}
