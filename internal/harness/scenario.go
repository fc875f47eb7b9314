package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative conformance test: a sequence of operations
// submitted through the write path, followed by assertions over the
// resulting state. Every scenario is additionally re-verified after a full
// log replay into a fresh set of machines.
type Scenario struct {
	// Name uniquely identifies the scenario; it is also the golden file
	// base name.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Definitions is inline CUE source declaring currencies (supply caps
	// etc). Optional.
	Definitions string `yaml:"definitions,omitempty"`

	// Steps are submitted in order through the write path.
	Steps []Step `yaml:"steps"`

	// Assertions run against the final state, once on the live world and
	// once after replaying the log into a fresh world.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation on the wire: the system tag, the operation type
// and its payload fields exactly as they appear in envelope data.
type Step struct {
	System string         `yaml:"system"`
	Type   string         `yaml:"type"`
	Args   map[string]any `yaml:"args"`

	// Expect is "success" or "failed"; empty means success.
	Expect string `yaml:"expect,omitempty"`

	// Reason is the expected rejection reason when Expect is "failed".
	Reason string `yaml:"reason,omitempty"`
}

// Assertion checks one observable after the steps have run.
type Assertion struct {
	// Type selects the check: balance, total_supply, holdings,
	// resource_supply, member_role, is_member, device_authorized,
	// gate_access, record_count.
	Type string `yaml:"type"`

	CurrencyID string `yaml:"currencyId,omitempty"`
	ResourceID string `yaml:"resourceId,omitempty"`
	Address    string `yaml:"address,omitempty"`
	Amount     int64  `yaml:"amount,omitempty"`

	RoomID string `yaml:"roomId,omitempty"`
	UserID string `yaml:"userId,omitempty"`
	RoleID string `yaml:"roleId,omitempty"`
	Member *bool  `yaml:"member,omitempty"`

	MasterKey  string `yaml:"masterKey,omitempty"`
	DeviceKey  string `yaml:"deviceKey,omitempty"`
	Authorized *bool  `yaml:"authorized,omitempty"`

	GateID  string `yaml:"gateId,omitempty"`
	Allowed *bool  `yaml:"allowed,omitempty"`

	Status string `yaml:"status,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance          = "balance"
	AssertTotalSupply      = "total_supply"
	AssertHoldings         = "holdings"
	AssertResourceSupply   = "resource_supply"
	AssertMemberRole       = "member_role"
	AssertIsMember         = "is_member"
	AssertDeviceAuthorized = "device_authorized"
	AssertGateAccess       = "gate_access"
	AssertRecordCount      = "record_count"
)

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks structural requirements before a scenario runs.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range s.Steps {
		if step.System == "" {
			return fmt.Errorf("step %d: system is required", i)
		}
		if step.Type == "" {
			return fmt.Errorf("step %d: type is required", i)
		}
		switch step.Expect {
		case "", "success", "failed":
		default:
			return fmt.Errorf("step %d: expect must be success or failed, got %q", i, step.Expect)
		}
	}
	for i, a := range s.Assertions {
		if a.Type == "" {
			return fmt.Errorf("assertion %d: type is required", i)
		}
	}
	return nil
}
