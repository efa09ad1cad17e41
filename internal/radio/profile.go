package radio

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Default GATT identifiers of the wearable firmware.
const (
	DefaultServiceUUID        = "4fafc201-1fb5-459e-8fcc-c5c9c331914b"
	DefaultCharacteristicUUID = "beb5483e-36e1-4688-b7f5-ea07361b26a8"
	DefaultScanTimeout        = 10 * time.Second
)

// Profile identifies the wearable and the characteristic used for
// position writes and sensor notifications.
type Profile struct {
	// DeviceName optionally restricts scanning to an advertised local name.
	DeviceName         string        `yaml:"device_name"`
	ServiceUUID        string        `yaml:"service_uuid"`
	CharacteristicUUID string        `yaml:"characteristic_uuid"`
	ScanTimeout        time.Duration `yaml:"scan_timeout"`
}

// DefaultProfile returns the firmware defaults.
func DefaultProfile() Profile {
	return Profile{
		ServiceUUID:        DefaultServiceUUID,
		CharacteristicUUID: DefaultCharacteristicUUID,
		ScanTimeout:        DefaultScanTimeout,
	}
}

// Validate checks that both identifiers are well-formed UUIDs.
func (p Profile) Validate() error {
	if _, err := uuid.Parse(p.ServiceUUID); err != nil {
		return fmt.Errorf("invalid service uuid %q: %w", p.ServiceUUID, err)
	}
	if _, err := uuid.Parse(p.CharacteristicUUID); err != nil {
		return fmt.Errorf("invalid characteristic uuid %q: %w", p.CharacteristicUUID, err)
	}
	if p.ScanTimeout <= 0 {
		return fmt.Errorf("scan timeout must be positive, got %s", p.ScanTimeout)
	}
	return nil
}

// LoadProfile overlays the YAML file at path onto base. Fields missing
// from the file keep their base values.
func LoadProfile(path string, base Profile) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read radio profile: %w", err)
	}

	p := base
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("parse radio profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("radio profile %s: %w", path, err)
	}
	return p, nil
}
