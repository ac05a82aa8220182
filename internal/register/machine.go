package register

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// The telemetry identifier keys the editor tracks an installation by.
const (
	machineIDKey    = "telemetry.machineId"
	macMachineIDKey = "telemetry.macMachineId"
	devDeviceIDKey  = "telemetry.devDeviceId"
	sqmIDKey        = "telemetry.sqmId"
)

// ResetMachineIDs rewrites the editor's telemetry identifiers in the
// state file at path with fresh random values. Other keys the file
// carries are preserved, and the file is created when missing.
func ResetMachineIDs(path string) error {
	state := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &state); err != nil {
			return errors.Wrapf(err, "could not parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not read %s", path)
	}

	machineID, err := randomHex(32)
	if err != nil {
		return err
	}
	macMachineID, err := randomHex(32)
	if err != nil {
		return err
	}

	state[machineIDKey] = machineID
	state[macMachineIDKey] = macMachineID
	state[devDeviceIDKey] = uuid.NewString()
	state[sqmIDKey] = "{" + strings.ToUpper(uuid.NewString()) + "}"

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not serialize state")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	return nil
}

func randomHex(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", errors.Wrap(err, "could not gather randomness")
	}
	return hex.EncodeToString(buffer), nil
}
