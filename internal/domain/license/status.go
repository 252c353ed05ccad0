package license

import "time"

type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusInUse   Status = "in_use"
	StatusExpired Status = "expired"
	StatusBanned  Status = "banned"
)

// CheckActivation decides the outcome of an activation attempt. The order of
// checks is existence, ownership, expiry, suspension; a license bound to a
// different machine reports StatusInUse even when it is also expired.
// A nil lic means the key does not exist.
func CheckActivation(lic *License, machineID string, now time.Time) Status {
	if lic == nil {
		return StatusInvalid
	}
	if lic.IsBound() && *lic.MachineID != machineID {
		return StatusInUse
	}
	if lic.IsExpired(now) {
		return StatusExpired
	}
	if !lic.IsActive {
		return StatusBanned
	}
	return StatusValid
}

// CheckValidation is the read-only check for an already activated machine.
// Unlike CheckActivation it never accepts an unbound license.
func CheckValidation(lic *License, machineID string, now time.Time) Status {
	if lic == nil || !lic.BoundTo(machineID) {
		return StatusInvalid
	}
	if lic.IsExpired(now) {
		return StatusExpired
	}
	if !lic.IsActive {
		return StatusBanned
	}
	return StatusValid
}

func (s Status) Message(activation bool) string {
	switch s {
	case StatusValid:
		if activation {
			return "Activation successful."
		}
		return "License is valid."
	case StatusInvalid:
		if activation {
			return "License key does not exist."
		}
		return "License not found for this machine."
	case StatusInUse:
		return "License key already used on another machine."
	case StatusExpired:
		if activation {
			return "This license has expired."
		}
		return "Your license has expired."
	case StatusBanned:
		if activation {
			return "This license has been suspended."
		}
		return "Your license has been suspended."
	default:
		return ""
	}
}
