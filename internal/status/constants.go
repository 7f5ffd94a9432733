// internal/status/constants.go
package status

// Code is a coarse runtime health status. Codes drive logging, metrics and
// the exported status block; they are never returned to callers.
type Code uint16

// ---- RUNTIME STATUS CODES ----
// Values are protocol-locked: they are written verbatim into the status block.

const (
	Success             Code = 0
	DeviceNotFound      Code = 1
	ServiceNotInstalled Code = 2
	ServiceNotRunning   Code = 3
	ServiceNotOnline    Code = 4
	FeatureDisabled     Code = 5
	AppDisabled         Code = 6
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case DeviceNotFound:
		return "device_not_found"
	case ServiceNotInstalled:
		return "service_not_installed"
	case ServiceNotRunning:
		return "service_not_running"
	case ServiceNotOnline:
		return "service_not_online"
	case FeatureDisabled:
		return "feature_disabled"
	case AppDisabled:
		return "app_disabled"
	default:
		return "unknown"
	}
}

// Codes lists every code, for metrics label pre-registration.
var Codes = []Code{
	Success,
	DeviceNotFound,
	ServiceNotInstalled,
	ServiceNotRunning,
	ServiceNotOnline,
	FeatureDisabled,
	AppDisabled,
}

// Status block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerBlock is the fixed number of registers in the status block.
const SlotsPerBlock = 20

// ---- SLOT INDICES ----

// SlotLive holds 1 while effects are being delivered, else 0.
const SlotLive = 0

// SlotStatusCode holds the last reported Code.
const SlotStatusCode = 1

// SlotSecondsNotLive holds the duration (in seconds) the session has not been live.
const SlotSecondsNotLive = 2

// SlotConsumerIndex holds the resolved consumer index.
const SlotConsumerIndex = 3

// ---- RESERVED RANGE ----

// Slots 4–10 are reserved for future use.
const SlotReservedStart = 4
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16
