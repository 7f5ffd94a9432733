// internal/status/classify.go
package status

// Inputs is everything a poll cycle knows when it classifies itself.
type Inputs struct {
	DeviceFound    bool // producer mutex observed at least once
	MutexReachable bool // producer mutex present at the last validation
	FeatureEnabled bool
	AppEnabled     bool

	ServiceKnown     bool // a monitor feeds the two fields below
	ServiceInstalled bool // last monitor verdict
	ServiceRunning   bool // last monitor verdict
}

// Rule maps a predicate to a code.
type Rule struct {
	Code  Code
	Match func(in Inputs) bool
}

// Rules is evaluated in order; the first match wins. Success is the
// fallback and has no rule.
var Rules = []Rule{
	{DeviceNotFound, func(in Inputs) bool { return !in.DeviceFound }},
	{ServiceNotInstalled, func(in Inputs) bool { return in.ServiceKnown && !in.ServiceRunning && !in.ServiceInstalled }},
	{ServiceNotRunning, func(in Inputs) bool { return in.ServiceKnown && !in.ServiceRunning }},
	{FeatureDisabled, func(in Inputs) bool { return in.MutexReachable && !in.FeatureEnabled }},
	{AppDisabled, func(in Inputs) bool { return in.MutexReachable && !in.AppEnabled }},
	{ServiceNotOnline, func(in Inputs) bool { return !in.MutexReachable && in.ServiceRunning }},
	{ServiceNotInstalled, func(in Inputs) bool { return !in.MutexReachable && !in.ServiceInstalled }},
	{ServiceNotRunning, func(in Inputs) bool { return !in.MutexReachable }},
}

// Classify returns the first matching code, or Success.
// No IO. No side effects.
func Classify(in Inputs) Code {
	for _, r := range Rules {
		if r.Match(in) {
			return r.Code
		}
	}
	return Success
}
