package model

// Goals is the singleton record of the project's two target metrics.
// A nil field means the target has not been set.
type Goals struct {
	TargetTraffic    *int `json:"target_traffic" yaml:"target_traffic" mapstructure:"target_traffic"`
	TargetConversion *int `json:"target_conversion" yaml:"target_conversion" mapstructure:"target_conversion"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
