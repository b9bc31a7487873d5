package validate

const (
	MinWidth int = 100
	MaxWidth int = 4096

	MinHeight int = 100
	MaxHeight int = 4096

	MinTTLHours int = 1
	MaxTTLHours int = 24 * 30
)
