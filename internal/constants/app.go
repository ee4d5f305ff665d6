package constants

// Application Information
const (
	AppName    = "Zacode Auth Service"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "8080"
	DefaultEnvironment = EnvDevelopment
)

// Throttle Key Prefixes (redis)
const (
	ThrottleKeyPrefix = "zauth:"
	ThrottleKeyOTP    = ThrottleKeyPrefix + "otp:"
)
